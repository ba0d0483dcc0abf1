package main

import (
	"fmt"
	"math/rand"

	"github.com/urfave/cli/v2"

	"github.com/iansmith/tealet"
)

var stochasticCmd = cli.Command{
	Name:  "stochastic",
	Usage: "scenario 3: 50,000 random switches across 127 slots, then drain",
	Action: func(*cli.Context) error {
		active, bytes, err := runStochastic(50_000, 127)
		if err != nil {
			return err
		}
		fmt.Printf("active=%d bytes_allocated=%d\n", active, bytes)
		return nil
	},
}

// runStochastic implements spec.md §8 scenario 3. Each occupied slot runs a
// body that recurses to a random depth before yielding to another random
// slot; recursing first (rather than yielding immediately) is what gives
// the pending-save list real partial stacks to grow and drain.
func runStochastic(ops, slots int) (activeAfter int, bytesAfter int64, err error) {
	fam := tealet.Initialize(tealet.GrowsDown, tealet.WithThreadPin())
	defer fam.Finalize()

	rng := rand.New(rand.NewSource(1))
	table := make([]*tealet.Coro, slots)

	var recurse func(self *tealet.Coro, depth int) (any, error)
	recurse = func(self *tealet.Coro, depth int) (any, error) {
		if depth <= 0 {
			target := table[rng.Intn(slots)]
			if target == nil || target == self {
				target = fam.MainCoro()
			}
			return fam.Switch(target, nil)
		}
		var pad [64]byte
		_ = pad
		return recurse(self, depth-1)
	}

	body := func(self *tealet.Coro, arg any) *tealet.Coro {
		for {
			depth := rng.Intn(21)
			next, err := recurse(self, depth)
			if err != nil {
				return fam.MainCoro()
			}
			if done, ok := next.(bool); ok && done {
				return fam.MainCoro()
			}
		}
	}

	for i := 0; i < ops; i++ {
		slot := rng.Intn(slots)
		if table[slot] == nil || table[slot].Status() != tealet.PhaseActive {
			co, _, err := fam.New(body, nil)
			if err != nil {
				return 0, 0, err
			}
			table[slot] = co
			continue
		}
		if _, err := fam.Switch(table[slot], nil); err != nil {
			return 0, 0, err
		}
	}

	for _, co := range table {
		if co != nil && co.Status() == tealet.PhaseActive {
			if _, err := fam.Switch(co, true); err != nil {
				return 0, 0, err
			}
		}
	}

	st := fam.GetStats()
	return st.ActiveCoroutines, st.BytesAllocated, nil
}
