package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/iansmith/tealet"
)

var forkCmd = cli.Command{
	Name:  "fork",
	Usage: "scenario 6: fork from a non-main coroutine, parent and child each observe their own side",
	Action: func(*cli.Context) error {
		parentVal, childVal, err := runFork()
		if err != nil {
			return err
		}
		fmt.Printf("parent=%d child=%d\n", parentVal, childVal)
		return nil
	},
}

// runFork implements spec.md §8 scenario 6. body forks itself once; the
// fork point's local is shared verbatim by both sides (it was already on
// the stack when the snapshot was taken), and each side's own write after
// the fork point stays private to that side's copy.
func runFork() (parentVal, childVal int, err error) {
	fam := tealet.Initialize(tealet.GrowsDown, tealet.WithThreadPin())
	defer fam.Finalize()

	var child *tealet.Coro

	body := func(self *tealet.Coro, arg any) *tealet.Coro {
		local := 100

		isChild, other, ferr := fam.Fork(tealet.ForkDefault)
		if ferr != nil {
			return fam.MainCoro()
		}
		if isChild {
			local += 1 // child's own divergent write
		} else {
			local += 2 // parent's own divergent write
			child = other
		}

		fam.Switch(fam.MainCoro(), local)
		return fam.MainCoro()
	}

	_, firstResult, err := fam.New(body, nil)
	if err != nil {
		return 0, 0, err
	}
	parentVal = firstResult.(int)

	secondResult, err := fam.Switch(child, nil)
	if err != nil {
		return 0, 0, err
	}
	childVal = secondResult.(int)

	return parentVal, childVal, nil
}
