package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/iansmith/tealet"
)

var defunctCmd = cli.Command{
	Name:  "defunct",
	Usage: "scenario 5: an allocator failure during exit leaves the exiting coroutine defunct, not the caller",
	Action: func(*cli.Context) error {
		status, switchErr, err := runDefunct()
		if err != nil {
			return err
		}
		fmt.Printf("worker_status=%s resume_err=%v\n", status, switchErr)
		return nil
	},
}

// failAfterAllocator wraps another Allocator and fails every call once the
// budget of successful allocations is exhausted, modeling spec.md §8
// scenario 5's "allocator that fails the next allocation" without needing
// the go.uber.org/mock-style double this repo's tests use for the same
// purpose (see allocator_mock_test.go).
type failAfterAllocator struct {
	tealet.Allocator
	remaining int
}

func (a *failAfterAllocator) Alloc(size int) ([]byte, error) {
	if a.remaining <= 0 {
		return nil, fmt.Errorf("tealetbench: injected allocator exhaustion")
	}
	a.remaining--
	return a.Allocator.Alloc(size)
}

func runDefunct() (status tealet.LifePhase, switchErr error, err error) {
	// Budget covers the two unavoidable allocations every new coroutine's
	// first real entry costs (the Create bootstrap's self-save of the
	// stub, then the caller's own outgoing save on the entering switch),
	// leaving none for the grow the exit path needs once deep recursion
	// has outrun what was already saved.
	alloc := &failAfterAllocator{Allocator: tealet.GoAllocator{}, remaining: 2}
	fam := tealet.Initialize(tealet.GrowsDown, tealet.WithAllocator(alloc), tealet.WithThreadPin())
	defer fam.Finalize()

	var recurse func(depth int)
	recurse = func(depth int) {
		if depth <= 0 {
			return
		}
		var pad [256]byte
		_ = pad
		recurse(depth - 1)
	}

	var worker *tealet.Coro
	body := func(self *tealet.Coro, arg any) *tealet.Coro {
		// Recurse deep first so the exit's own save-grow (for whatever of
		// self's stack the pending walk hasn't covered yet) needs a second
		// allocation that the budget above won't have left.
		recurse(64)
		fam.Exit(self, fam.MainCoro(), nil, tealet.FlagDelete)
		return fam.MainCoro()
	}

	var errNew error
	worker, _, errNew = fam.New(body, nil)
	if errNew != nil {
		return 0, nil, errNew
	}

	status = worker.Status()
	_, switchErr = fam.Switch(worker, nil)
	return status, switchErr, nil
}
