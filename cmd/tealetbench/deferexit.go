package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/iansmith/tealet"
)

var deferExitCmd = cli.Command{
	Name:  "defer-exit",
	Usage: "scenario 4: a deferred exit still delivers its argument to main after an ordinary return",
	Action: func(*cli.Context) error {
		v, err := runDeferExit()
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	},
}

func runDeferExit() (int, error) {
	fam := tealet.Initialize(tealet.GrowsDown, tealet.WithThreadPin())
	defer fam.Finalize()

	f := func(self *tealet.Coro, arg any) *tealet.Coro {
		// Exit(..., FlagDefer) only records the exit; control returns here
		// and the function then does an ordinary return, exactly as §8
		// scenario 4 describes, and stubTrampoline performs the stashed
		// exit once run_fn actually returns.
		if _, err := fam.Exit(self, fam.MainCoro(), 42, tealet.FlagDelete|tealet.FlagDefer); err != nil {
			return fam.MainCoro()
		}
		return fam.MainCoro()
	}

	_, result, err := fam.New(f, nil)
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}
