package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/iansmith/tealet"
)

var stubreuseCmd = cli.Command{
	Name:  "stubreuse",
	Usage: "scenario 2: duplicate one stub twice and run each with a distinct argument",
	Action: func(*cli.Context) error {
		a, b, active, err := runStubReuse()
		if err != nil {
			return err
		}
		fmt.Printf("%s %s active=%d\n", a, b, active)
		return nil
	},
}

func runStubReuse() (a, b string, activeAfter int, err error) {
	fam := tealet.Initialize(tealet.GrowsDown, tealet.WithThreadPin())
	defer fam.Finalize()

	reg, err := tealet.NewStubRegistry(fam, 8)
	if err != nil {
		return "", "", 0, err
	}

	echo := func(self *tealet.Coro, arg any) *tealet.Coro {
		fam.Switch(fam.MainCoro(), arg)
		return fam.MainCoro()
	}

	s1, err := reg.GetOrCreate("echo")
	if err != nil {
		return "", "", 0, err
	}
	s2, err := reg.GetOrCreate("echo")
	if err != nil {
		return "", "", 0, err
	}

	ra, err := fam.StubRun(s1, echo, "a")
	if err != nil {
		return "", "", 0, err
	}
	rb, err := fam.StubRun(s2, echo, "b")
	if err != nil {
		return "", "", 0, err
	}

	// Let both echoers actually exit (FlagDelete, the default exit path
	// used by a run-function returning fam.MainCoro()); only the cached
	// template is then left alive besides main.
	if _, err := fam.Switch(s1, nil); err != nil {
		return "", "", 0, err
	}
	if _, err := fam.Switch(s2, nil); err != nil {
		return "", "", 0, err
	}
	// Evicting the cached template frees its own record now that nothing
	// will duplicate it again, so active_count returns to main alone.
	reg.Evict("echo")

	return ra.(string), rb.(string), fam.GetStats().ActiveCoroutines, nil
}
