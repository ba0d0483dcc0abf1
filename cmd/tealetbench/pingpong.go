package main

import (
	"fmt"

	"github.com/iansmith/tealet/internal/stackswitch"
	"github.com/urfave/cli/v2"

	"github.com/iansmith/tealet"
)

var pingpongCmd = cli.Command{
	Name:  "pingpong",
	Usage: "scenario 1: main reads a 0..9 counter yielded by a worker coroutine",
	Action: func(*cli.Context) error {
		if !stackswitch.Supported {
			return fmt.Errorf("no stack_switch implementation for this architecture")
		}
		got, err := runPingPong()
		if err != nil {
			return err
		}
		fmt.Println(got)
		return nil
	},
}

func runPingPong() ([]int, error) {
	fam := tealet.Initialize(tealet.GrowsDown, tealet.WithThreadPin())
	defer fam.Finalize()

	var seq []int
	worker := func(self *tealet.Coro, arg any) *tealet.Coro {
		for i := 0; i < 10; i++ {
			if _, err := fam.Switch(fam.MainCoro(), i); err != nil {
				return fam.MainCoro()
			}
		}
		return fam.MainCoro()
	}

	w, first, err := fam.New(worker, nil)
	if err != nil {
		return nil, err
	}
	seq = append(seq, first.(int))
	for w.Status() == tealet.PhaseActive {
		v, err := fam.Switch(w, nil)
		if err != nil {
			return nil, err
		}
		if w.Status() != tealet.PhaseActive {
			break
		}
		seq = append(seq, v.(int))
	}
	return seq, nil
}
