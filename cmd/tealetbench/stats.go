package main

import (
	"fmt"

	"github.com/dsnet/golib/unitconv"
	"github.com/urfave/cli/v2"

	"github.com/iansmith/tealet"
)

var statsCmd = cli.Command{
	Name:  "stats",
	Usage: "runs a small family under load and prints its memory accounting in human-readable form",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "coroutines", Value: 16},
	},
	Action: func(context *cli.Context) error {
		st, err := runStats(context.Int("coroutines"))
		if err != nil {
			return err
		}
		printStats(st)
		return nil
	},
}

func runStats(n int) (tealet.Stats, error) {
	fam := tealet.Initialize(tealet.GrowsDown, tealet.WithThreadPin())
	defer fam.Finalize()

	worker := func(self *tealet.Coro, arg any) *tealet.Coro {
		fam.Switch(fam.MainCoro(), arg)
		return fam.MainCoro()
	}

	for i := 0; i < n; i++ {
		if _, _, err := fam.New(worker, i); err != nil {
			return tealet.Stats{}, err
		}
	}

	return fam.GetStats(), nil
}

func bytesStr(n int64) string {
	return unitconv.FormatPrefix(float64(n), unitconv.SI, 2) + "B"
}

// printStats renders a Stats snapshot the way stats accompanies scenario 3's
// own active/bytes_allocated summary line: human units instead of raw
// counts, one line per field.
func printStats(st tealet.Stats) {
	fmt.Printf("active coroutines: %d\n", st.ActiveCoroutines)
	fmt.Printf("bytes allocated:    %s (peak %s)\n", bytesStr(st.BytesAllocated), bytesStr(st.BytesAllocatedPeak))
	fmt.Printf("stack bytes held:   %s\n", bytesStr(st.StackBytesHeld))
	fmt.Printf("expanded:           %s\n", bytesStr(st.Expanded))
	fmt.Printf("naive:              %s\n", bytesStr(st.Naive))
}
