// Command tealetbench runs the end-to-end scenarios SPEC_FULL.md's module
// map assigns to this package (§8 of spec.md, one subcommand per scenario)
// plus a stats command. It is an external collaborator exercising the
// library from outside, not part of the core's own tested surface.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "tealetbench",
		Usage: "exercises the tealet coroutine runtime end to end",
		Commands: []*cli.Command{
			&pingpongCmd,
			&stubreuseCmd,
			&stochasticCmd,
			&deferExitCmd,
			&defunctCmd,
			&forkCmd,
			&statsCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "tealetbench:", err)
		os.Exit(1)
	}
}
