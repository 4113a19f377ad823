// Command smarm evaluates programs deterministically under step and memory
// budgets.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/smarm/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "smarm:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
