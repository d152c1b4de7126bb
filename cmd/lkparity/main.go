// Command lkparity checks a candidate LookML parser against a reference
// parser for correctness and speed.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/lkparity/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "lkparity: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
