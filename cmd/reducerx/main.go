// Command reducerx runs, validates, journals and replays reducer scenarios.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/reducerx/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// Commands report their own failures; flag and argument errors
		// from cobra are not.
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
