// Command flowreg manages a registry of named workflow definitions.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/flowreg/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		// Commands report through the output formatter; only errors raised
		// by cobra itself (unknown flags, bad arguments) still need printing.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			stop()
			os.Exit(cli.ExitCommandError)
		}
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
