// prism resolves declarative scene descriptions into renderer-ready scenes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/prism/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		code := cli.GetExitCode(err)
		if code == cli.ExitCommandError {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(code)
	}
}
