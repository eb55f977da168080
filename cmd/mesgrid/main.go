package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rshade/mesgrid/internal/cli"
	"github.com/rshade/mesgrid/internal/tui"
	"github.com/rshade/mesgrid/pkg/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI with args and returns the process exit code.
func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(buildVersion())
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, tui.RenderError(err))
	}
	return exitCode(err)
}

// buildVersion appends the git commit to the version when it is known.
func buildVersion() string {
	v := version.GetVersion()
	if commit := version.GetGitCommit(); commit != "" {
		v = fmt.Sprintf("%s (%s)", v, commit)
	}
	return v
}

// exitCode maps err to a process exit code. ExitError codes win; any other
// error exits 1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return cli.ExitCodeError
}
