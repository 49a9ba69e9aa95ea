// Package cmd implements the eps command tree.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// RootFlags are shared by every command.
type RootFlags struct {
	JSON      bool   `help:"Output JSON to stdout (best for scripting)" short:"j"`
	Verbose   bool   `help:"Mirror logs to stderr" short:"v"`
	ConfigDir string `help:"Override the config directory" env:"EPS_CONFIG_DIR" placeholder:"DIR"`
}

type CLI struct {
	RootFlags `embed:""`

	Version kong.VersionFlag `help:"Print version and exit"`

	Library LibraryCmd `cmd:"" aliases:"lib" help:"Manage registered libraries"`
	Sync    SyncCmd    `cmd:"" help:"Run one sync pass over the pending queue"`
	Serve   ServeCmd   `cmd:"" help:"Watch the active library and serve the gallery"`
	Status  StatusCmd  `cmd:"" aliases:"st" help:"Show active library status"`
	Logs    LogsCmd    `cmd:"" help:"Show recent sync failures"`
	Config  ConfigCmd  `cmd:"" help:"Show the effective configuration"`
	VerCmd  VersionCmd `cmd:"" name:"version" help:"Print version"`
}

// ExitError carries a process exit code alongside the underlying error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}

func newUsageError(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: 2, Err: err}
}

func usagef(format string, args ...any) error {
	return newUsageError(fmt.Errorf(format, args...))
}

// Execute parses args and runs the selected command.
func Execute(args []string) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("eps"),
		kong.Description("Mirror a local Eagle library into SQLite and serve it to a gallery front-end."),
		kong.UsageOnError(),
		kong.Vars{"version": VersionString()},
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		parsedErr := newUsageError(err)
		fmt.Fprintln(os.Stderr, "error:", err)
		return parsedErr
	}

	kctx.Bind(&cli.RootFlags)
	return kctx.Run()
}
