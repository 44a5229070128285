// Command fanflow runs chunked grade aggregation, payroll derivation and
// the git workflow agent simulation from the command line.
//
// Usage:
//
//	fanflow gwa --workers 2 85 90 78 92
//	fanflow payroll --max-concurrent 4 Alice=25000 Bob=32000
//	fanflow agents --mode both
//	fanflow schedule --cron "@every 30s" --runs 3
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

// command is one fanflow subcommand.
type command struct {
	name    string
	summary string
	// flags defines command flags on fs and returns the config key each
	// flag overrides.
	flags func(fs *pflag.FlagSet) map[string]string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{gwaCommand, payrollCommand, agentsCommand, scheduleCommand}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "-h", "--help", "help":
		usage(stdout)
		return 0
	}

	cmd, ok := lookup(args[0])
	if !ok {
		fmt.Fprintf(stderr, "fanflow: unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	fs := pflag.NewFlagSet("fanflow "+cmd.name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	common := addCommonFlags(fs)
	keys := cmd.flags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	a, err := newApp(ctx, fs, common, keys, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "fanflow: %v\n", err)
		return 1
	}
	defer a.close()

	if err := cmd.run(ctx, a, fs.Args()); err != nil {
		fmt.Fprintf(stderr, "fanflow %s: %v\n", cmd.name, err)
		return 1
	}
	return 0
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: fanflow <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'fanflow <command> --help' for command flags.")
}
