package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Exit codes. A harness can tell "could not test" (ExitIOError) apart from
// "the test ran and the data came back wrong" (ExitMismatch).
const (
	ExitPass     = 0
	ExitIOError  = 1
	ExitMismatch = 2
)

// ExitError carries a specific process exit code alongside the error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// Command defines a CLI command with unified help generation.
type Command struct {
	// Flags defines command-specific flags.
	Flags *flag.FlagSet

	// Usage is the freeform usage string shown after "blkcheck" in help.
	// Includes the command name and arguments/flags.
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-22s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help output for "blkcheck <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: blkcheck", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command. Returns exit code.
// Handles error printing internally for consistent output ordering.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)

			return ExitPass
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)

		return ExitIOError
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		o.ErrPrintln("error:", err)

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}

		return ExitIOError
	}

	return ExitPass
}
