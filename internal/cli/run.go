package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"blkcheck/internal/config"
)

// Run is the main entry point. Returns the process exit code.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	o := NewIO(out, errOut)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			<-sigCh
			cancel()
		}()
	}

	// Global flags
	globals := flag.NewFlagSet("blkcheck", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(io.Discard)

	workDir := globals.StringP("cwd", "C", "", "Run as if started in this directory")
	configPath := globals.StringP("config", "c", "", "Use specified config file")
	verbose := globals.BoolP("verbose", "v", false, "Enable debug logging")

	if err := globals.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(o, nil)

			return ExitPass
		}

		o.ErrPrintln("error:", err)

		return ExitIOError
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}

	log := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(config.Input{
		WorkDir:    *workDir,
		ConfigPath: *configPath,
		Env:        env,
	})
	if err != nil {
		o.ErrPrintln("error:", err)

		return ExitIOError
	}

	commands := []*Command{
		newRunCmd(cfg, log, in),
		newInfoCmd(),
		newDevicesCmd(),
		newPrintConfigCmd(cfg),
	}

	rest := globals.Args()
	if len(rest) == 0 {
		printUsage(o, commands)

		return ExitPass
	}

	name := rest[0]
	if name == "-h" || name == "--help" || name == "help" {
		printUsage(o, commands)

		return ExitPass
	}

	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd.Run(ctx, o, rest[1:])
		}
	}

	o.ErrPrintln("error: unknown command:", name)
	printUsageTo(o, commands, true)

	return ExitIOError
}

func printUsage(o *IO, commands []*Command) {
	printUsageTo(o, commands, false)
}

func printUsageTo(o *IO, commands []*Command, toErr bool) {
	println := o.Println
	if toErr {
		println = o.ErrPrintln
	}

	println(`blkcheck - storage device data-integrity exerciser

Writes a known pattern to a device extent, reads it back and compares
byte for byte. DESTRUCTIVE to the tested extent.

Usage: blkcheck [options] <command> [args]

Options:
  -C, --cwd <dir>     Run as if started in <dir>
  -c, --config <file> Use specified config file
  -v, --verbose       Enable debug logging

Commands:`)

	for _, cmd := range commands {
		println(cmd.HelpLine())
	}

	if len(commands) > 0 {
		println()
		println(`Exit codes: 0 pass, 1 could not test (I/O or usage error), 2 data mismatch.`)
	}
}
