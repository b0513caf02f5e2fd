package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"blkcheck/internal/config"
)

func newPrintConfigCmd(cfg config.Config) *Command {
	cmd := &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Print the effective configuration and where it came from",
	}

	cmd.Exec = func(ctx context.Context, o *IO, args []string) error {
		out, err := config.Format(cfg)
		if err != nil {
			return err
		}

		o.Println(out)

		if cfg.Sources.Global != "" {
			o.Println("// global:", cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			o.Println("// project:", cfg.Sources.Project)
		}

		return nil
	}

	return cmd
}
