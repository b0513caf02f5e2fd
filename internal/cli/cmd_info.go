package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"blkcheck/internal/device"
)

func newInfoCmd() *Command {
	flags := flag.NewFlagSet("info", flag.ContinueOnError)

	cmd := &Command{
		Flags: flags,
		Usage: "info <device>...",
		Short: "Print size and sector geometry of a device (read-only)",
	}

	cmd.Exec = func(ctx context.Context, o *IO, args []string) error {
		if len(args) == 0 {
			return errDeviceRequired
		}

		for _, path := range args {
			h, err := device.Open(path, device.Options{ReadOnly: true})
			if err != nil {
				return err
			}

			o.Printf("%s:\n", path)

			if size := h.Size(); size > 0 {
				o.Printf("  size:        %d bytes (%s)\n", size, device.FormatSize(size))
			} else {
				o.Println("  size:        unknown")
			}

			o.Printf("  sector size: %d bytes\n", h.SectorSize())

			o.Printf("  read-only:   %v\n", device.ReadOnlyDevice(h))

			if err := h.Close(); err != nil {
				return err
			}
		}

		return nil
	}

	return cmd
}
