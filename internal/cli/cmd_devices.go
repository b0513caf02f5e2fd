package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"blkcheck/internal/device"
)

func newDevicesCmd() *Command {
	flags := flag.NewFlagSet("devices", flag.ContinueOnError)

	sysBlock := flags.String("sysfs", "/sys/block", "Sysfs block directory to enumerate")

	cmd := &Command{
		Flags: flags,
		Usage: "devices [flags]",
		Short: "List block devices visible to the kernel",
	}

	cmd.Exec = func(ctx context.Context, o *IO, args []string) error {
		devices, err := device.List(*sysBlock)
		if err != nil {
			return err
		}

		if len(devices) == 0 {
			o.Println("no block devices found")

			return nil
		}

		for _, d := range devices {
			o.Printf("%-12s %-20s %s\n", d.Name, d.Path, device.FormatSize(d.Size))
		}

		return nil
	}

	return cmd
}
