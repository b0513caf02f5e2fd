package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"

	"blkcheck/internal/config"
	"blkcheck/internal/device"
	"blkcheck/internal/exerciser"
	"blkcheck/internal/pattern"
	"blkcheck/internal/report"
)

var (
	errDeviceRequired    = errors.New("device path is required")
	errIterationsAtLeast = errors.New("iterations must be at least 1")
)

func newRunCmd(cfg config.Config, log *slog.Logger, _ io.Reader) *Command {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)

	patternName := flags.String("pattern", cfg.Pattern, "Payload pattern: random|zeros|ones|lba")
	seed := flags.Uint64("seed", 0, "Seed for the random pattern (default: drawn from the OS and reported)")
	offset := flags.String("offset", "0", "Start of the tested extent (accepts k/m/g suffixes)")
	size := flags.String("size", "64k", "Size of the tested extent (accepts k/m/g suffixes)")
	blockSize := flags.String("block-size", cfg.BlockSize, "Transfer size per I/O (accepts k/m/g suffixes)")
	iterations := flags.IntP("iterations", "n", 1, "Write/read/verify cycles per device")
	direct := flags.Bool("direct", cfg.Direct, "Bypass the page cache (O_DIRECT)")
	noExclusive := flags.Bool("no-exclusive", false, "Do not request kernel-exclusive access (DANGEROUS on mounted devices)")
	retryOpen := flags.Duration("retry-open", 0, "Keep retrying a busy device for up to this long")
	reportPath := flags.String("report", "", "Write a JSON report to this path")
	force := flags.BoolP("force", "f", false, "Skip the destructive-write confirmation")

	cmd := &Command{
		Flags: flags,
		Usage: "run [flags] <device>...",
		Short: "Write, read back and verify a device extent (DESTRUCTIVE)",
		Long: `Exercise one or more devices: fill the configured extent with a known
pattern, read it back and compare byte for byte. All prior data in the
extent is overwritten. Multiple devices run sequentially, each with its
own handle and buffers.`,
	}

	cmd.Exec = func(ctx context.Context, o *IO, args []string) error {
		if len(args) == 0 {
			return errDeviceRequired
		}

		params, err := resolveRunParams(flags, *patternName, *seed, *offset, *size, *blockSize, *iterations)
		if err != nil {
			return err
		}

		if !*force {
			for _, path := range args {
				if err := confirmDestructive(path); err != nil {
					return err
				}
			}
		}

		gen, err := pattern.New(params.Pattern, params.Seed)
		if err != nil {
			return err
		}

		opts := device.Options{
			Direct:    *direct,
			Exclusive: !*noExclusive,
		}

		rep := report.New()
		ioErrors := 0
		mismatches := 0

		for _, path := range args {
			o.Printf("%s: exercising %s at offset %d (pattern %s, seed %d, %d iteration(s))\n",
				path, device.FormatSize(params.Size), params.Offset, params.Pattern, params.Seed, *iterations)

			ex := exerciser.New(exerciser.Config{
				Path:       path,
				Offset:     params.Offset,
				Size:       params.Size,
				BlockSize:  params.BlockSize,
				Iterations: *iterations,
				Pattern:    gen,
				Options:    opts,
				RetryOpen:  *retryOpen,
				Logger:     log,
				Progressf: func(format string, a ...any) {
					o.Printf("  "+format+"\n", a...)
				},
			}, nil)

			res := ex.Run(ctx)
			rep.Add(res, report.RunParams{
				Pattern:   params.Pattern,
				Seed:      params.Seed,
				Offset:    params.Offset,
				Size:      params.Size,
				BlockSize: params.BlockSize,
			})

			switch res.Outcome {
			case exerciser.OutcomePass:
				o.Printf("%s: PASS\n", path)
			case exerciser.OutcomeMismatch:
				mismatches++
				o.Printf("%s: MISMATCH at device offset %d\n", path, res.MismatchOffset)
			case exerciser.OutcomeIOError:
				ioErrors++
				o.Printf("%s: ERROR: %v\n", path, res.Err)
			}
		}

		if err := saveReport(o, rep, *reportPath, cfg.ReportDir); err != nil {
			return err
		}

		return aggregateError(len(args), ioErrors, mismatches)
	}

	return cmd
}

// runParams are the resolved, validated run parameters.
type runParams struct {
	Pattern   string
	Seed      uint64
	Offset    int64
	Size      int64
	BlockSize int
}

func resolveRunParams(flags *flag.FlagSet, patternName string, seed uint64, offset, size, blockSize string, iterations int) (runParams, error) {
	params := runParams{Pattern: patternName, Seed: seed}

	if iterations < 1 {
		return params, errIterationsAtLeast
	}

	var err error

	params.Offset, err = config.ParseSize(offset)
	if err != nil {
		return params, fmt.Errorf("--offset: %w", err)
	}

	params.Size, err = config.ParseSize(size)
	if err != nil {
		return params, fmt.Errorf("--size: %w", err)
	}

	block, err := config.ParseSize(blockSize)
	if err != nil {
		return params, fmt.Errorf("--block-size: %w", err)
	}

	if block <= 0 || block > params.Size {
		block = params.Size
	}

	params.BlockSize = int(block)

	// An unseeded random run still has to be reproducible, so draw a
	// seed up front; it ends up in the output and the report.
	if params.Pattern == "random" && !flags.Changed("seed") {
		params.Seed = pattern.NewSeed()
	}

	return params, nil
}

// saveReport writes the JSON report when a path was given explicitly or a
// report directory is configured.
func saveReport(o *IO, rep *report.Report, explicit, reportDir string) error {
	path := explicit
	if path == "" {
		if reportDir == "" {
			return nil
		}

		path = filepath.Join(reportDir, report.FileName(time.Now()))
	}

	if err := rep.Save(path); err != nil {
		return err
	}

	o.Println("report written to", path)

	return nil
}

// aggregateError folds per-device outcomes into the process exit code.
// Any device that could not be tested dominates: a harness must not take
// exit 2 to mean "every device was actually exercised" when one wasn't.
func aggregateError(devices, ioErrors, mismatches int) error {
	switch {
	case ioErrors > 0:
		return &ExitError{
			Code: ExitIOError,
			Err:  fmt.Errorf("%d of %d device(s) could not be tested", ioErrors, devices),
		}
	case mismatches > 0:
		return &ExitError{
			Code: ExitMismatch,
			Err:  fmt.Errorf("data verification failed on %d of %d device(s)", mismatches, devices),
		}
	}

	return nil
}
