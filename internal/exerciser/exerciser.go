// Package exerciser sequences a destructive write/read/verify pass over a
// device extent and aggregates the outcome.
//
// A run walks a fixed state machine:
//
//	Idle -> Opened -> Written -> Seeked -> ReadBack -> Verified -> Closed(Pass|Fail)
//
// Transitions are strictly sequential. Any failure short-circuits to the
// failed terminal state, and the device handle is released on every path
// that reaches a terminal state.
package exerciser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	retry "github.com/sethvargo/go-retry"

	"blkcheck/internal/device"
	"blkcheck/internal/pattern"
	"blkcheck/internal/verify"
)

// State identifies a position in the run's state machine.
type State int

const (
	Idle State = iota
	Opened
	Written
	Seeked
	ReadBack
	Verified
	ClosedPass
	ClosedFail
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opened:
		return "opened"
	case Written:
		return "written"
	case Seeked:
		return "seeked"
	case ReadBack:
		return "read_back"
	case Verified:
		return "verified"
	case ClosedPass:
		return "closed_pass"
	case ClosedFail:
		return "closed_fail"
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether s is a terminal state.
func (s State) Terminal() bool {
	return s == ClosedPass || s == ClosedFail
}

// Stage names the operation that produced an I/O failure.
type Stage int

const (
	StageOpen Stage = iota
	StageWrite
	StageSeek
	StageRead
	StageClose
)

func (s Stage) String() string {
	switch s {
	case StageOpen:
		return "open"
	case StageWrite:
		return "write"
	case StageSeek:
		return "seek"
	case StageRead:
		return "read"
	case StageClose:
		return "close"
	}

	return fmt.Sprintf("stage(%d)", int(s))
}

// StageError is an I/O failure attributed to one stage of the run. The
// underlying OS error stays reachable via errors.Is/As.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failure: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Outcome is the tri-state result of a run. A mismatch means the test ran
// to completion and the medium returned wrong data; an I/O error means the
// test could not be carried out.
type Outcome int

const (
	OutcomePass Outcome = iota
	OutcomeMismatch
	OutcomeIOError
)

func (o Outcome) String() string {
	switch o {
	case OutcomePass:
		return "pass"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeIOError:
		return "io_error"
	}

	return fmt.Sprintf("outcome(%d)", int(o))
}

// Opener opens the device under test. Swapped for a mock in tests.
type Opener func(path string, opts device.Options) (device.Handle, error)

// Config parameterizes a run.
type Config struct {
	// Path of the device node or image file.
	Path string

	// Offset and Size delimit the tested extent in bytes.
	Offset int64
	Size   int64

	// BlockSize caps individual transfers. 0 means one transfer for the
	// whole extent.
	BlockSize int

	// Iterations repeats the write/read/verify cycle. 0 means 1.
	Iterations int

	// Pattern fills the write payload.
	Pattern pattern.Generator

	// Options is passed through to the device open.
	Options device.Options

	// RetryOpen keeps retrying a busy device for up to this duration
	// before giving up. 0 disables retrying; all other I/O failures are
	// fatal immediately.
	RetryOpen time.Duration

	// Logger receives diagnostics. Defaults to a discard logger.
	Logger *slog.Logger

	// Progressf receives human-readable status lines per stage.
	Progressf func(format string, args ...any)
}

// Iteration is the outcome of one write/read/verify cycle.
type Iteration struct {
	Index          int
	Outcome        Outcome
	MismatchOffset int64 // absolute device offset, -1 if none
	WriteDigest    string
	ReadDigest     string
	BytesWritten   int64
	BytesRead      int64
	Duration       time.Duration
}

// Result is the aggregated outcome of a run.
type Result struct {
	Path           string
	State          State
	Outcome        Outcome
	Err            error // nil unless Outcome is OutcomeIOError
	MismatchOffset int64 // absolute device offset, -1 if none
	Iterations     []Iteration
	Duration       time.Duration
}

// Exerciser owns one device for the duration of one run. Not safe for
// concurrent use; independent devices get independent instances.
type Exerciser struct {
	cfg       Config
	open      Opener
	log       *slog.Logger
	progressf func(format string, args ...any)
	state     State
	started   time.Time
}

// New returns an Exerciser for cfg. A nil opener means [device.Open].
func New(cfg Config, open Opener) *Exerciser {
	if open == nil {
		open = device.Open
	}

	if cfg.Iterations <= 0 {
		cfg.Iterations = 1
	}

	if cfg.BlockSize <= 0 && cfg.Size > 0 {
		cfg.BlockSize = int(cfg.Size)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	progressf := cfg.Progressf
	if progressf == nil {
		progressf = func(string, ...any) {}
	}

	return &Exerciser{cfg: cfg, open: open, log: log, progressf: progressf, state: Idle}
}

// State returns the machine's current state.
func (e *Exerciser) State() State { return e.state }

var (
	errExtentEmpty    = errors.New("extent size must be positive")
	errExtentTooLarge = errors.New("extent too large to buffer in memory")
	errNoPattern      = errors.New("no pattern generator configured")
	errUnaligned      = errors.New("direct I/O requires sector-aligned offset, size and block size")
)

const maxExtent = 1 << 30

func (e *Exerciser) validate() error {
	switch {
	case e.cfg.Size <= 0:
		return errExtentEmpty
	case e.cfg.Size > maxExtent:
		return fmt.Errorf("%w: %d bytes (max %d)", errExtentTooLarge, e.cfg.Size, maxExtent)
	case e.cfg.Offset < 0:
		return fmt.Errorf("%w: negative offset %d", device.ErrInvalidOffset, e.cfg.Offset)
	case e.cfg.Pattern == nil:
		return errNoPattern
	}

	return nil
}

// Run executes the full exercise against the configured device. The
// returned Result always carries a terminal state, and the handle — if one
// was opened — has been released by the time Run returns.
func (e *Exerciser) Run(ctx context.Context) *Result {
	e.started = time.Now()

	res := &Result{Path: e.cfg.Path, MismatchOffset: -1}

	if err := e.validate(); err != nil {
		return e.fail(nil, res, StageOpen, err)
	}

	h, err := e.openDevice(ctx)
	if err != nil {
		return e.fail(nil, res, StageOpen, err)
	}

	e.state = Opened
	e.progressf("opened %s: %s, sector size %d", h.Path(), device.FormatSize(h.Size()), h.SectorSize())

	if err := e.checkExtent(h); err != nil {
		return e.fail(h, res, StageOpen, err)
	}

	// Two independently owned payload buffers, never aliased.
	wbuf := device.AlignedBuffer(int(e.cfg.Size))
	rbuf := device.AlignedBuffer(int(e.cfg.Size))

	for i := range e.cfg.Iterations {
		it, itErr := e.iterate(ctx, h, i, wbuf, rbuf)
		res.Iterations = append(res.Iterations, it)

		if itErr != nil {
			var stageErr *StageError
			if errors.As(itErr, &stageErr) {
				return e.fail(h, res, stageErr.Stage, itErr)
			}

			return e.fail(h, res, StageOpen, itErr)
		}

		if it.Outcome == OutcomeMismatch {
			res.Outcome = OutcomeMismatch
			res.MismatchOffset = it.MismatchOffset

			return e.finish(h, res)
		}
	}

	res.Outcome = OutcomePass

	return e.finish(h, res)
}

// checkExtent validates the configured extent against the opened device.
func (e *Exerciser) checkExtent(h device.Handle) error {
	if h.Size() > 0 && e.cfg.Offset+e.cfg.Size > h.Size() {
		return fmt.Errorf("%w: extent [%d, %d) exceeds device size %d",
			device.ErrInvalidOffset, e.cfg.Offset, e.cfg.Offset+e.cfg.Size, h.Size())
	}

	if e.cfg.Options.Direct {
		sector := int64(h.SectorSize())
		if e.cfg.Offset%sector != 0 || e.cfg.Size%sector != 0 || int64(e.cfg.BlockSize)%sector != 0 {
			return fmt.Errorf("%w (sector size %d)", errUnaligned, sector)
		}
	}

	return nil
}

func (e *Exerciser) openDevice(ctx context.Context) (device.Handle, error) {
	if e.cfg.RetryOpen <= 0 {
		return e.open(e.cfg.Path, e.cfg.Options)
	}

	var h device.Handle

	backoff := retry.WithMaxDuration(e.cfg.RetryOpen, retry.NewFibonacci(100*time.Millisecond))

	err := retry.Do(ctx, backoff, func(context.Context) error {
		var openErr error

		h, openErr = e.open(e.cfg.Path, e.cfg.Options)
		if errors.Is(openErr, device.ErrBusy) {
			e.log.Warn("device busy, retrying open", "path", e.cfg.Path)

			return retry.RetryableError(openErr)
		}

		return openErr
	})
	if err != nil {
		return nil, err
	}

	return h, nil
}

// iterate runs one write -> seek -> read -> verify cycle.
func (e *Exerciser) iterate(ctx context.Context, h device.Handle, index int, wbuf, rbuf []byte) (Iteration, error) {
	it := Iteration{Index: index, Outcome: OutcomeIOError, MismatchOffset: -1}
	start := time.Now()

	defer func() { it.Duration = time.Since(start) }()

	e.cfg.Pattern.Fill(wbuf, e.cfg.Offset)
	it.WriteDigest = verify.Digest(wbuf)

	// Write pass, chunked by block size, each chunk transferred fully.
	for off := 0; off < len(wbuf); off += e.cfg.BlockSize {
		if err := ctx.Err(); err != nil {
			return it, &StageError{Stage: StageWrite, Err: err}
		}

		end := min(off+e.cfg.BlockSize, len(wbuf))

		n, err := device.WriteFull(h, wbuf[off:end], e.cfg.Offset+int64(off))
		it.BytesWritten += int64(n)

		if err != nil {
			return it, &StageError{Stage: StageWrite, Err: err}
		}
	}

	if err := h.Sync(); err != nil {
		return it, &StageError{Stage: StageWrite, Err: err}
	}

	e.state = Written
	e.progressf("wrote %d bytes to %s at offset %d", it.BytesWritten, e.cfg.Path, e.cfg.Offset)

	// Rewind to the start of the extent.
	if _, err := h.Seek(e.cfg.Offset, io.SeekStart); err != nil {
		return it, &StageError{Stage: StageSeek, Err: err}
	}

	e.state = Seeked

	// Read-back pass into the independent buffer.
	clear(rbuf)

	for off := 0; off < len(rbuf); off += e.cfg.BlockSize {
		if err := ctx.Err(); err != nil {
			return it, &StageError{Stage: StageRead, Err: err}
		}

		end := min(off+e.cfg.BlockSize, len(rbuf))

		n, err := device.ReadFull(h, rbuf[off:end], e.cfg.Offset+int64(off))
		it.BytesRead += int64(n)

		if err != nil {
			return it, &StageError{Stage: StageRead, Err: err}
		}
	}

	e.state = ReadBack
	e.progressf("read %d bytes from %s at offset %d", it.BytesRead, e.cfg.Path, e.cfg.Offset)

	it.ReadDigest = verify.Digest(rbuf)

	vres, err := verify.Compare(wbuf, rbuf)
	if err != nil {
		return it, &StageError{Stage: StageRead, Err: err}
	}

	e.state = Verified

	if vres.Outcome == verify.Mismatch {
		it.Outcome = OutcomeMismatch
		it.MismatchOffset = e.cfg.Offset + vres.Offset
		e.progressf("data verification FAILED at device offset %d (wrote 0x%02x, read 0x%02x)",
			it.MismatchOffset, vres.Want, vres.Got)

		return it, nil
	}

	it.Outcome = OutcomePass
	e.progressf("data verification passed: %d bytes match", len(wbuf))

	return it, nil
}

// fail attributes err to a stage and reaches the failed terminal state.
func (e *Exerciser) fail(h device.Handle, res *Result, stage Stage, err error) *Result {
	res.Outcome = OutcomeIOError

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		res.Err = stageErr
	} else {
		res.Err = &StageError{Stage: stage, Err: err}
	}

	e.log.Error("run failed", "path", e.cfg.Path, "stage", stage.String(), "err", err)

	return e.finish(h, res)
}

// finish releases the handle and settles the terminal state. Every Run
// exit path funnels through here, so no descriptor outlives the run.
func (e *Exerciser) finish(h device.Handle, res *Result) *Result {
	if h != nil {
		if cerr := h.Close(); cerr != nil {
			e.log.Warn("closing device", "path", e.cfg.Path, "err", cerr)

			if res.Err == nil && res.Outcome == OutcomePass {
				res.Outcome = OutcomeIOError
				res.Err = &StageError{Stage: StageClose, Err: cerr}
			}
		}
	}

	if res.Outcome == OutcomePass {
		e.state = ClosedPass
	} else {
		e.state = ClosedFail
	}

	res.State = e.state
	res.Duration = time.Since(e.started)

	return res
}
