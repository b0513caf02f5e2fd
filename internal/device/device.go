// Package device performs positioned I/O against block and character
// device nodes. Regular files are supported with the same interface so
// higher layers can be tested against a disk image instead of hardware.
//
// The package is deliberately destructive-friendly: writing through a
// [Handle] overwrites whatever the tested extent previously held. Callers
// own that decision; [Open] only refuses devices the kernel reports busy
// when exclusive access is requested.
package device

import (
	"errors"
	"fmt"
	"io"

	"github.com/ncw/directio"
)

// Failure classes surfaced by this package. Wrapped OS errors remain
// reachable through errors.Is/As.
var (
	ErrNotFound      = errors.New("device not found")
	ErrPermission    = errors.New("permission denied")
	ErrBusy          = errors.New("device busy")
	ErrInvalidOffset = errors.New("offset beyond device bounds")
	ErrShortWrite    = errors.New("short write")
	ErrShortRead     = errors.New("short read")
)

// DefaultSectorSize is assumed when the device does not report a logical
// sector size (regular files, exotic character devices).
const DefaultSectorSize = 512

// Handle is an open, exclusively owned reference to a device under test.
//
// Positioned reads and writes never share state with the seek cursor; Seek
// exists because the exercise sequence repositions the cursor between the
// write and read passes.
type Handle interface {
	io.ReaderAt
	io.WriterAt
	io.Seeker
	io.Closer

	// Sync flushes written data to the underlying medium.
	Sync() error

	// Size returns the device capacity in bytes, or 0 if unknown.
	Size() int64

	// SectorSize returns the logical sector size in bytes.
	SectorSize() int

	// Path returns the path the handle was opened from.
	Path() string
}

// Options controls how a device is opened.
type Options struct {
	// ReadOnly opens the device O_RDONLY. The default is read-write.
	ReadOnly bool

	// Direct bypasses the page cache (O_DIRECT). Transfers then must use
	// sector-aligned buffers and offsets; see [AlignedBuffer].
	Direct bool

	// Exclusive requests kernel-exclusive access (O_EXCL). On Linux block
	// devices this fails with [ErrBusy] while the device is mounted or
	// otherwise claimed, which is the safe default for destructive runs.
	Exclusive bool
}

// AlignedBuffer returns a zeroed buffer whose base address satisfies
// O_DIRECT alignment requirements. Harmless for buffered I/O, so all
// payload buffers are allocated through it.
func AlignedBuffer(size int) []byte {
	return directio.AlignedBlock(size)
}

// FormatSize renders a byte count for humans.
func FormatSize(size int64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
		tib = 1 << 40
	)

	switch {
	case size >= tib:
		return fmt.Sprintf("%.2f TiB", float64(size)/tib)
	case size >= gib:
		return fmt.Sprintf("%.2f GiB", float64(size)/gib)
	case size >= mib:
		return fmt.Sprintf("%.2f MiB", float64(size)/mib)
	case size >= kib:
		return fmt.Sprintf("%.2f KiB", float64(size)/kib)
	}

	return fmt.Sprintf("%d B", size)
}
