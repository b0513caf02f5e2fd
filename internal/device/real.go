package device

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/ncw/directio"
)

// real is the production Handle backed by an *os.File.
type real struct {
	f      *os.File
	path   string
	size   int64 // 0 = unknown
	sector int
}

// Open opens the device node (or regular file) at path.
//
// Failure classes: [ErrNotFound] for a missing path, [ErrPermission] for an
// access failure, [ErrBusy] when exclusive access was requested and the
// kernel refused it. The underlying OS error stays wrapped.
func Open(path string, opts Options) (Handle, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, classifyOpenErr(path, err)
	}

	flag := os.O_RDWR
	if opts.ReadOnly {
		flag = os.O_RDONLY
	}

	// O_EXCL on a block device asks the kernel for exclusive access
	// (fails with EBUSY while mounted). On a regular file it would mean
	// "create", so it is only applied to device nodes.
	if opts.Exclusive && isDeviceNode(fi) {
		flag |= os.O_EXCL
	}

	var f *os.File
	if opts.Direct {
		f, err = directio.OpenFile(path, flag, 0)
	} else {
		f, err = os.OpenFile(path, flag, 0)
	}

	if err != nil {
		return nil, classifyOpenErr(path, err)
	}

	size, sector, err := geometry(f, fi)
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("probing geometry of %s: %w", path, err)
	}

	return &real{f: f, path: path, size: size, sector: sector}, nil
}

func classifyOpenErr(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	case os.IsPermission(err):
		return fmt.Errorf("%w: %s: %w", ErrPermission, path, err)
	case errors.Is(err, syscall.EBUSY):
		return fmt.Errorf("%w: %s: %w", ErrBusy, path, err)
	}

	return fmt.Errorf("open %s: %w", path, err)
}

func isDeviceNode(fi os.FileInfo) bool {
	return fi.Mode()&os.ModeDevice != 0
}

func (d *real) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off)
}

func (d *real) WriteAt(p []byte, off int64) (int, error) {
	return d.f.WriteAt(p, off)
}

// Seek repositions the cursor. Absolute seeks beyond the known device size
// fail with [ErrInvalidOffset] before touching the descriptor; a size of 0
// (unknown, some character devices) disables the bounds check.
func (d *real) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekStart {
		if offset < 0 || (d.size > 0 && offset > d.size) {
			return 0, fmt.Errorf("%w: seek to %d, device size %d", ErrInvalidOffset, offset, d.size)
		}
	}

	pos, err := d.f.Seek(offset, whence)
	if err != nil {
		return pos, fmt.Errorf("seek %s: %w", d.path, err)
	}

	return pos, nil
}

func (d *real) Sync() error {
	return d.f.Sync()
}

func (d *real) Close() error {
	return d.f.Close()
}

func (d *real) Size() int64 { return d.size }

func (d *real) SectorSize() int { return d.sector }

func (d *real) Path() string { return d.path }

var _ Handle = (*real)(nil)
