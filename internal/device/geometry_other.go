//go:build !linux

package device

import (
	"io"
	"os"
)

func geometry(f *os.File, fi os.FileInfo) (int64, int, error) {
	if !isDeviceNode(fi) {
		return fi.Size(), DefaultSectorSize, nil
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, DefaultSectorSize, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, DefaultSectorSize, err
	}

	return size, DefaultSectorSize, nil
}

// ReadOnlyDevice always reports false off Linux.
func ReadOnlyDevice(Handle) bool { return false }
