//go:build linux

package device

import (
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// geometry probes capacity and logical sector size.
//
// Block devices answer the BLK* ioctls. Character devices (the original
// target /dev/nvme0 is one) usually do not, so the size falls back to a
// seek to the end, and failing that is reported as unknown (0).
func geometry(f *os.File, fi os.FileInfo) (int64, int, error) {
	if !isDeviceNode(fi) {
		return fi.Size(), DefaultSectorSize, nil
	}

	sector := DefaultSectorSize
	if ssz, err := blkSectorSize(f.Fd()); err == nil && ssz > 0 {
		sector = ssz
	}

	if size, err := blkSize64(f.Fd()); err == nil && size > 0 {
		return size, sector, nil
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, sector, nil // size unknown, not fatal
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, sector, err
	}

	return size, sector, nil
}

// blkSize64 issues BLKGETSIZE64, which writes a u64 byte count.
func blkSize64(fd uintptr) (int64, error) {
	var size uint64

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size))); errno != 0 {
		return 0, errno
	}

	return int64(size), nil
}

// blkSectorSize issues BLKSSZGET, which writes an int logical sector size.
func blkSectorSize(fd uintptr) (int, error) {
	var ssz int32

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, unix.BLKSSZGET, uintptr(unsafe.Pointer(&ssz))); errno != 0 {
		return 0, errno
	}

	return int(ssz), nil
}

// ReadOnlyDevice reports whether the kernel marks the block device behind
// h read-only (BLKROGET). False for anything that is not a block device.
func ReadOnlyDevice(h Handle) bool {
	d, ok := h.(*real)
	if !ok {
		return false
	}

	fi, err := d.f.Stat()
	if err != nil || !isDeviceNode(fi) {
		return false
	}

	var ro int32
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), unix.BLKROGET, uintptr(unsafe.Pointer(&ro))); errno != 0 {
		return false
	}

	return ro != 0
}
