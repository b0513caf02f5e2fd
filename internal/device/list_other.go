//go:build !linux

package device

import "errors"

// Info describes a candidate block device.
type Info struct {
	Name string
	Path string
	Size int64
}

// List is only implemented on Linux.
func List(string) ([]Info, error) {
	return nil, errors.ErrUnsupported
}
