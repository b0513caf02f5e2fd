//go:build linux

package device

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Info describes a candidate block device found under sysfs.
type Info struct {
	Name string
	Path string
	Size int64
}

// List enumerates block devices from sysBlock (normally "/sys/block"),
// skipping loop and ram devices. The parameter exists so tests can point
// at a fabricated sysfs tree.
func List(sysBlock string) ([]Info, error) {
	entries, err := os.ReadDir(sysBlock)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", sysBlock, err)
	}

	var devices []Info

	for _, entry := range entries {
		name := entry.Name()

		if strings.HasPrefix(name, "loop") || strings.HasPrefix(name, "ram") {
			continue
		}

		sizeData, err := os.ReadFile(filepath.Join(sysBlock, name, "size"))
		if err != nil {
			continue
		}

		// sysfs size is in 512-byte sectors regardless of the logical
		// sector size.
		sectors, err := strconv.ParseInt(strings.TrimSpace(string(sizeData)), 10, 64)
		if err != nil {
			continue
		}

		devices = append(devices, Info{
			Name: name,
			Path: filepath.Join("/dev", name),
			Size: sectors * 512,
		})
	}

	return devices, nil
}
