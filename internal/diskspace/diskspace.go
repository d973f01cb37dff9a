// Package diskspace answers whether a copy will fit before it is started.
package diskspace

import (
	"errors"
	"io/fs"
	"path/filepath"
)

// ErrUnsupported is returned where free space cannot be queried.
var ErrUnsupported = errors.New("disk space query not supported on this platform")

// Available returns the bytes available to the caller on the file system
// holding path.
func Available(path string) (int64, error) {
	return available(path)
}

// TreeSize sums the sizes of the regular files below root. Symlinks are not
// followed.
func TreeSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// GB formats a byte count for log output.
func GB(n int64) float64 {
	return float64(n) / (1024 * 1024 * 1024)
}
