// Package atomicfile writes files so that readers see either the previous or
// the complete new content, never a partial file.
package atomicfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// CopyFile atomically installs a copy of src at dst with mode perm.
func CopyFile(dst, src string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()
	return WriteReader(dst, in, perm)
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	return WriteReader(path, bytes.NewReader(data), perm)
}

// WriteReader streams r into a temporary file next to dst and renames it
// over dst once complete.
func WriteReader(dst string, r io.Reader, perm os.FileMode) error {
	return writeReader(dst, r, perm)
}

// Symlink points link at target, replacing whatever link currently is.
// Nothing is done when link already resolves to target.
func Symlink(target, link string) error {
	if current, err := os.Readlink(link); err == nil && current == target {
		return nil
	}
	return symlink(target, link)
}
