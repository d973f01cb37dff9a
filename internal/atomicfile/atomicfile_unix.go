//go:build !windows

package atomicfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio"
)

// On Unix, rename(2) within a directory is atomic, so renameio does the work.
func writeReader(dst string, r io.Reader, perm os.FileMode) error {
	f, err := renameio.TempFile(filepath.Dir(dst), dst)
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", dst, err)
	}
	defer f.Cleanup()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	if err := f.Chmod(perm); err != nil {
		return fmt.Errorf("chmod %s: %w", dst, err)
	}
	if err := f.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replacing %s: %w", dst, err)
	}
	return nil
}

func symlink(target, link string) error {
	// renameio.Symlink refuses to replace a directory, like os.Rename
	if err := renameio.Symlink(target, link); err != nil {
		return fmt.Errorf("linking %s -> %s: %w", link, target, err)
	}
	return nil
}
