// package fileutils provides utility methods to copy and move JDK trees.
package fileutils

import (
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// CopyTree copies the directory src to dst, which must not exist.
// Symbolic links are recreated, not followed. Modes are preserved.
func CopyTree(dst, src string) error {
	if _, err := os.Lstat(dst); err == nil {
		return errors.Errorf("copytree: %q already exists", dst)
	}
	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch mode := info.Mode(); {
		case mode&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return errors.Wrapf(err, "copytree: readlink(%q)", path)
			}
			return os.Symlink(link, target)
		case mode.IsDir():
			// owner write is needed to populate the copy; modes are fixed up later
			return os.MkdirAll(target, mode.Perm()|0o700)
		case mode.IsRegular():
			return Copyfile(target, path, mode.Perm())
		default:
			// sockets, devices: nothing a JDK ships
			return nil
		}
	})
	if err != nil {
		// if there was an error during copying, remove the partial copy.
		RemoveAll(dst)
	}
	return err
}

// Copyfile copies a single regular file, creating parent directories.
func Copyfile(dst, src string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrap(err, "copyfile: mkdirall")
	}
	r, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "copyfile: open(%q)", src)
	}
	defer r.Close()
	w, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return errors.Wrapf(err, "copyfile: create(%q)", dst)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return errors.Wrapf(err, "copyfile: copy(%q)", src)
	}
	return w.Close()
}

// ChmodDirs sets mode on root and every directory below it. Symlinks are
// not followed.
func ChmodDirs(root string, mode os.FileMode) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return os.Chmod(path, mode)
		}
		return nil
	})
}

// Move renames src to dst, falling back to copy and delete across devices.
func Move(dst, src string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		err = CopyTree(dst, src)
	} else {
		err = Copyfile(dst, src, info.Mode().Perm())
	}
	if err != nil {
		return errors.Wrapf(err, "move %q -> %q", src, dst)
	}
	return RemoveAll(src)
}

// Exists reports whether path exists (without following a final symlink).
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// RemoveAll removes path and any children it contains. Unlike os.RemoveAll it
// deletes read only files on Windows.
func RemoveAll(path string) error {
	if runtime.GOOS == "windows" {
		// Simple case: if Remove works, we're done.
		err := os.Remove(path)
		if err == nil || os.IsNotExist(err) {
			return nil
		}
		// make sure all files are writable so we can delete them
		filepath.Walk(path, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				// walk gave us some error, give it back.
				return err
			}
			mode := info.Mode()
			if mode|0200 == mode {
				return nil
			}
			return os.Chmod(path, mode|0200)
		})
	}
	return os.RemoveAll(path)
}
