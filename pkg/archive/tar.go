// SPDX-License-Identifier: Apache-2.0
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/provide-io/jvmci/go/jvmci/internal/atomicfile"
)

// ErrStop ends a Walk early without reporting an error.
var ErrStop = errors.New("stop walking archive")

// WalkFunc is called for every member of an archive. body is only valid
// until the function returns.
type WalkFunc func(h *tar.Header, body io.Reader) error

// Walk opens the archive at path, picking the codec from its name, and
// calls fn for each member in order.
func Walk(archivePath string, fn WalkFunc) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	if err := WalkReader(f, Detect(archivePath), fn); err != nil {
		return fmt.Errorf("reading %s: %w", archivePath, err)
	}
	return nil
}

// WalkReader is Walk over an already open stream.
func WalkReader(r io.Reader, codec Codec, fn WalkFunc) error {
	cr, err := codec.NewReader(r)
	if err != nil {
		return err
	}
	defer cr.Close()

	tr := tar.NewReader(cr)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar header: %w", err)
		}
		if h.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		if err := fn(h, tr); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}

// MemberBase returns the last element of a member name, ignoring any
// trailing slash.
func MemberBase(name string) string {
	return path.Base(strings.TrimSuffix(name, "/"))
}

// Writer builds a tar archive streamed through a codec.
type Writer struct {
	tw *tar.Writer
	cw io.WriteCloser
}

// NewWriter starts an archive written to w.
func NewWriter(w io.Writer, codec Codec) (*Writer, error) {
	cw, err := codec.NewWriter(w)
	if err != nil {
		return nil, err
	}
	return &Writer{tw: tar.NewWriter(cw), cw: cw}, nil
}

// Close flushes the tar stream and the codec. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if err := w.tw.Close(); err != nil {
		w.cw.Close()
		return fmt.Errorf("closing tar writer: %w", err)
	}
	return w.cw.Close()
}

// AddFile adds the file or symlink at src under the member name arcname.
func (w *Writer) AddFile(src, arcname string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	return w.add(src, filepath.ToSlash(arcname), info)
}

// AddData adds an in-memory regular file.
func (w *Writer) AddData(arcname string, data []byte, mode os.FileMode) error {
	h := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     arcname,
		Mode:     int64(mode.Perm()),
		Size:     int64(len(data)),
		ModTime:  time.Now(),
	}
	if err := w.tw.WriteHeader(h); err != nil {
		return fmt.Errorf("writing header for %s: %w", arcname, err)
	}
	_, err := w.tw.Write(data)
	return err
}

// Filter decides whether rel (slash separated, relative to the tree root)
// belongs in the archive. Returning false for a directory skips it entirely.
type Filter func(rel string, d fs.DirEntry) bool

// AddTree adds everything below root, with member names prefixed by prefix.
// A nil filter includes everything.
func (w *Writer) AddTree(root, prefix string, include Filter) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if include != nil && !include(rel, d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return w.add(p, path.Join(prefix, rel), info)
	})
}

func (w *Writer) add(src, arcname string, info fs.FileInfo) error {
	link := ""
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(src)
		if err != nil {
			return err
		}
		link = target
	}
	h, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	h.Name = arcname
	if info.IsDir() {
		h.Name += "/"
	}
	if err := w.tw.WriteHeader(h); err != nil {
		return fmt.Errorf("writing header for %s: %w", arcname, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(w.tw, f); err != nil {
		return fmt.Errorf("writing %s: %w", arcname, err)
	}
	return nil
}

// Create writes a new archive at dst. The archive only appears at dst once
// fill has returned successfully.
func Create(dst string, codec Codec, fill func(*Writer) error) error {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := atomicfile.WriteReader(dst, pr, 0o644)
		// unblock the writer if the file side gave up early
		pr.CloseWithError(err)
		done <- err
	}()

	err := func() error {
		w, err := NewWriter(pw, codec)
		if err != nil {
			return err
		}
		if err := fill(w); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	}()
	// An error here makes the reader side fail, which discards the temp file.
	pw.CloseWithError(err)
	if werr := <-done; err == nil {
		err = werr
	}
	return err
}
