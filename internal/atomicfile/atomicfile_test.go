package atomicfile

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// slowReader hands out its data in small chunks with a pause between them.
type slowReader struct {
	data  []byte
	chunk int
	delay time.Duration
}

func (r *slowReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	time.Sleep(r.delay)
	n := r.chunk
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func TestWriteReaderIsAtomicForConcurrentReaders(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("open readers block MoveFileEx on windows")
	}
	dir := t.TempDir()
	dst := filepath.Join(dir, "jvmci-api.jar")
	oldContent := bytes.Repeat([]byte("o"), 4096)
	newContent := bytes.Repeat([]byte("n"), 4096)
	require.NoError(t, os.WriteFile(dst, oldContent, 0o644))

	var done atomic.Bool
	var wg sync.WaitGroup
	var torn atomic.Int32
	wg.Add(1)
	go func() {
		defer wg.Done()
		for !done.Load() {
			data, err := os.ReadFile(dst)
			if err != nil {
				continue
			}
			if !bytes.Equal(data, oldContent) && !bytes.Equal(data, newContent) {
				torn.Add(1)
			}
		}
	}()

	err := WriteReader(dst, &slowReader{data: newContent, chunk: 256, delay: 2 * time.Millisecond}, 0o644)
	done.Store(true)
	wg.Wait()

	require.NoError(t, err)
	require.Zero(t, torn.Load(), "reader observed a partially written file")
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, newContent, data)
}

func TestCopyFileSetsMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no POSIX modes on windows")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jar")
	require.NoError(t, os.WriteFile(src, []byte("jar"), 0o600))

	dst := filepath.Join(dir, "lib", "dst.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, CopyFile(dst, src, 0o644))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file left behind")
}

func TestSymlinkReplacesFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "dist", "jvmci-services.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, []byte("services"), 0o644))

	link := filepath.Join(dir, "jvmci-services.jar")
	require.NoError(t, os.WriteFile(link, []byte("stale copy"), 0o644))

	require.NoError(t, Symlink(target, link))
	got, err := os.Readlink(link)
	require.NoError(t, err)
	require.Equal(t, target, got)

	// second call is a no-op
	require.NoError(t, Symlink(target, link))
}
