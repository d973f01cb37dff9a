// Package archive reads and writes the tar archives produced by the native
// build and consumed by export, with pluggable compression codecs.
package archive

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Codec identifiers.
const (
	None  = "none"
	Gzip  = "gz"
	Bzip2 = "bz2"
	XZ    = "xz"
)

// Codec is a stream compression format.
type Codec interface {
	// Name returns the codec identifier (e.g., Gzip).
	Name() string

	// Extension returns the file suffix including the dot, or "" for none.
	Extension() string

	// NewReader decompresses r.
	NewReader(r io.Reader) (io.ReadCloser, error)

	// NewWriter compresses into w. Closing the writer does not close w.
	NewWriter(w io.Writer) (io.WriteCloser, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Codec)
)

// Register makes a codec available by name.
func Register(c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Name()] = c
}

// Get retrieves a codec by name. Common aliases such as "gzip" and "tgz"
// are accepted.
func Get(name string) (Codec, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[n]; ok {
		n = alias
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[n]
	if !ok {
		return nil, fmt.Errorf("unknown compression %q (supported: %s)", name, strings.Join(namesLocked(), ", "))
	}
	return c, nil
}

// MustGet is Get for names known to be registered.
func MustGet(name string) Codec {
	c, err := Get(name)
	if err != nil {
		panic(err)
	}
	return c
}

// Names lists the registered codecs.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var aliases = map[string]string{
	"":        None,
	"raw":     None,
	"tar":     None,
	"gzip":    Gzip,
	"tgz":     Gzip,
	"tar.gz":  Gzip,
	"bzip2":   Bzip2,
	"tbz2":    Bzip2,
	"tar.bz2": Bzip2,
	"txz":     XZ,
	"tar.xz":  XZ,
}

// Detect picks a codec from a file name. Names with no recognised
// compression suffix are treated as plain tar.
func Detect(filename string) Codec {
	lower := strings.ToLower(filename)
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, c := range registry {
		if ext := c.Extension(); ext != "" && strings.HasSuffix(lower, ext) {
			return c
		}
	}
	switch {
	case strings.HasSuffix(lower, ".tgz"):
		return registry[Gzip]
	case strings.HasSuffix(lower, ".tbz2"):
		return registry[Bzip2]
	case strings.HasSuffix(lower, ".txz"):
		return registry[XZ]
	}
	return registry[None]
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type noneCodec struct{}

func (noneCodec) Name() string      { return None }
func (noneCodec) Extension() string { return "" }

func (noneCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

func (noneCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func init() {
	Register(noneCodec{})
}
