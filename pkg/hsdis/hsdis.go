// Package hsdis fetches the prebuilt disassembler plugin HotSpot uses for
// -XX:+PrintAssembly and installs it into JDK trees.
package hsdis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/jvmci/go/jvmci/internal/atomicfile"
	"github.com/provide-io/jvmci/go/jvmci/internal/cache"
	"github.com/provide-io/jvmci/go/jvmci/pkg/config"
	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
	"github.com/provide-io/jvmci/go/jvmci/pkg/platform"
	"github.com/provide-io/jvmci/go/jvmci/pkg/utils/permissions"
)

// Assembly syntax flavors. Only amd64 builds come in more than one.
const (
	Intel = "intel"
	ATT   = "att"
)

// DefaultSHA1s maps library patterns to their checksums. %s is replaced by
// the checksum itself to form the file name on the server.
var DefaultSHA1s = map[string]string{
	"att/hsdis-amd64-windows-%s.dll":    "bcbd535a9568b5075ab41e96205e26a2bac64f72",
	"att/hsdis-amd64-linux-%s.so":       "36a0b8e30fc370727920cc089f104bfb9cd508a0",
	"att/hsdis-amd64-darwin-%s.dylib":   "c1865e9a58ca773fdc1c5eea0a4dfda213420ffb",
	"intel/hsdis-amd64-windows-%s.dll":  "6a388372cdd5fe905c1a26ced614334e405d1f30",
	"intel/hsdis-amd64-linux-%s.so":     "0d031013db9a80d6c88330c42c983fbfa7053193",
	"intel/hsdis-amd64-darwin-%s.dylib": "67f6d23cbebd8998450a88b5bef362171f66f11a",
	"hsdis-sparcv9-solaris-%s.so":       "970640a9af0bd63641f9063c11275b371a59ee60",
	"hsdis-sparcv9-linux-%s.so":         "0c375986d727651dee1819308fbbc0de4927d5d9",
}

// Library is a resolved download.
type Library struct {
	// Path is relative to the base URL, e.g. intel/hsdis-amd64-linux-<sha1>.so.
	Path string
	SHA1 string
}

// Resolve picks the library for p and syntax from table.
func Resolve(table map[string]string, p platform.Platform, syntax string) (Library, error) {
	flavor := ""
	if p.Arch == "amd64" {
		switch strings.ToLower(syntax) {
		case "", Intel:
			flavor = Intel
		case ATT:
			flavor = ATT
		default:
			return Library{}, fmt.Errorf("unknown disassembler syntax %q (expected %s or %s)", syntax, Intel, ATT)
		}
	}
	pattern := "hsdis-" + p.Arch + "-" + p.Family.String() + "-%s" + p.LibSuffix()
	if flavor != "" {
		pattern = flavor + "/" + pattern
	}
	sum, ok := table[pattern]
	if !ok {
		return Library{}, fmt.Errorf("%w: hsdis with flavor %q not supported on %s", jerrors.ErrHelperUnavailable, flavor, p)
	}
	return Library{Path: fmt.Sprintf(pattern, sum), SHA1: sum}, nil
}

// InstalledName is the file name HotSpot looks for next to libjvm.
func InstalledName(p platform.Platform) string {
	return "hsdis-" + p.Arch + p.LibSuffix()
}

// Fetcher downloads libraries into a local cache.
type Fetcher struct {
	Platform platform.Platform
	Syntax   string
	BaseURL  string
	CacheDir string
	Table    map[string]string
	Client   *http.Client
	Logger   hclog.Logger
}

// NewFetcher returns a Fetcher using the public download server and the
// user cache directory.
func NewFetcher(p platform.Platform, syntax string, logger hclog.Logger) *Fetcher {
	return &Fetcher{
		Platform: p,
		Syntax:   syntax,
		BaseURL:  config.DefaultHsdisBaseURL,
		CacheDir: cache.GetCacheRoot(),
		Table:    DefaultSHA1s,
		Client:   &http.Client{Timeout: 5 * time.Minute},
		Logger:   logger.Named("hsdis"),
	}
}

// Fetch returns the path of the verified library in the cache, downloading
// it first if needed.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	lib, err := Resolve(f.Table, f.Platform, f.Syntax)
	if err != nil {
		return "", err
	}
	path, err := cache.Path(f.CacheDir, "hsdis", filepath.FromSlash(lib.Path))
	if err != nil {
		return "", err
	}
	if sum, err := fileSHA1(path); err == nil && sum == lib.SHA1 {
		f.Logger.Debug("Using cached disassembler", "path", path)
		return path, nil
	}

	url := strings.TrimSuffix(f.BaseURL, "/") + "/" + lib.Path
	f.Logger.Info("📥 Downloading disassembler", "url", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", jerrors.ErrHelperUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: GET %s: %s", jerrors.ErrHelperUnavailable, url, resp.Status)
	}

	body := &verifyingReader{r: resp.Body, h: sha1.New(), want: lib.SHA1}
	if err := atomicfile.WriteReader(path, body, permissions.JDKFilePerms); err != nil {
		return "", fmt.Errorf("%w: %v", jerrors.ErrHelperUnavailable, err)
	}
	return path, nil
}

// InstallInto copies the library into dir as InstalledName. Nothing is
// done when dir does not exist.
func (f *Fetcher) InstallInto(ctx context.Context, dir string) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		f.Logger.Debug("Not installing disassembler, no such directory", "dir", dir)
		return nil
	}
	src, err := f.Fetch(ctx)
	if err != nil {
		return err
	}
	dst := filepath.Join(dir, InstalledName(f.Platform))
	if err := atomicfile.CopyFile(dst, src, permissions.JDKFilePerms); err != nil {
		return err
	}
	f.Logger.Debug("Installed disassembler", "path", dst)
	return nil
}

func fileSHA1(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	h := sha1.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// verifyingReader fails at EOF unless the content has the expected digest,
// so a corrupt download is never renamed into the cache.
type verifyingReader struct {
	r    io.Reader
	h    hash.Hash
	want string
}

func (v *verifyingReader) Read(p []byte) (int, error) {
	n, err := v.r.Read(p)
	v.h.Write(p[:n])
	if errors.Is(err, io.EOF) {
		if got := hex.EncodeToString(v.h.Sum(nil)); got != v.want {
			return n, fmt.Errorf("checksum mismatch: got %s, want %s", got, v.want)
		}
	}
	return n, err
}
