package hsdis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
	"github.com/provide-io/jvmci/go/jvmci/pkg/platform"
)

var linux = platform.Platform{Family: platform.Linux, Arch: "amd64"}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		p       platform.Platform
		syntax  string
		want    string
		wantErr error
	}{
		{"linux intel", linux, "", "intel/hsdis-amd64-linux-0d031013db9a80d6c88330c42c983fbfa7053193.so", nil},
		{"darwin att", platform.Platform{Family: platform.Darwin, Arch: "amd64"}, "att",
			"att/hsdis-amd64-darwin-c1865e9a58ca773fdc1c5eea0a4dfda213420ffb.dylib", nil},
		{"windows", platform.Platform{Family: platform.Windows, Arch: "amd64"}, "intel",
			"intel/hsdis-amd64-windows-6a388372cdd5fe905c1a26ced614334e405d1f30.dll", nil},
		{"sparc ignores syntax", platform.Platform{Family: platform.Solaris, Arch: "sparcv9"}, "att",
			"hsdis-sparcv9-solaris-970640a9af0bd63641f9063c11275b371a59ee60.so", nil},
		{"aarch64 unavailable", platform.Platform{Family: platform.Linux, Arch: "aarch64"}, "", "", jerrors.ErrHelperUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib, err := Resolve(DefaultSHA1s, tt.p, tt.syntax)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, lib.Path)
		})
	}

	_, err := Resolve(DefaultSHA1s, linux, "arm")
	require.Error(t, err)
}

func sum(data []byte) string {
	h := sha1.Sum(data)
	return hex.EncodeToString(h[:])
}

func testFetcher(t *testing.T, content []byte, declared string) (*Fetcher, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/intel/hsdis-amd64-linux-"+declared+".so" {
			http.NotFound(w, r)
			return
		}
		w.Write(content)
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(linux, Intel, hclog.NewNullLogger())
	f.BaseURL = srv.URL + "/"
	f.CacheDir = t.TempDir()
	f.Client = srv.Client()
	f.Table = map[string]string{"intel/hsdis-amd64-linux-%s.so": declared}
	return f, &hits
}

func TestFetchCaches(t *testing.T) {
	content := []byte("disassembler")
	f, hits := testFetcher(t, content, sum(content))

	path, err := f.Fetch(context.Background())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, content, data)

	_, err = f.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestFetchRejectsChecksumMismatch(t *testing.T) {
	f, _ := testFetcher(t, []byte("tampered"), sum([]byte("original")))

	_, err := f.Fetch(context.Background())
	require.ErrorIs(t, err, jerrors.ErrHelperUnavailable)

	lib, err := Resolve(f.Table, linux, Intel)
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(f.CacheDir, "hsdis", filepath.FromSlash(lib.Path)))
}

func TestInstallInto(t *testing.T) {
	content := []byte("disassembler")
	f, _ := testFetcher(t, content, sum(content))

	dir := t.TempDir()
	require.NoError(t, f.InstallInto(context.Background(), dir))
	data, err := os.ReadFile(filepath.Join(dir, "hsdis-amd64.so"))
	require.NoError(t, err)
	require.Equal(t, content, data)

	// missing target directories are silently skipped
	require.NoError(t, f.InstallInto(context.Background(), filepath.Join(dir, "missing")))
}
