package hotspot

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/jvmci/go/jvmci/pkg/archive"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

func TestOutputDir(t *testing.T) {
	b := testBuilder(linux)
	require.Equal(t,
		filepath.Join("/work/jvmci", "build", "linux", "linux_amd64_compiler2", "product"),
		b.OutputDir(variant.Server, variant.Product))
	require.Equal(t,
		filepath.Join("/work/jvmci", "build", "bsd", "bsd_amd64_compiler2", "fastdebug"),
		testBuilder(darwin).OutputDir(variant.Server, variant.FastDebug))
}

func TestPack(t *testing.T) {
	suite := t.TempDir()
	b := NewBuilder(suite, linux, "/jdk", hclog.NewNullLogger())
	out := b.OutputDir(variant.Server, variant.Product)
	files := map[string]string{
		"libjvm.so":                         "jvm",
		"libjvm.debuginfo":                  "jvm-debug",
		"libjsig.so":                        "jsig",
		"sa-jdi.jar":                        "sa",
		"generated/jvmtifiles/jvmti.h":      "jvmti",
		"generated/jvmtifiles/jvmtiEnter.o": "ignored",
		"other/libjvm.so":                   "second match",
	}
	for rel, content := range files {
		p := filepath.Join(out, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	dst := filepath.Join(t.TempDir(), "jvm-product-server.tar.gz")
	require.NoError(t, b.Pack(variant.Server, variant.Product, dst, archive.MustGet(archive.Gzip)))

	got := map[string]string{}
	require.NoError(t, archive.Walk(dst, func(h *tar.Header, body io.Reader) error {
		data, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		got[h.Name] = string(data)
		return nil
	}))
	require.Equal(t, map[string]string{
		"jvmti.h":          "jvmti",
		"sa-jdi.jar":       "sa",
		"libjvm.so":        "jvm",
		"libjvm.debuginfo": "jvm-debug",
		"libjsig.so":       "jsig",
	}, got)
}

func TestPackRequiresJVM(t *testing.T) {
	suite := t.TempDir()
	b := NewBuilder(suite, linux, "/jdk", hclog.NewNullLogger())
	out := b.OutputDir(variant.Server, variant.Product)
	require.NoError(t, os.MkdirAll(out, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "libjsig.so"), []byte("x"), 0o644))

	dst := filepath.Join(t.TempDir(), "vm.tar")
	err := b.Pack(variant.Server, variant.Product, dst, archive.MustGet(archive.None))
	require.ErrorContains(t, err, "libjvm.so not found")
	require.NoFileExists(t, dst)
}
