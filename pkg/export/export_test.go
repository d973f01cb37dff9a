package export

import (
	"archive/tar"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/jvmci/go/jvmci/pkg/archive"
	"github.com/provide-io/jvmci/go/jvmci/pkg/jdk"
	"github.com/provide-io/jvmci/go/jvmci/pkg/platform"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func members(t *testing.T, path string) (names []string, infos map[string]Info) {
	t.Helper()
	infos = map[string]Info{}
	require.NoError(t, archive.Walk(path, func(h *tar.Header, body io.Reader) error {
		if h.Typeflag == tar.TypeDir {
			return nil
		}
		names = append(names, h.Name)
		if strings.HasSuffix(h.Name, ".json") {
			var info Info
			if err := json.NewDecoder(body).Decode(&info); err != nil {
				return err
			}
			infos[h.Name] = info
		}
		return nil
	}))
	sort.Strings(names)
	return names, infos
}

func TestExport(t *testing.T) {
	root := t.TempDir()
	in := &jdk.Installation{
		Dir:      filepath.Join(root, "jdks"),
		Platform: platform.Platform{Family: platform.Linux, Arch: "amd64"},
		Logger:   hclog.NewNullLogger(),
	}
	tree := in.TreeDir("product")
	writeFile(t, filepath.Join(tree, "bin", "java"), "java")
	writeFile(t, filepath.Join(tree, "release"), "SOURCE=\"\"\n")
	writeFile(t, filepath.Join(tree, "jre", "lib", "amd64", "server", "libjvm.so"), "jvmci")
	writeFile(t, filepath.Join(tree, "jre", "lib", "amd64", "server", "libjvm.debuginfo"), "symbols")
	writeFile(t, filepath.Join(tree, "jre", "lib", "amd64", "original", "libjvm.so"), "stock")

	codec, err := archive.Get("gz")
	require.NoError(t, err)
	e := &Exporter{
		Installation: in,
		OutDir:       filepath.Join(root, "out"),
		Codec:        codec,
		Info:         NewInfo("abc123", "1.8.0_141", "amd64", "linux", time.Unix(1500000000, 0)),
		Logger:       hclog.NewNullLogger(),
	}

	written, err := e.Export(context.Background())
	require.NoError(t, err)
	for i, p := range written {
		written[i] = filepath.Base(p)
	}
	sort.Strings(written)
	require.Equal(t, []string{
		"graalvm_basejdk_abc123_linux_amd64_product.tar.gz",
		"graalvm_debugfilesvm_abc123_linux_amd64_product_server.tar.gz",
		"graalvm_vm_abc123_linux_amd64_product_original.tar.gz",
		"graalvm_vm_abc123_linux_amd64_product_server.tar.gz",
	}, written)

	names, infos := members(t, filepath.Join(e.OutDir, "graalvm_basejdk_abc123_linux_amd64_product.tar.gz"))
	require.Equal(t, []string{"export-basejdk-product.json", "product/bin/java", "product/release"}, names)
	require.Equal(t, "product", infos["export-basejdk-product.json"].VMBuild)
	require.Equal(t, float64(1500000000), infos["export-basejdk-product.json"].Timestamp)

	names, infos = members(t, filepath.Join(e.OutDir, "graalvm_vm_abc123_linux_amd64_product_server.tar.gz"))
	require.Equal(t, []string{"export-vm-product-server.json", "product/jre/lib/amd64/server/libjvm.so"}, names)
	require.Equal(t, "server", infos["export-vm-product-server.json"].VM)

	names, _ = members(t, filepath.Join(e.OutDir, "graalvm_debugfilesvm_abc123_linux_amd64_product_server.tar.gz"))
	require.Equal(t, []string{"export-debugfilesvm-product-server.json", "product/jre/lib/amd64/server/libjvm.debuginfo"}, names)
}

func TestExportNoTrees(t *testing.T) {
	root := t.TempDir()
	codec, err := archive.Get("xz")
	require.NoError(t, err)
	e := &Exporter{
		Installation: &jdk.Installation{Dir: filepath.Join(root, "missing"), Logger: hclog.NewNullLogger()},
		OutDir:       filepath.Join(root, "out"),
		Codec:        codec,
		Logger:       hclog.NewNullLogger(),
	}
	written, err := e.Export(context.Background())
	require.NoError(t, err)
	require.Empty(t, written)
}
