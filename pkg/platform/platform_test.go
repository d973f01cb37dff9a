package platform

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

func TestNew(t *testing.T) {
	tests := []struct {
		os, arch string
		want     Platform
	}{
		{"linux", "amd64", Platform{Linux, "amd64"}},
		{"darwin", "arm64", Platform{Darwin, "aarch64"}},
		{"macosx", "amd64", Platform{Darwin, "amd64"}},
		{"windows", "386", Platform{Windows, "i386"}},
		{"sunos", "sparc64", Platform{Solaris, "sparcv9"}},
	}
	for _, tt := range tests {
		t.Run(tt.os+"-"+tt.arch, func(t *testing.T) {
			p, err := New(tt.os, tt.arch)
			require.NoError(t, err)
			require.Equal(t, tt.want, p)
		})
	}

	_, err := New("plan9", "amd64")
	require.ErrorIs(t, err, jerrors.ErrUnsupportedPlatform)
	_, err = New("linux", "")
	require.ErrorIs(t, err, jerrors.ErrUnsupportedPlatform)
}

func TestTreeLayout(t *testing.T) {
	root := filepath.Join("jdks", "linux-amd64")
	tests := []struct {
		name   string
		p      Platform
		tree   string
		libDir string
		cfg    string
		jvm    string
		debug  string
		java   string
	}{
		{
			name:   "linux",
			p:      Platform{Linux, "amd64"},
			tree:   filepath.Join(root, "product"),
			libDir: filepath.Join(root, "product", "jre", "lib", "amd64"),
			cfg:    filepath.Join(root, "product", "jre", "lib", "amd64", "jvm.cfg"),
			jvm:    "libjvm.so",
			debug:  "libjvm.debuginfo",
			java:   filepath.Join(root, "product", "bin", "java"),
		},
		{
			name:   "darwin",
			p:      Platform{Darwin, "amd64"},
			tree:   filepath.Join(root, "product", "Contents", "Home"),
			libDir: filepath.Join(root, "product", "Contents", "Home", "jre", "lib"),
			cfg:    filepath.Join(root, "product", "Contents", "Home", "jre", "lib", "jvm.cfg"),
			jvm:    "libjvm.dylib",
			debug:  "libjvm.dylib.dSYM",
			java:   filepath.Join(root, "product", "Contents", "Home", "bin", "java"),
		},
		{
			name:   "windows",
			p:      Platform{Windows, "amd64"},
			tree:   filepath.Join(root, "product"),
			libDir: filepath.Join(root, "product", "jre", "bin"),
			cfg:    filepath.Join(root, "product", "jre", "lib", "amd64", "jvm.cfg"),
			jvm:    "jvm.dll",
			debug:  "jvm.pdb",
			java:   filepath.Join(root, "product", "bin", "java.exe"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := tt.p.JdkTreeRoot(root, variant.Product)
			require.Equal(t, tt.tree, tree)
			require.Equal(t, tt.libDir, tt.p.VMLibDir(tree))
			require.Equal(t, tt.cfg, tt.p.JvmCfgFile(tree))
			require.Equal(t, tt.jvm, tt.p.Lib("jvm"))
			require.Equal(t, tt.debug, tt.p.DebugLib("jvm"))
			require.Equal(t, tt.java, tt.p.JavaExecutable(tree))
			require.Equal(t, filepath.Join(root, "product"), tt.p.BundleRoot(tree))
		})
	}
}

func TestPlatformTraits(t *testing.T) {
	darwin := Platform{Darwin, "amd64"}
	linux := Platform{Linux, "amd64"}
	cygwin := Platform{Cygwin, "amd64"}

	require.False(t, darwin.SupportsVM(variant.Client))
	require.True(t, linux.SupportsVM(variant.Client))
	require.Equal(t, "bsd", darwin.HotSpotOS())
	require.Equal(t, "linux", linux.HotSpotOS())
	require.True(t, cygwin.IsWindows())
	require.True(t, cygwin.HasPOSIXPermissions())
	require.Equal(t, "java.exe", cygwin.Exe("java.exe"))
	require.Equal(t, "linux-amd64", linux.String())
	require.Equal(t, []string{
		filepath.Join("t", "jre", "lib", "amd64", "jli"),
		filepath.Join("t", "lib", "amd64", "jli"),
	}, linux.JliLibDirs("t"))
}
