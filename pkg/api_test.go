package pkg

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/provide-io/jvmci/go/jvmci/pkg/config"
	"github.com/provide-io/jvmci/go/jvmci/pkg/deploy"
	"github.com/provide-io/jvmci/go/jvmci/pkg/hotspot"
	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
	"github.com/provide-io/jvmci/go/jvmci/pkg/platform"
	"github.com/provide-io/jvmci/go/jvmci/pkg/release"
	"github.com/provide-io/jvmci/go/jvmci/pkg/selection"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

var linux = platform.Platform{Family: platform.Linux, Arch: "amd64"}

type fixture struct {
	suite  string
	home   string
	builds int
	s      *Session
}

func write(t *testing.T, path, content string, perm os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fixture uses a linux JDK layout")
	}
	f := &fixture{suite: t.TempDir()}

	f.home = filepath.Join(t.TempDir(), "jdk1.8.0_141")
	libDir := filepath.Join(f.home, "jre", "lib", "amd64")
	write(t, filepath.Join(libDir, "server", "libjvm.so"), "original jvm", 0o755)
	write(t, filepath.Join(libDir, "jli", "libjli.so"), "jli", 0o755)
	write(t, filepath.Join(libDir, "jvm.cfg"), "-server KNOWN\n-client IGNORE\n", 0o444)
	write(t, filepath.Join(f.home, "bin", "java"), "#!/bin/sh\n", 0o755)
	write(t, filepath.Join(f.home, "release"), "JAVA_VERSION=\"1.8.0_141\"\nSOURCE=\"hotspot:abc123 openjdk:def456\"\n", 0o644)

	write(t, filepath.Join(f.suite, config.SuiteMarkerDir, config.ConfigFileName),
		"java_home: "+f.home+"\nhsdis:\n  disable: true\n", 0o644)
	src := filepath.Join(f.suite, "src", "share", "vm", "jvmci.cpp")
	write(t, src, "// vm", 0o644)
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, old, old))

	dists := filepath.Join(f.suite, config.DefaultOutput, config.DefaultDistsDir)
	write(t, filepath.Join(dists, "jvmci-services.jar"), "services", 0o644)
	write(t, filepath.Join(dists, "jvmci-api.jar"), "api", 0o644)

	cfg, err := config.Load(f.suite, "")
	require.NoError(t, err)
	cfg.JavaHome = f.home
	cfg.DistsDir = dists
	cfg.SymlinkDeploy = false

	p := linux
	s, err := Open(Options{Config: cfg, Platform: &p, Logger: hclog.NewNullLogger(), Stdout: io.Discard, Stderr: io.Discard})
	require.NoError(t, err)
	s.Selection.InstalledJDKs = ""
	s.Locator.VersionOutput = func(context.Context, string) (string, error) {
		return `openjdk version "1.8.0_292"`, nil
	}
	s.VCS.Run = func(context.Context, string, string, ...string) (string, error) {
		return "", errors.New("no version control")
	}
	s.Run = func(context.Context, hotspot.Command, io.Writer, io.Writer) error {
		f.builds++
		active := s.Selection.Snapshot()
		out := filepath.Join(f.suite, "build", "linux", "linux_amd64_"+active.VM.HotSpotName(), string(active.Build))
		require.NoError(t, os.MkdirAll(out, 0o755))
		return os.WriteFile(filepath.Join(out, "libjvm.so"), []byte("built "+string(active.VM)+" jvm"), 0o755)
	}
	f.s = s
	return f
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestBuildEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.s.Build(ctx, nil, false))
	require.Equal(t, 1, f.builds)

	tree, err := f.s.JDKHome(ctx, false)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(f.suite, "openjdk1.8.0_292", "linux-amd64", "product"), tree)

	libDir := filepath.Join(tree, "jre", "lib", "amd64")
	require.Equal(t, "built server jvm", readFile(t, filepath.Join(libDir, "server", "libjvm.so")))
	require.Equal(t, "original jvm", readFile(t, filepath.Join(libDir, "original", "libjvm.so")))
	require.Equal(t, "services", readFile(t, filepath.Join(tree, "jre", "lib", "jvmci-services.jar")))
	require.Equal(t, "api", readFile(t, filepath.Join(tree, "jre", "lib", "jvmci", "jvmci-api.jar")))

	rev, ok := release.Revision([]byte(readFile(t, filepath.Join(tree, release.FileName))))
	require.True(t, ok)
	require.Equal(t, release.UnknownRevision, rev)

	decision, err := f.s.NeedsRebuild()
	require.NoError(t, err)
	require.False(t, decision.Needed, decision.String())

	// nothing changed, so the second build only redeploys
	require.NoError(t, f.s.Build(ctx, nil, false))
	require.Equal(t, 1, f.builds)

	require.NoError(t, f.s.VerifyTrees(ctx))
}

func TestBuildSkipsForbiddenVM(t *testing.T) {
	f := newFixture(t)
	restore := f.s.Selection.Push(selection.Override{VM: variant.Original})
	defer restore()

	require.NoError(t, f.s.Build(context.Background(), nil, false))
	require.Zero(t, f.builds)
}

func TestRunVMWithoutTree(t *testing.T) {
	f := newFixture(t)
	err := f.s.RunVM(context.Background(), []string{"-version"}, "")
	missing, ok := jerrors.IsMissingInstallation(err)
	require.True(t, ok)
	require.Equal(t, "product", missing.Build)
	require.Equal(t, ExitMissingInstallation, ExitCode(err))
}

func TestBuildVMs(t *testing.T) {
	f := newFixture(t)
	results, err := f.s.BuildVMs(context.Background(), BuildVMsOptions{
		VMs:    []variant.VM{variant.Server, variant.Original},
		Builds: []variant.BuildKind{variant.Product},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 1, f.builds)
	require.FileExists(t, filepath.Join(f.suite, "server-product.log"))
	require.Equal(t, variant.Server, f.s.Selection.VM, "selection restored")
}

func TestBuildVMsChecksClient(t *testing.T) {
	f := newFixture(t)
	results, err := f.s.BuildVMs(context.Background(), BuildVMsOptions{
		VMs:    []variant.VM{variant.Client},
		Builds: []variant.BuildKind{variant.Product},
		Check:  true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	tree := filepath.Join(f.suite, "openjdk1.8.0_292", "linux-amd64", "product")
	libDir := filepath.Join(tree, "jre", "lib", "amd64")
	require.Equal(t, "built client jvm", readFile(t, filepath.Join(libDir, "client", "libjvm.so")))
	require.Equal(t, "-server KNOWN\n-client KNOWN\n-original KNOWN\n", readFile(t, filepath.Join(libDir, "jvm.cfg")))

	restore := f.s.Selection.Push(selection.Override{VM: variant.Client})
	defer restore()
	require.NoError(t, f.s.RunVM(context.Background(), []string{"-version"}, ""))
}

func TestBuildDeploysNewTreeOnce(t *testing.T) {
	f := newFixture(t)
	var out bytes.Buffer
	f.s.Logger = hclog.New(&hclog.LoggerOptions{Output: &out, Level: hclog.Debug})

	require.NoError(t, f.s.Build(context.Background(), nil, false))
	require.Equal(t, 1, strings.Count(out.String(), "dist="+deploy.JVMCIAPI+" "), out.String())
}

func TestNewSelection(t *testing.T) {
	sel, err := NewSelection(&config.Config{VM: "graal", VMBuild: "fastdebug"})
	require.NoError(t, err)
	require.Equal(t, variant.Server, sel.VM)
	require.Equal(t, variant.FastDebug, sel.Build)
	require.Equal(t, variant.JIT, sel.Mode)

	sel, err = NewSelection(&config.Config{VM: "graal", JVMCIMode: "disabled"})
	require.NoError(t, err)
	require.Equal(t, variant.Disabled, sel.Mode)

	_, err = NewSelection(&config.Config{VMBuild: "fast"})
	require.ErrorIs(t, err, jerrors.ErrUnknownBuildKind)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitFailure},
		{jerrors.ErrNoBootstrapJDK, ExitBootstrapError},
		{errors.Join(errors.New("a"), jerrors.ErrBuildFailed), ExitBuildError},
		{&jerrors.MissingInstallationError{Build: "product", VM: "server"}, ExitMissingInstallation},
		{jerrors.ErrLocked, ExitLocked},
		{ErrVerificationFailed, ExitVerificationFailed},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}
