package staleness

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

var sourceDirs = []string{"src", "make"}

type suite struct {
	dir      string
	baseline string
	checker  *Checker
}

func newSuite(t *testing.T) *suite {
	t.Helper()
	dir := t.TempDir()
	old := time.Now().Add(-time.Hour)
	for _, f := range []string{
		"src/share/vm/runtime/thread.cpp",
		"src/share/tools/hsdis/hsdis.c",
		"make/Makefile",
	} {
		p := filepath.Join(dir, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0o644))
		require.NoError(t, os.Chtimes(p, old, old))
	}
	baseline := filepath.Join(dir, "mxbuild", "jvm-product-server.tar")
	require.NoError(t, os.MkdirAll(filepath.Dir(baseline), 0o755))
	require.NoError(t, os.WriteFile(baseline, nil, 0o644))

	ex, err := NewExclusions(sourceDirs, "src/share/tools")
	require.NoError(t, err)
	return &suite{
		dir:      dir,
		baseline: baseline,
		checker:  &Checker{SuiteDir: dir, SourceDirs: sourceDirs, Exclusions: ex, Logger: hclog.NewNullLogger()},
	}
}

func (s *suite) touch(t *testing.T, rel string, when time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(filepath.Join(s.dir, filepath.FromSlash(rel)), when, when))
}

func TestNeedsRebuild(t *testing.T) {
	s := newSuite(t)

	d, err := s.checker.NeedsRebuild("")
	require.NoError(t, err)
	require.Equal(t, Decision{Needed: true, Reason: "no baseline"}, d)

	d, err = s.checker.NeedsRebuild(filepath.Join(s.dir, "missing.tar"))
	require.NoError(t, err)
	require.True(t, d.Needed)
	require.Contains(t, d.Reason, "does not exist")

	d, err = s.checker.NeedsRebuild(s.baseline)
	require.NoError(t, err)
	require.False(t, d.Needed, d.Reason)
}

func TestNeedsRebuildMonotonic(t *testing.T) {
	s := newSuite(t)
	now := time.Now()

	s.touch(t, "make/Makefile", now.Add(time.Minute))
	d, err := s.checker.NeedsRebuild(s.baseline)
	require.NoError(t, err)
	require.True(t, d.Needed)
	require.Contains(t, d.Reason, "Makefile")

	// touching more sources keeps the decision
	s.touch(t, "src/share/vm/runtime/thread.cpp", now.Add(2*time.Minute))
	d, err = s.checker.NeedsRebuild(s.baseline)
	require.NoError(t, err)
	require.True(t, d.Needed)

	// a newer baseline settles it
	s.touch(t, "mxbuild/jvm-product-server.tar", now.Add(time.Hour))
	d, err = s.checker.NeedsRebuild(s.baseline)
	require.NoError(t, err)
	require.False(t, d.Needed, d.Reason)
}

func TestNeedsRebuildIgnoresExclusions(t *testing.T) {
	s := newSuite(t)
	s.touch(t, "src/share/tools/hsdis/hsdis.c", time.Now().Add(time.Hour))

	d, err := s.checker.NeedsRebuild(s.baseline)
	require.NoError(t, err)
	require.False(t, d.Needed, d.Reason)

	s.checker.Exclusions = Exclusions{}
	d, err = s.checker.NeedsRebuild(s.baseline)
	require.NoError(t, err)
	require.True(t, d.Needed)
}

func TestNeedsRebuildMissingSourceDir(t *testing.T) {
	s := newSuite(t)
	s.checker.SourceDirs = append(s.checker.SourceDirs, "jvmci/jdk.vm.ci.hotspot/src_gen/hotspot")
	d, err := s.checker.NeedsRebuild(s.baseline)
	require.NoError(t, err)
	require.False(t, d.Needed, d.Reason)
}

func TestNewExclusions(t *testing.T) {
	tests := []struct {
		name    string
		paths   []string
		wantErr bool
	}{
		{"default", []string{"src/share/tools"}, false},
		{"windows separators", []string{`src\os\solaris`}, filepath.Separator != '\\'},
		{"absolute", []string{"/src/share/tools"}, true},
		{"escapes suite", []string{"../src/share"}, true},
		{"outside source dirs", []string{"docs/old"}, true},
		{"whole source dir", []string{"src"}, true},
		{"empty", []string{""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExclusions(sourceDirs, tt.paths...)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestExclusionsAdd(t *testing.T) {
	ex, err := NewExclusions(sourceDirs, "src/share/tools")
	require.NoError(t, err)
	ex, err = ex.Add(sourceDirs, "src/os/windows")
	require.NoError(t, err)
	require.Equal(t, 2, ex.Len())
	require.True(t, ex.Contains("src/share/tools"))
	require.True(t, ex.Contains("src/os/windows"))

	_, err = ex.Add(sourceDirs, "../x")
	require.Error(t, err)
}

func TestNeedsRebuildFollowsLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	t.Run("linked file", func(t *testing.T) {
		s := newSuite(t)
		target := filepath.Join(t.TempDir(), "generated.cpp")
		require.NoError(t, os.WriteFile(target, nil, 0o644))
		future := time.Now().Add(time.Hour)
		require.NoError(t, os.Chtimes(target, future, future))
		require.NoError(t, os.Symlink(target, filepath.Join(s.dir, "src", "share", "vm", "generated.cpp")))

		d, err := s.checker.NeedsRebuild(s.baseline)
		require.NoError(t, err)
		require.True(t, d.Needed)
		require.Contains(t, d.Reason, filepath.Join("src", "share", "vm", "generated.cpp"))
	})

	t.Run("linked source dir", func(t *testing.T) {
		s := newSuite(t)
		outside := t.TempDir()
		require.NoError(t, os.Rename(filepath.Join(s.dir, "src"), filepath.Join(outside, "src")))
		require.NoError(t, os.Symlink(filepath.Join(outside, "src"), filepath.Join(s.dir, "src")))

		d, err := s.checker.NeedsRebuild(s.baseline)
		require.NoError(t, err)
		require.False(t, d.Needed, d.Reason)

		s.touch(t, "src/share/vm/runtime/thread.cpp", time.Now().Add(time.Hour))
		d, err = s.checker.NeedsRebuild(s.baseline)
		require.NoError(t, err)
		require.True(t, d.Needed)
		require.Contains(t, d.Reason, filepath.Join(s.dir, "src", "share", "vm", "runtime", "thread.cpp"))
	})

	t.Run("exclusions apply through a linked source dir", func(t *testing.T) {
		s := newSuite(t)
		outside := t.TempDir()
		require.NoError(t, os.Rename(filepath.Join(s.dir, "src"), filepath.Join(outside, "src")))
		require.NoError(t, os.Symlink(filepath.Join(outside, "src"), filepath.Join(s.dir, "src")))
		s.touch(t, "src/share/tools/hsdis/hsdis.c", time.Now().Add(time.Hour))

		d, err := s.checker.NeedsRebuild(s.baseline)
		require.NoError(t, err)
		require.False(t, d.Needed, d.Reason)
	})
}
