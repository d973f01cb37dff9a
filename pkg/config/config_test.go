package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, suite, body string) {
	t.Helper()
	dir := filepath.Join(suite, SuiteMarkerDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(body), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SYMLINK_GRAAL_JAR", "")
	t.Setenv("HSDIS_SYNTAX", "")
	t.Setenv("JVMCI_OUTPUT_ROOT", "")
	suite := t.TempDir()

	cfg, err := Load(suite, "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(suite, DefaultOutput), cfg.OutputRoot)
	require.Equal(t, filepath.Join(suite, DefaultOutput, DefaultDistsDir), cfg.DistsDir)
	require.Equal(t, DefaultExcludes, cfg.Staleness.Exclude)
	require.False(t, cfg.SymlinkDeploy)

	modes, err := cfg.Modes()
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o644), modes.File)
	require.Equal(t, os.FileMode(0o755), modes.Dir)

	timeout, err := cfg.Timeout()
	require.NoError(t, err)
	require.Zero(t, timeout)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	suite := t.TempDir()
	writeConfig(t, suite, `
vmbuild: fastdebug
installed_jdks: /opt/jdks
build_timeout: 90m
build_vars:
  HOTSPOT_BUILD_JOBS: "4"
staleness:
  exclude_by_os:
    windows: [src/os/solaris]
permissions:
  file: "0664"
`)
	t.Setenv("SYMLINK_GRAAL_JAR", "true")
	t.Setenv("HSDIS_SYNTAX", "att")
	t.Setenv("JVMCI_OUTPUT_ROOT", "")

	cfg, err := Load(suite, "")
	require.NoError(t, err)
	require.Equal(t, "fastdebug", cfg.VMBuild)
	require.Equal(t, "/opt/jdks", cfg.InstalledJDKs)
	require.True(t, cfg.SymlinkDeploy)
	require.Equal(t, "att", cfg.Hsdis.Syntax)
	require.Equal(t, "4", cfg.BuildVars["HOTSPOT_BUILD_JOBS"])
	require.Equal(t, []string{"src/share/tools", "src/os/solaris"}, cfg.Excludes("windows"))
	require.Equal(t, []string{"src/share/tools"}, cfg.Excludes("linux"))

	timeout, err := cfg.Timeout()
	require.NoError(t, err)
	require.Equal(t, 90*time.Minute, timeout)

	modes, err := cfg.Modes()
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o664), modes.File)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	suite := t.TempDir()
	writeConfig(t, suite, "vm: [unterminated\n")
	_, err := Load(suite, "")
	require.Error(t, err)
}

func TestFindSuiteDir(t *testing.T) {
	suite := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(suite, SuiteMarkerDir), 0o755))
	nested := filepath.Join(suite, "src", "share", "vm")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindSuiteDir(nested)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(suite)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	require.Equal(t, want, got)
}
