// SPDX-License-Identifier: Apache-2.0
// Package config loads the persistent settings of a JVMCI checkout from
// mx.jvmci/env.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/provide-io/jvmci/go/jvmci/pkg/utils/permissions"
)

// Config is the merged configuration. Command line flags are applied on top
// by the CLI.
type Config struct {
	SuiteDir       string            `yaml:"-"`
	JavaHome       string            `yaml:"java_home"`
	InstalledJDKs  string            `yaml:"installed_jdks"`
	OutputRoot     string            `yaml:"output_root"`
	DistsDir       string            `yaml:"dists_dir"`
	ReleaseVersion string            `yaml:"release_version"`
	VM             string            `yaml:"vm"`
	VMBuild        string            `yaml:"vmbuild"`
	JVMCIMode      string            `yaml:"jvmci_mode"`
	SymlinkDeploy  bool              `yaml:"symlink_deploy"`
	BuildVars      map[string]string `yaml:"build_vars"`
	BuildTimeout   string            `yaml:"build_timeout"`
	Jobs           int               `yaml:"jobs"`
	Hsdis          HsdisConfig       `yaml:"hsdis"`
	Staleness      StalenessConfig   `yaml:"staleness"`
	Permissions    PermissionsConfig `yaml:"permissions"`
}

// HsdisConfig configures the disassembler helper.
type HsdisConfig struct {
	Syntax  string `yaml:"syntax"`
	BaseURL string `yaml:"base_url"`
	Disable bool   `yaml:"disable"`
}

// StalenessConfig configures the rebuild check.
type StalenessConfig struct {
	SourceDirs []string            `yaml:"source_dirs"`
	Exclude    []string            `yaml:"exclude"`
	ExcludeOS  map[string][]string `yaml:"exclude_by_os"`
}

// PermissionsConfig holds octal strings such as "0644".
type PermissionsConfig struct {
	Dir  string `yaml:"dir"`
	File string `yaml:"file"`
	Exec string `yaml:"exec"`
}

// Modes are the parsed permission bits.
type Modes struct {
	Dir, File, Exec os.FileMode
}

// FindSuiteDir walks upwards from start looking for the mx.jvmci directory.
// If none is found start itself is returned.
func FindSuiteDir(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	dir := abs
	for {
		if info, err := os.Stat(filepath.Join(dir, SuiteMarkerDir)); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil // filesystem root reached, use start
		}
		dir = parent
	}
}

// DefaultPath returns the config file location for a suite.
func DefaultPath(suiteDir string) string {
	return filepath.Join(suiteDir, SuiteMarkerDir, ConfigFileName)
}

// Load reads path (missing file is not an error), applies the environment
// and fills in defaults.
func Load(suiteDir, path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		path = DefaultPath(suiteDir)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg.SuiteDir = suiteDir
	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("JAVA_HOME"); v != "" && c.JavaHome == "" {
		c.JavaHome = v
	}
	if v := getenv("SYMLINK_GRAAL_JAR"); v != "" {
		c.SymlinkDeploy = v == "true"
	}
	if v := getenv("HSDIS_SYNTAX"); v != "" {
		c.Hsdis.Syntax = v
	}
	if v := getenv("JVMCI_INSTALLED_JDKS"); v != "" {
		c.InstalledJDKs = v
	}
	if v := getenv("JVMCI_OUTPUT_ROOT"); v != "" {
		c.OutputRoot = v
	}
}

func (c *Config) applyDefaults() {
	if c.OutputRoot == "" {
		c.OutputRoot = filepath.Join(c.SuiteDir, DefaultOutput)
	} else if !filepath.IsAbs(c.OutputRoot) {
		c.OutputRoot = filepath.Join(c.SuiteDir, c.OutputRoot)
	}
	if c.DistsDir == "" {
		c.DistsDir = filepath.Join(c.OutputRoot, DefaultDistsDir)
	} else if !filepath.IsAbs(c.DistsDir) {
		c.DistsDir = filepath.Join(c.SuiteDir, c.DistsDir)
	}
	if c.ReleaseVersion == "" {
		c.ReleaseVersion = DefaultReleaseVersion
	}
	if c.BuildTimeout == "" {
		c.BuildTimeout = DefaultBuildTimeout
	}
	if c.Hsdis.BaseURL == "" {
		c.Hsdis.BaseURL = DefaultHsdisBaseURL
	}
	if c.Hsdis.Syntax == "" {
		c.Hsdis.Syntax = DefaultHsdisSyntax
	}
	if len(c.Staleness.SourceDirs) == 0 {
		c.Staleness.SourceDirs = append([]string(nil), DefaultSourceDirs...)
	}
	if c.Staleness.Exclude == nil {
		c.Staleness.Exclude = append([]string(nil), DefaultExcludes...)
	}
}

// Timeout parses BuildTimeout; zero means no timeout.
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.BuildTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid build_timeout %q: %w", c.BuildTimeout, err)
	}
	return d, nil
}

// Modes parses the permission settings.
func (c *Config) Modes() (Modes, error) {
	var m Modes
	var err error
	if m.Dir, err = permissions.ParseOctalString(c.Permissions.Dir, permissions.JDKDirPerms); err != nil {
		return m, err
	}
	if m.File, err = permissions.ParseOctalString(c.Permissions.File, permissions.JDKFilePerms); err != nil {
		return m, err
	}
	if m.Exec, err = permissions.ParseOctalString(c.Permissions.Exec, permissions.JDKExecPerms); err != nil {
		return m, err
	}
	return m, nil
}

// Excludes returns the exclusion list for an OS family name: the common
// entries followed by the OS specific ones.
func (c *Config) Excludes(osName string) []string {
	out := append([]string(nil), c.Staleness.Exclude...)
	return append(out, c.Staleness.ExcludeOS[strings.ToLower(osName)]...)
}

// SourceDirs returns the rebuild check roots as absolute paths.
func (c *Config) SourceDirs() []string {
	dirs := make([]string, 0, len(c.Staleness.SourceDirs))
	for _, d := range c.Staleness.SourceDirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(c.SuiteDir, filepath.FromSlash(d))
		}
		dirs = append(dirs, d)
	}
	return dirs
}
