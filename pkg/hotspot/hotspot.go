// SPDX-License-Identifier: Apache-2.0
// Package hotspot drives the native HotSpot build: make on Unix, msbuild on
// Windows.
package hotspot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/kballard/go-shellquote"

	"github.com/provide-io/jvmci/go/jvmci/pkg/config"
	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
	"github.com/provide-io/jvmci/go/jvmci/pkg/logging"
	"github.com/provide-io/jvmci/go/jvmci/pkg/platform"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

// Command is one subprocess of a build.
type Command struct {
	Path string
	Args []string
	Dir  string
	// Env is the complete environment of the process.
	Env []string
}

// String renders the command the way a user would type it.
func (c Command) String() string {
	return shellquote.Join(append([]string{c.Path}, c.Args...)...)
}

// Runner executes a command, streaming its output.
type Runner func(ctx context.Context, cmd Command, stdout, stderr io.Writer) error

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, c Command, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Builder builds HotSpot from a JVMCI checkout.
type Builder struct {
	SuiteDir       string
	Platform       platform.Platform
	BootstrapHome  string
	ReleaseVersion string
	Jobs           int
	Verbose        bool
	// Defines are NAME=value make variables given by the user. They take
	// precedence over computed values.
	Defines map[string]string
	// Timeout bounds one build; zero means no limit.
	Timeout time.Duration

	Environ func() []string
	Run     Runner
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  hclog.Logger
}

// NewBuilder returns a Builder that runs real processes and writes to the
// standard streams.
func NewBuilder(suiteDir string, p platform.Platform, bootstrapHome string, logger hclog.Logger) *Builder {
	return &Builder{
		SuiteDir:       suiteDir,
		Platform:       p,
		BootstrapHome:  bootstrapHome,
		ReleaseVersion: config.DefaultReleaseVersion,
		Jobs:           runtime.NumCPU(),
		Environ:        os.Environ,
		Run:            ExecRunner,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
		Logger:         logger.Named("hotspot"),
	}
}

// ParseDefines parses -D NAME=value options.
func ParseDefines(defs []string) (map[string]string, error) {
	out := make(map[string]string, len(defs))
	for _, d := range defs {
		name, value, ok := strings.Cut(d, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid build variable %q, expected NAME=value", d)
		}
		out[name] = value
	}
	return out, nil
}

// Forbidden reports whether (vm, build) must not be built here, and why.
func Forbidden(p platform.Platform, vm variant.VM, build variant.BuildKind) (bool, string) {
	if vm == variant.Original {
		if build != variant.Product {
			return true, "only product build of original VM exists"
		}
		return true, "the original VM is never rebuilt"
	}
	if !p.SupportsVM(vm) {
		return true, fmt.Sprintf("the %s VM is not supported on this platform", vm)
	}
	return false, ""
}

func (b *Builder) makeDir() string {
	return filepath.Join(b.SuiteDir, config.MakeDir)
}

func (b *Builder) makeTool() string {
	if b.Platform.Family == platform.Solaris {
		return "gmake"
	}
	return "make"
}

// env returns the process environment: LANG defaults to C and CLASSPATH is
// removed.
func (b *Builder) env() []string {
	var out []string
	hasLang := false
	for _, kv := range b.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		switch name {
		case "CLASSPATH":
			continue
		case "LANG":
			hasLang = true
		}
		out = append(out, kv)
	}
	if !hasLang {
		out = append(out, "LANG=C")
	}
	return out
}

func lookupEnv(env []string, name string) (string, bool) {
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == name {
			return v, true
		}
	}
	return "", false
}

// MakeVars computes the make variables for a build, in command line order.
func (b *Builder) MakeVars(vm variant.VM) []string {
	env := b.env()
	vars := []struct{ name, value string }{}
	set := func(name, value string, fromEnv bool) {
		if fromEnv {
			if v, ok := lookupEnv(env, name); ok {
				value = v
			}
		}
		if v, ok := b.Defines[name]; ok {
			value = v
		}
		vars = append(vars, struct{ name, value string }{name, value})
	}

	set("ARCH_DATA_MODEL", config.DefaultArchDataModel, true)
	set("HOTSPOT_BUILD_JOBS", fmt.Sprint(b.Jobs), true)
	set("ALT_BOOTDIR", b.BootstrapHome, true)
	if b.Platform.Family == platform.Linux && b.Platform.Arch == "sparcv9" {
		set("INCLUDE_TRACE", "false", true)
		set("DISABLE_COMMERCIAL_FEATURES", "true", true)
	}
	verbose := ""
	if b.Verbose {
		verbose = "y"
	}
	set("MAKE_VERBOSE", verbose, false)
	set("USER_RELEASE_SUFFIX", "jvmci-"+b.ReleaseVersion, false)
	set("INCLUDE_JVMCI", "true", false)
	if b.Platform.Family == platform.Darwin {
		set("USE_CLANG", "true", false)
		set("COMPILER_WARNINGS_FATAL", "false", false)
	}
	set("ZIP_DEBUGINFO_FILES", "0", true)
	if vm == variant.Client {
		set("BUILD_CLIENT_ONLY", "true", false)
	}

	seen := map[string]bool{}
	for _, v := range vars {
		seen[v.name] = true
	}
	// user variables with no computed counterpart, sorted for stable output
	var extra []string
	for name := range b.Defines {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	out := make([]string, 0, len(vars)+len(extra))
	for _, name := range extra {
		out = append(out, name+"="+b.Defines[name])
	}
	for _, v := range vars {
		out = append(out, v.name+"="+v.value)
	}
	return out
}

// Commands returns the processes that build (vm, build), in order.
func (b *Builder) Commands(vm variant.VM, build variant.BuildKind) ([]Command, error) {
	if b.Platform.IsWindows() {
		return b.windowsCommands(vm, build), nil
	}
	if vm != variant.Server && vm != variant.Client {
		return nil, fmt.Errorf("%w: cannot build %s", jerrors.ErrUnknownVM, vm)
	}
	args := []string{"-C", b.makeDir()}
	args = append(args, b.MakeVars(vm)...)
	args = append(args, string(build)+vm.BuildSuffix(), "docs")
	return []Command{{Path: b.makeTool(), Args: args, Dir: b.SuiteDir, Env: b.env()}}, nil
}

func (b *Builder) windowsCommands(vm variant.VM, build variant.BuildKind) []Command {
	env := append(b.env(), "JAVA_HOME="+b.BootstrapHome)
	if _, ok := lookupEnv(env, "HotSpotMksHome"); !ok {
		mks, ok := lookupEnv(env, "MKS_HOME")
		if !ok {
			mks = `C:\cygwin\bin`
		}
		env = append(env, "HotSpotMksHome="+mks)
	}
	configuration := "/p:Configuration=" + vm.HotSpotName() + "_" + string(build)
	project := filepath.Join(b.SuiteDir, "build", "vs-amd64", "jvm.vcxproj")
	return []Command{
		{
			Path: "cmd.exe",
			Args: []string{"/E:ON", "/V:ON", "/C", "call", "create.bat", b.SuiteDir},
			Dir:  filepath.Join(b.makeDir(), "windows"),
			Env:  env,
		},
		{Path: "msbuild", Args: []string{project, configuration, "/target:clean"}, Dir: b.SuiteDir, Env: env},
		{Path: "msbuild", Args: []string{project, configuration, "/p:Platform=x64"}, Dir: b.SuiteDir, Env: env},
	}
}

// keepLine drops launcher noise about Xusage.txt from the error stream.
func keepLine(line []byte) bool {
	return !bytes.Contains(line, []byte("Xusage.txt"))
}

// Build runs the native build for (vm, build). A non-zero exit or an
// expired timeout is reported as ErrBuildFailed.
func (b *Builder) Build(ctx context.Context, vm variant.VM, build variant.BuildKind) error {
	if forbidden, reason := Forbidden(b.Platform, vm, build); forbidden {
		return fmt.Errorf("%w: %s", jerrors.ErrBuildForbidden, reason)
	}
	cmds, err := b.Commands(vm, build)
	if err != nil {
		return err
	}
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	tag := fmt.Sprintf("[%s-%s] ", build, vm)
	stdout := logging.NewPrefixWriter(tag, b.Stdout)
	stderr := logging.NewFilteringPrefixWriter(tag, b.Stderr, keepLine)
	defer stdout.Flush()
	defer stderr.Flush()

	start := time.Now()
	b.Logger.Info("🔨 Building HotSpot", "build", build, "vm", vm)
	for _, c := range cmds {
		b.logCommand(c)
		if err := b.Run(ctx, c, stdout, stderr); err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s timed out after %s", jerrors.ErrBuildFailed, c.Path, b.Timeout)
			}
			return fmt.Errorf("%w: %s: %v", jerrors.ErrBuildFailed, c, err)
		}
	}
	b.Logger.Info("✅ HotSpot build finished", "build", build, "vm", vm, "duration", time.Since(start).Round(time.Second))
	return nil
}

// logCommand prints the command with the environment changes a user needs
// to repeat it by hand.
func (b *Builder) logCommand(c Command) {
	var changed []string
	base := b.Environ()
	for _, kv := range c.Env {
		name, value, _ := strings.Cut(kv, "=")
		if old, ok := lookupEnv(base, name); !ok || old != value {
			changed = append(changed, kv)
		}
	}
	if len(changed) > 0 {
		b.Logger.Info("make environment", "env", shellquote.Join(changed...))
	}
	b.Logger.Info("make command line", "cmd", c.String())
}

// Clean runs make clean. Output is discarded unless Verbose is set.
func (b *Builder) Clean(ctx context.Context) error {
	if b.Platform.IsWindows() {
		b.Logger.Debug("No make clean on windows")
		return nil
	}
	c := Command{
		Path: b.makeTool(),
		Args: []string{
			"ARCH_DATA_MODEL=" + config.DefaultArchDataModel,
			"ALT_BOOTDIR=" + b.BootstrapHome,
			"clean",
		},
		Dir: b.makeDir(),
		Env: b.env(),
	}
	var stdout io.Writer = io.Discard
	if b.Verbose {
		stdout = b.Stdout
	}
	b.Logger.Debug("Cleaning native build", "cmd", c.String())
	if err := b.Run(ctx, c, stdout, b.Stderr); err != nil {
		return fmt.Errorf("%w: make clean: %v", jerrors.ErrBuildFailed, err)
	}
	return nil
}

// Var describes a make variable that can be set with -D.
type Var struct {
	Name        string
	Description string
}

// Vars lists the documented build variables.
func (b *Builder) Vars() []Var {
	return []Var{
		{"ALT_BOOTDIR", "The location of the bootstrap JDK installation (default: " + b.BootstrapHome + ")"},
		{"ALT_OUTPUTDIR", "Build directory"},
		{"HOTSPOT_BUILD_JOBS", fmt.Sprintf("Number of CPUs used by make (default: %d)", b.Jobs)},
		{"INSTALL", "Install the built VM into the JDK? (default: y)"},
		{"ZIP_DEBUGINFO_FILES", "Install zipped debug symbols file? (default: 0)"},
	}
}
