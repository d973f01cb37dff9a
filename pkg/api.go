// Package pkg ties the JVMCI components together into the operations the
// command line tool offers.
package pkg

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/jvmci/go/jvmci/internal/fileutils"
	"github.com/provide-io/jvmci/go/jvmci/pkg/archive"
	"github.com/provide-io/jvmci/go/jvmci/pkg/bootstrap"
	"github.com/provide-io/jvmci/go/jvmci/pkg/config"
	"github.com/provide-io/jvmci/go/jvmci/pkg/deploy"
	"github.com/provide-io/jvmci/go/jvmci/pkg/export"
	"github.com/provide-io/jvmci/go/jvmci/pkg/hotspot"
	"github.com/provide-io/jvmci/go/jvmci/pkg/hsdis"
	"github.com/provide-io/jvmci/go/jvmci/pkg/jdk"
	"github.com/provide-io/jvmci/go/jvmci/pkg/launcher"
	"github.com/provide-io/jvmci/go/jvmci/pkg/lock"
	"github.com/provide-io/jvmci/go/jvmci/pkg/platform"
	"github.com/provide-io/jvmci/go/jvmci/pkg/selection"
	"github.com/provide-io/jvmci/go/jvmci/pkg/staleness"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
	"github.com/provide-io/jvmci/go/jvmci/pkg/vcs"
)

// Options configure a Session.
type Options struct {
	SuiteDir   string
	ConfigPath string
	// Config is used as is when set; SuiteDir and ConfigPath are then ignored.
	Config    *config.Config
	Selection *selection.Selection
	// Platform defaults to the host.
	Platform *platform.Platform
	Verbose  bool
	Logger   hclog.Logger
	Stdout   io.Writer
	Stderr   io.Writer
}

// Session is one invocation of the tool against a suite.
type Session struct {
	Config    *config.Config
	Platform  platform.Platform
	Selection *selection.Selection
	Verbose   bool
	Logger    hclog.Logger
	Stdout    io.Writer
	Stderr    io.Writer

	Locator *bootstrap.Locator
	VCS     *vcs.Querier
	// Helper is installed into new trees; nil when the disassembler is disabled.
	Helper jdk.HelperInstaller
	// Run replaces process execution of the native build in tests.
	Run hotspot.Runner

	installation *jdk.Installation
}

// NewSelection returns the selection configured in cfg, starting from the
// built-in defaults. A legacy VM alias switches the mode to jit.
func NewSelection(cfg *config.Config) (*selection.Selection, error) {
	sel := selection.New()
	if cfg.VM != "" {
		vm, alias, err := variant.ParseVM(cfg.VM)
		if err != nil {
			return nil, err
		}
		sel.VM = vm
		if alias {
			sel.Mode = variant.JIT
		}
	}
	if cfg.VMBuild != "" {
		build, err := variant.ParseBuildKind(cfg.VMBuild)
		if err != nil {
			return nil, err
		}
		sel.Build = build
	}
	if cfg.JVMCIMode != "" {
		mode, err := variant.ParseJVMCIMode(cfg.JVMCIMode)
		if err != nil {
			return nil, err
		}
		sel.Mode = mode
	}
	sel.InstalledJDKs = cfg.InstalledJDKs
	return sel, nil
}

// Open loads the configuration and prepares the collaborators. Nothing on
// disk is touched until an operation runs.
func Open(opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(opts.SuiteDir, opts.ConfigPath); err != nil {
			return nil, err
		}
	}

	var p platform.Platform
	if opts.Platform != nil {
		p = *opts.Platform
	} else {
		var err error
		if p, err = platform.Current(); err != nil {
			return nil, err
		}
	}

	sel := opts.Selection
	if sel == nil {
		var err error
		if sel, err = NewSelection(cfg); err != nil {
			return nil, err
		}
	}

	locator, err := bootstrap.NewLocator(cfg.JavaHome, p, config.MinBootstrapVersion, config.UntilBootstrapVersion, logger.Named("bootstrap"))
	if err != nil {
		return nil, err
	}

	s := &Session{
		Config:    cfg,
		Platform:  p,
		Selection: sel,
		Verbose:   opts.Verbose,
		Logger:    logger,
		Stdout:    orDefault(opts.Stdout, os.Stdout),
		Stderr:    orDefault(opts.Stderr, os.Stderr),
		Locator:   locator,
		VCS:       vcs.New(logger),
	}
	if !cfg.Hsdis.Disable {
		f := hsdis.NewFetcher(p, cfg.Hsdis.Syntax, logger)
		f.BaseURL = cfg.Hsdis.BaseURL
		s.Helper = f
	}
	return s, nil
}

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}

// Installation returns the JDK trees cloned from the bootstrap JDK. The
// bootstrap JDK is located on first use.
func (s *Session) Installation(ctx context.Context) (*jdk.Installation, error) {
	if s.installation != nil {
		return s.installation, nil
	}
	j, err := s.Locator.Locate(ctx)
	if err != nil {
		return nil, err
	}
	base := s.Selection.InstalledJDKs
	if base == "" {
		base = s.Config.SuiteDir
	}
	in, err := jdk.NewInstallation(base, j, s.Platform, s.Logger)
	if err != nil {
		return nil, err
	}
	modes, err := s.Config.Modes()
	if err != nil {
		return nil, err
	}
	in.Modes = jdk.Modes{Dir: modes.Dir, File: modes.File}
	in.Helper = s.Helper
	s.installation = in
	return in, nil
}

// locked runs fn while holding the lock of the installation root.
func (s *Session) locked(in *jdk.Installation, fn func() error) error {
	l, err := lock.Acquire(in.Dir, config.LockTimeout, s.Logger.Named("lock"))
	if err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// Builder returns the native build task, with the configured build
// variables overridden by defines.
func (s *Session) Builder(ctx context.Context, defines map[string]string) (*hotspot.Builder, error) {
	j, err := s.Locator.Locate(ctx)
	if err != nil {
		return nil, err
	}
	cfg := s.Config
	b := hotspot.NewBuilder(cfg.SuiteDir, s.Platform, j.Home, s.Logger)
	b.ReleaseVersion = cfg.ReleaseVersion
	if cfg.Jobs > 0 {
		b.Jobs = cfg.Jobs
	}
	b.Verbose = s.Verbose
	b.Defines = make(map[string]string, len(cfg.BuildVars)+len(defines))
	for k, v := range cfg.BuildVars {
		b.Defines[k] = v
	}
	for k, v := range defines {
		b.Defines[k] = v
	}
	if b.Timeout, err = cfg.Timeout(); err != nil {
		return nil, err
	}
	b.Stdout = s.Stdout
	b.Stderr = s.Stderr
	if s.Run != nil {
		b.Run = s.Run
	}
	return b, nil
}

// Registry resolves distributions in the configured dists directory.
func (s *Session) Registry() deploy.Registry {
	return deploy.DirRegistry{Dir: s.Config.DistsDir}
}

// Deployer returns the deployment engine for the installation.
func (s *Session) Deployer(ctx context.Context) (*deploy.Deployer, error) {
	in, err := s.Installation(ctx)
	if err != nil {
		return nil, err
	}
	modes, err := s.Config.Modes()
	if err != nil {
		return nil, err
	}
	d := deploy.NewDeployer(in, s.Registry(), s.Selection, s.Logger)
	d.Symlink = s.Config.SymlinkDeploy
	d.Revision = s.VCS.Revision(ctx, s.Config.SuiteDir)
	d.DirMode = modes.Dir
	d.FileMode = modes.File
	return d, nil
}

// Checker returns the rebuild check with the configured exclusions for
// this platform.
func (s *Session) Checker() (*staleness.Checker, error) {
	dirs := s.Config.Staleness.SourceDirs
	ex, err := staleness.NewExclusions(dirs, s.Config.Excludes(s.Platform.Family.String())...)
	if err != nil {
		return nil, err
	}
	return &staleness.Checker{
		SuiteDir:   s.Config.SuiteDir,
		SourceDirs: dirs,
		Exclusions: ex,
		Logger:     s.Logger.Named("staleness"),
	}, nil
}

// vmArchive is the distribution the native build of the active selection
// produces.
func (s *Session) vmArchive() deploy.Distribution {
	active := s.Selection.Snapshot()
	return s.Registry().Distribution(deploy.VMArchiveName(deploy.VMArchiveTemplate, active.VM, active.Build))
}

// NeedsRebuild decides whether the native build of the active selection is
// out of date. Its VM archive is the newest output.
func (s *Session) NeedsRebuild() (staleness.Decision, error) {
	c, err := s.Checker()
	if err != nil {
		return staleness.Decision{}, err
	}
	baseline := ""
	if dist := s.vmArchive(); dist.Exists() {
		baseline = dist.Path
	}
	return c.NeedsRebuild(baseline)
}

// JDKHome returns the tree of the active build kind. With create set a
// missing tree is cloned and every built artifact deployed into it.
func (s *Session) JDKHome(ctx context.Context, create bool) (string, error) {
	if !create {
		in, err := s.Installation(ctx)
		if err != nil {
			return "", err
		}
		active := s.Selection.Snapshot()
		return in.EnsureTree(ctx, active.Build, active.VM, false)
	}
	return s.createTree(ctx, true)
}

// createTree clones the tree of the active build kind if it is missing.
// A new tree gets the built artifacts when deployNew is set; Build leaves
// that to its own deployment pass.
func (s *Session) createTree(ctx context.Context, deployNew bool) (string, error) {
	in, err := s.Installation(ctx)
	if err != nil {
		return "", err
	}
	active := s.Selection.Snapshot()
	var tree string
	err = s.locked(in, func() error {
		existed := fileutils.Exists(in.TreeDir(active.Build))
		var err error
		if tree, err = in.EnsureTree(ctx, active.Build, active.VM, true); err != nil || existed || !deployNew {
			return err
		}
		d, err := s.Deployer(ctx)
		if err != nil {
			return err
		}
		return d.DeployAll(ctx)
	})
	return tree, err
}

// Deploy installs every built artifact into every existing tree.
func (s *Session) Deploy(ctx context.Context) error {
	d, err := s.Deployer(ctx)
	if err != nil {
		return err
	}
	return s.locked(d.Installation, func() error {
		return d.DeployAll(ctx)
	})
}

// Build makes sure the tree of the active build kind exists, rebuilds the
// VM when its sources changed (or force is set) and deploys the results.
func (s *Session) Build(ctx context.Context, defines map[string]string, force bool) error {
	active := s.Selection.Snapshot()
	in, err := s.Installation(ctx)
	if err != nil {
		return err
	}
	if _, err := s.createTree(ctx, false); err != nil {
		return err
	}

	if forbidden, reason := hotspot.Forbidden(s.Platform, active.VM, active.Build); forbidden {
		s.Logger.Info("⏭️ Skipping native build", "vm", active.VM, "build", active.Build, "reason", reason)
	} else {
		decision, err := s.NeedsRebuild()
		if err != nil {
			return err
		}
		s.Logger.Debug("🔍 Rebuild check", "decision", decision.String())
		if decision.Needed || force {
			if err := s.buildVM(ctx, defines, active); err != nil {
				return err
			}
		}
	}
	return s.locked(in, func() error {
		d, err := s.Deployer(ctx)
		if err != nil {
			return err
		}
		return d.DeployAll(ctx)
	})
}

func (s *Session) buildVM(ctx context.Context, defines map[string]string, active selection.Triple) error {
	b, err := s.Builder(ctx, defines)
	if err != nil {
		return err
	}
	if err := b.Build(ctx, active.VM, active.Build); err != nil {
		return err
	}
	dist := s.vmArchive()
	if err := os.MkdirAll(filepath.Dir(dist.Path), 0o755); err != nil {
		return err
	}
	return b.Pack(active.VM, active.Build, dist.Path, archive.Detect(dist.Path))
}

// BuildResult records one configuration of BuildVMs.
type BuildResult struct {
	VM       variant.VM
	Build    variant.BuildKind
	Skipped  string
	Duration time.Duration
	Err      error
}

// BuildVMsOptions configure BuildVMs.
type BuildVMsOptions struct {
	VMs    []variant.VM
	Builds []variant.BuildKind
	// Check runs "java -version" with every freshly built VM.
	Check bool
	// Console sends build output to the terminal instead of a log file per
	// configuration in the suite directory.
	Console bool
}

// BuildVMs builds every supported combination of opts.VMs and opts.Builds.
// It stops at the first failure.
func (s *Session) BuildVMs(ctx context.Context, opts BuildVMsOptions) ([]BuildResult, error) {
	var results []BuildResult
	for _, vm := range opts.VMs {
		if !s.Platform.SupportsVM(vm) {
			s.Logger.Info("⏭️ VM not supported on this platform, skipping", "vm", vm)
			results = append(results, BuildResult{VM: vm, Skipped: "not supported on this platform"})
			continue
		}
		for _, build := range opts.Builds {
			if vm == variant.Original && build != variant.Product {
				continue
			}
			r := BuildResult{VM: vm, Build: build}
			start := time.Now()
			r.Err = s.Selection.With(selection.Override{VM: vm, Build: build}, func() error {
				return s.buildOne(ctx, opts)
			})
			r.Duration = time.Since(start)
			results = append(results, r)
			if r.Err != nil {
				return results, fmt.Errorf("building %s-%s: %w", vm, build, r.Err)
			}
		}
	}
	return results, nil
}

func (s *Session) buildOne(ctx context.Context, opts BuildVMsOptions) error {
	active := s.Selection.Snapshot()
	name := fmt.Sprintf("%s-%s", active.VM, active.Build)
	if !opts.Console {
		logFile := filepath.Join(s.Config.SuiteDir, name+".log")
		f, err := os.Create(logFile)
		if err != nil {
			return err
		}
		defer f.Close()
		stdout, stderr := s.Stdout, s.Stderr
		s.Stdout, s.Stderr = f, f
		defer func() { s.Stdout, s.Stderr = stdout, stderr }()
		s.Logger.Info("▶️ BEGIN", "config", name, "log", logFile)
	}
	start := time.Now()
	if err := s.Build(ctx, nil, false); err != nil {
		return err
	}
	s.Logger.Info("⏹️ END", "config", name, "duration", time.Since(start).Round(time.Second))
	if opts.Check {
		return s.RunVM(ctx, []string{"-version"}, "")
	}
	return nil
}

// BuildVars lists the make variables that can be set with -D.
func (s *Session) BuildVars(ctx context.Context) ([]hotspot.Var, error) {
	b, err := s.Builder(ctx, nil)
	if err != nil {
		return nil, err
	}
	return b.Vars(), nil
}

// Clean removes the native build output and every JDK tree.
func (s *Session) Clean(ctx context.Context) error {
	b, err := s.Builder(ctx, nil)
	if err != nil {
		return err
	}
	if err := b.Clean(ctx); err != nil {
		return err
	}
	in, err := s.Installation(ctx)
	if err != nil {
		return err
	}
	return s.locked(in, func() error {
		s.Logger.Info("🧹 Removing JDK trees", "dir", in.Dir)
		return fileutils.RemoveAll(in.Dir)
	})
}

// RunVM runs java from the tree of the active build kind. The tree must
// exist and declare the active VM.
func (s *Session) RunVM(ctx context.Context, args []string, cwd string) error {
	tree, err := s.JDKHome(ctx, false)
	if err != nil {
		return err
	}
	in, err := s.Installation(ctx)
	if err != nil {
		return err
	}
	if err := in.CheckVMExists(tree, s.Selection.VM); err != nil {
		return err
	}
	l := launcher.New(s.Platform, s.Selection, s.Logger)
	l.Stdout = s.Stdout
	l.Stderr = s.Stderr
	cmd, err := l.Prepare(tree, args, cwd)
	if err != nil {
		return err
	}
	return l.Run(ctx, cmd)
}

// Hsdis fetches the disassembler for syntax and copies it into copyTo when
// that directory exists. It returns the cached library path.
func (s *Session) Hsdis(ctx context.Context, syntax, copyTo string) (string, error) {
	f := hsdis.NewFetcher(s.Platform, syntax, s.Logger)
	f.BaseURL = s.Config.Hsdis.BaseURL
	path, err := f.Fetch(ctx)
	if err != nil {
		return "", err
	}
	if copyTo != "" {
		if err := f.InstallInto(ctx, copyTo); err != nil {
			return path, err
		}
	}
	return path, nil
}

// Export writes the archives of every tree into outDir.
func (s *Session) Export(ctx context.Context, outDir, compression string) ([]string, error) {
	codec, err := archive.Get(compression)
	if err != nil {
		return nil, err
	}
	in, err := s.Installation(ctx)
	if err != nil {
		return nil, err
	}
	revision := s.VCS.Revision(ctx, s.Config.SuiteDir)
	if s.VCS.Dirty(ctx, s.Config.SuiteDir) {
		s.Logger.Warn("⚠️ Exporting from a checkout with uncommitted changes", "revision", revision)
	}
	e := &export.Exporter{
		Installation: in,
		OutDir:       outDir,
		Codec:        codec,
		Info: export.NewInfo(revision, in.Bootstrap.Version.String(), s.Platform.Arch,
			s.Platform.Family.String(), time.Now()),
		Logger: s.Logger.Named("export"),
	}
	return e.Export(ctx)
}
