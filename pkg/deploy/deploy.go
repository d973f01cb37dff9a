package deploy

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/provide-io/jvmci/go/jvmci/internal/atomicfile"
	"github.com/provide-io/jvmci/go/jvmci/pkg/archive"
	"github.com/provide-io/jvmci/go/jvmci/pkg/jdk"
	"github.com/provide-io/jvmci/go/jvmci/pkg/release"
	"github.com/provide-io/jvmci/go/jvmci/pkg/selection"
	"github.com/provide-io/jvmci/go/jvmci/pkg/utils/permissions"
)

// Deployer installs artifacts into the trees of an installation.
type Deployer struct {
	Installation *jdk.Installation
	Registry     Registry
	Artifacts    []Artifact
	Selection    *selection.Selection

	// Symlink links jars into the tree instead of copying them. Faster,
	// but a running VM sees the jar change underneath it.
	Symlink bool

	// Revision is recorded in each tree's release file after deployment.
	Revision string

	DirMode  os.FileMode
	FileMode os.FileMode
	Logger   hclog.Logger
}

// NewDeployer returns a deployer for the default artifacts.
func NewDeployer(in *jdk.Installation, reg Registry, sel *selection.Selection, logger hclog.Logger) *Deployer {
	return &Deployer{
		Installation: in,
		Registry:     reg,
		Artifacts:    DefaultArtifacts(),
		Selection:    sel,
		DirMode:      permissions.JDKDirPerms,
		FileMode:     permissions.JDKFilePerms,
		Logger:       logger.Named("deploy"),
	}
}

// Deploy installs a into tree.
func (d *Deployer) Deploy(a Artifact, tree string) error {
	active := d.Selection.Snapshot()
	dist := d.Registry.Distribution(a.Dist(active))
	switch a := a.(type) {
	case JarArtifact:
		return d.deployJar(a, dist, tree)
	case VMArchiveArtifact:
		return d.deployVMArchive(dist, tree, active)
	default:
		panic(fmt.Sprintf("deploy: unhandled artifact type %T", a))
	}
}

func (d *Deployer) deployJar(a JarArtifact, dist Distribution, tree string) error {
	targetDir := a.Target(tree)
	d.Logger.Debug("📦 Deploying", "dist", dist.Name, "target", targetDir)
	if err := os.MkdirAll(targetDir, d.DirMode); err != nil {
		return fmt.Errorf("creating %s: %w", targetDir, err)
	}
	if err := d.install(dist.Path, targetDir); err != nil {
		return err
	}
	if dist.HasSources() {
		return d.install(dist.SourcesPath, targetDir)
	}
	return nil
}

// install places src in dir under its own base name.
func (d *Deployer) install(src, dir string) error {
	dst := filepath.Join(dir, filepath.Base(src))
	if d.Symlink {
		abs, err := filepath.Abs(src)
		if err != nil {
			return err
		}
		if fi, err := os.Lstat(dst); err == nil && fi.IsDir() {
			return fmt.Errorf("cannot link %s: a directory is in the way", dst)
		}
		return atomicfile.Symlink(abs, dst)
	}
	if err := atomicfile.CopyFile(dst, src, d.FileMode); err != nil {
		return fmt.Errorf("installing %s: %w", dst, err)
	}
	return nil
}

func (d *Deployer) deployVMArchive(dist Distribution, tree string, active selection.Triple) error {
	build, err := d.Installation.BuildKindOf(tree)
	if err != nil {
		return err
	}
	if build != active.Build {
		d.Logger.Trace("Skipping VM archive for other build kind", "tree", tree, "active", active.Build)
		return nil
	}

	targets := d.memberTargets(active)
	jvm := d.Installation.Platform.Lib("jvm")
	deployedJVM := false
	err = archive.Walk(dist.Path, func(h *tar.Header, body io.Reader) error {
		name := strings.TrimPrefix(path.Clean(h.Name), "./")
		first, rest, _ := strings.Cut(name, "/")
		targetDir, ok := targets[first]
		if !ok {
			return nil
		}
		for _, elem := range strings.Split(rest, "/") {
			if elem == ".." {
				return fmt.Errorf("archive member %q escapes its target", h.Name)
			}
		}
		dst := filepath.Join(tree, targetDir, filepath.FromSlash(name))
		d.Logger.Debug("📦 Deploying", "member", h.Name, "dist", dist.Name, "target", dst)
		if name == jvm {
			deployedJVM = true
		}
		return d.extract(h, body, dst)
	})
	if err != nil || !deployedJVM {
		return err
	}
	return d.Installation.MarkVMKnown(tree, active.VM)
}

// memberTargets maps archive members to directories relative to the tree.
func (d *Deployer) memberTargets(active selection.Triple) map[string]string {
	p := d.Installation.Platform
	libDir := p.RelativeVMLibDir()
	vmDir := filepath.Join(libDir, string(active.VM))
	return map[string]string{
		"jvmti.h":            "include",
		"sa-jdi.jar":         "lib",
		p.Lib("jvm"):         vmDir,
		p.DebugLib("jvm"):    vmDir,
		p.Lib("saproc"):      libDir,
		p.DebugLib("saproc"): libDir,
		p.Lib("jsig"):        libDir,
		p.DebugLib("jsig"):   libDir,
	}
}

func (d *Deployer) extract(h *tar.Header, body io.Reader, dst string) error {
	switch h.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(dst, d.DirMode)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(dst), d.DirMode); err != nil {
			return err
		}
		mode := os.FileMode(h.Mode).Perm()
		if mode == 0 {
			mode = d.FileMode
		}
		return atomicfile.WriteReader(dst, body, mode)
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(dst), d.DirMode); err != nil {
			return err
		}
		return atomicfile.Symlink(h.Linkname, dst)
	default:
		d.Logger.Warn("⚠️ Ignoring unsupported archive member", "name", h.Name, "type", string(rune(h.Typeflag)))
		return nil
	}
}

// DeployAll deploys every built artifact into every existing tree and then
// records the revision in each tree's release file. Trees are processed in
// parallel; a failure in one artifact or tree does not stop the others and
// all failures are returned together.
func (d *Deployer) DeployAll(ctx context.Context) error {
	trees, err := d.Installation.Trees()
	if err != nil {
		return fmt.Errorf("listing trees: %w", err)
	}
	if len(trees) == 0 {
		d.Logger.Debug("No JDK trees to deploy into", "dir", d.Installation.Dir)
		return nil
	}

	active := d.Selection.Snapshot()
	var built []Artifact
	for _, a := range d.Artifacts {
		dist := d.Registry.Distribution(a.Dist(active))
		if !dist.Exists() {
			d.Logger.Debug("Distribution not built, skipping", "dist", dist.Name)
			continue
		}
		built = append(built, a)
	}

	errs := make([]error, len(trees))
	var g errgroup.Group
	for i, tree := range trees {
		g.Go(func() error {
			errs[i] = d.deployTree(ctx, tree.Dir, built)
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

func (d *Deployer) deployTree(ctx context.Context, tree string, artifacts []Artifact) error {
	var errs []error
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := d.Deploy(a, tree); err != nil {
			errs = append(errs, fmt.Errorf("deploying %s into %s: %w", a.Dist(d.Selection.Snapshot()), tree, err))
		}
	}
	if _, err := release.PatchFile(tree, d.Revision, d.FileMode, d.Logger); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DeployedJars lists the paths inside tree of the jars deployed by jar
// artifacts.
func (d *Deployer) DeployedJars(tree string) []string {
	active := d.Selection.Snapshot()
	var jars []string
	for _, a := range d.Artifacts {
		jar, ok := a.(JarArtifact)
		if !ok {
			continue
		}
		dist := d.Registry.Distribution(jar.Dist(active))
		if dist.Path == "" {
			continue
		}
		jars = append(jars, filepath.Join(jar.Target(tree), filepath.Base(dist.Path)))
	}
	return jars
}
