package jdk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/provide-io/jvmci/go/jvmci/internal/atomicfile"
	"github.com/provide-io/jvmci/go/jvmci/internal/diskspace"
	"github.com/provide-io/jvmci/go/jvmci/internal/fileutils"
	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
	"github.com/provide-io/jvmci/go/jvmci/pkg/platform"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

// defaultVM is the VM the bootstrap JDK's launcher selects.
const defaultVM = variant.Server

// EnsureTree returns the tree for build. A missing tree is cloned from the
// bootstrap JDK when create is set; otherwise a MissingInstallationError
// naming vm is returned. Existing trees are never touched.
func (in *Installation) EnsureTree(ctx context.Context, build variant.BuildKind, vm variant.VM, create bool) (string, error) {
	treeDir := in.TreeDir(build)
	if fileutils.Exists(treeDir) {
		return treeDir, nil
	}
	if !create {
		if vm == "" {
			vm = defaultVM
		}
		in.Logger.Debug("🔍 JDK tree does not (yet) exist", "dir", treeDir)
		return "", &jerrors.MissingInstallationError{Build: string(build), VM: string(vm), Dir: treeDir}
	}
	if err := in.create(ctx, build); err != nil {
		return "", err
	}
	return treeDir, nil
}

// sweepStaging removes staging directories of build left behind by an
// interrupted creation in any process. Callers hold the install-root lock.
func (in *Installation) sweepStaging(build variant.BuildKind) error {
	leftovers, err := filepath.Glob(filepath.Join(in.Dir, "."+string(build)+".staging-*"))
	if err != nil {
		return err
	}
	for _, dir := range leftovers {
		in.Logger.Warn("🧹 Removing leftover staging directory", "dir", dir)
		if err := fileutils.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
	}
	return nil
}

// create clones the bootstrap JDK into a staging directory next to the final
// location, adjusts it, then renames it into place. Callers hold the
// install-root lock.
func (in *Installation) create(ctx context.Context, build variant.BuildKind) error {
	p := in.Platform
	srcHome, err := filepath.EvalSymlinks(in.Bootstrap.Home)
	if err != nil {
		return fmt.Errorf("resolving bootstrap JDK: %w", err)
	}
	srcRoot := p.BundleRoot(srcHome)
	destRoot := p.BundleRoot(in.TreeDir(build))

	if err := os.MkdirAll(in.Dir, in.Modes.Dir); err != nil {
		return fmt.Errorf("creating %s: %w", in.Dir, err)
	}
	if err := in.checkSpace(srcRoot); err != nil {
		return err
	}
	if err := in.sweepStaging(build); err != nil {
		return err
	}
	staging := filepath.Join(in.Dir, fmt.Sprintf(".%s.staging-%d", build, os.Getpid()))
	in.Logger.Info("📦 Creating JDK tree", "dir", in.TreeDir(build), "from", srcHome)
	if err := fileutils.CopyTree(staging, srcRoot); err != nil {
		return fmt.Errorf("copying %s: %w", srcRoot, err)
	}

	stagedHome := staging
	if p.IsBundleLayout() {
		stagedHome = filepath.Join(staging, platform.BundleHome)
	}
	if err := in.adjust(ctx, stagedHome); err != nil {
		fileutils.RemoveAll(staging)
		return err
	}
	if err := os.Rename(staging, destRoot); err != nil {
		fileutils.RemoveAll(staging)
		return fmt.Errorf("moving %s into place: %w", destRoot, err)
	}
	in.Logger.Info("✅ JDK tree created", "build", build, "dir", in.TreeDir(build))
	return nil
}

// checkSpace fails when the clone of src cannot fit into the installation.
// A platform that cannot report free space only gets a warning.
func (in *Installation) checkSpace(src string) error {
	needed, err := diskspace.TreeSize(src)
	if err != nil {
		return fmt.Errorf("measuring %s: %w", src, err)
	}
	available, err := diskspace.Available(in.Dir)
	if err != nil {
		in.Logger.Warn("⚠️ Could not check disk space", "error", err)
		return nil
	}
	in.Logger.Debug("💾 Disk space check",
		"needed_gb", fmt.Sprintf("%.2f", diskspace.GB(needed)),
		"available_gb", fmt.Sprintf("%.2f", diskspace.GB(available)))
	if available < needed {
		return fmt.Errorf("%w: need %.2f GB in %s, have %.2f GB",
			jerrors.ErrInsufficientSpace, diskspace.GB(needed), in.Dir, diskspace.GB(available))
	}
	return nil
}

// adjust turns a plain copy of the bootstrap JDK into a JVMCI JDK: the
// default VM is kept as "original" so it stays selectable after the server
// VM is replaced by a build.
func (in *Installation) adjust(ctx context.Context, home string) error {
	p := in.Platform
	cfgPath := p.JvmCfgFile(home)
	cfg, err := ReadJvmCfg(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s does not exist", jerrors.ErrCorruptBootstrap, cfgPath)
		}
		return fmt.Errorf("reading %s: %w", cfgPath, err)
	}
	cfg.AddKnown(variant.Original)

	if p.HasPOSIXPermissions() {
		if err := fileutils.ChmodDirs(home, in.Modes.Dir); err != nil {
			return fmt.Errorf("setting directory permissions: %w", err)
		}
	}

	libDir := p.VMLibDir(home)
	defaultDir := filepath.Join(libDir, string(defaultVM))
	originalDir := filepath.Join(libDir, string(variant.Original))
	if !fileutils.Exists(originalDir) {
		if !fileutils.Exists(defaultDir) {
			return fmt.Errorf("%w: default VM directory %s does not exist", jerrors.ErrCorruptBootstrap, defaultDir)
		}
		if err := fileutils.Move(originalDir, defaultDir); err != nil {
			return fmt.Errorf("keeping default VM as %s: %w", variant.Original, err)
		}
	}

	perm := in.Modes.File
	if !p.HasPOSIXPermissions() {
		perm = 0o666
	}
	if err := atomicfile.WriteFile(cfgPath, cfg.Bytes(), perm); err != nil {
		return fmt.Errorf("writing %s: %w", cfgPath, err)
	}

	if in.Helper != nil {
		if err := in.Helper.InstallInto(ctx, libDir); err != nil {
			in.Logger.Warn("⚠️ Could not install disassembler library", "error", err)
		}
	}
	return nil
}
