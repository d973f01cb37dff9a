// Package jdk manages the JVMCI JDK trees cloned from the bootstrap JDK, one
// per build kind.
package jdk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/jvmci/go/jvmci/internal/atomicfile"
	"github.com/provide-io/jvmci/go/jvmci/pkg/bootstrap"
	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
	"github.com/provide-io/jvmci/go/jvmci/pkg/platform"
	"github.com/provide-io/jvmci/go/jvmci/pkg/utils/permissions"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

// HelperInstaller installs an optional native helper (the disassembler)
// into a directory. Failures are never fatal for tree creation.
type HelperInstaller interface {
	InstallInto(ctx context.Context, dir string) error
}

// Modes are the permission bits applied to a new tree.
type Modes struct {
	Dir  os.FileMode
	File os.FileMode
}

// DefaultModes are the standard JDK permission bits.
var DefaultModes = Modes{Dir: permissions.JDKDirPerms, File: permissions.JDKFilePerms}

// Tree is an existing JDK tree.
type Tree struct {
	Dir   string
	Build variant.BuildKind
}

// Installation is the directory holding the trees cloned from one bootstrap
// JDK on one platform.
type Installation struct {
	Dir       string
	Platform  platform.Platform
	Bootstrap *bootstrap.JDK
	Modes     Modes
	Helper    HelperInstaller
	Logger    hclog.Logger
}

// JdksDir computes <base>/<openjdk|jdk><version>/<os>-<arch>.
func JdksDir(base string, jdk *bootstrap.JDK, p platform.Platform) (string, error) {
	dir, err := filepath.Abs(filepath.Join(base, jdk.DirPrefix(), p.String()))
	if err != nil {
		return "", err
	}
	return dir, nil
}

// NewInstallation returns the installation under base for jdk.
func NewInstallation(base string, jdk *bootstrap.JDK, p platform.Platform, logger hclog.Logger) (*Installation, error) {
	dir, err := JdksDir(base, jdk, p)
	if err != nil {
		return nil, err
	}
	return &Installation{
		Dir:       dir,
		Platform:  p,
		Bootstrap: jdk,
		Modes:     DefaultModes,
		Logger:    logger.Named("jdk"),
	}, nil
}

// TreeDir returns the JDK home for build, whether or not it exists.
func (in *Installation) TreeDir(build variant.BuildKind) string {
	return in.Platform.JdkTreeRoot(in.Dir, build)
}

// BuildKindOf derives the build kind a tree belongs to from its path.
func (in *Installation) BuildKindOf(treeDir string) (variant.BuildKind, error) {
	root := in.Platform.BundleRoot(filepath.Clean(treeDir))
	rel, err := filepath.Rel(in.Dir, root)
	if err != nil || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return "", fmt.Errorf("%w: %s is not a tree of %s", jerrors.ErrUnknownBuildKind, treeDir, in.Dir)
	}
	return variant.ParseBuildKind(rel)
}

// Trees lists the existing trees in build kind order. Entries that are not
// named after a build kind (staging directories, lock files) are ignored.
func (in *Installation) Trees() ([]Tree, error) {
	entries, err := os.ReadDir(in.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var trees []Tree
	for _, e := range entries {
		build, err := variant.ParseBuildKind(e.Name())
		if err != nil {
			continue
		}
		dir := in.TreeDir(build)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		trees = append(trees, Tree{Dir: dir, Build: build})
	}
	sort.Slice(trees, func(i, j int) bool { return buildIndex(trees[i].Build) < buildIndex(trees[j].Build) })
	return trees, nil
}

func buildIndex(b variant.BuildKind) int {
	for i, k := range variant.BuildKinds {
		if k == b {
			return i
		}
	}
	return len(variant.BuildKinds)
}

// MarkVMKnown declares vm KNOWN in the jvm.cfg of tree. A bootstrap JDK
// ships some VMs as IGNORE; once a build of vm is deployed the launcher
// must accept it.
func (in *Installation) MarkVMKnown(treeDir string, vm variant.VM) error {
	cfgPath := in.Platform.JvmCfgFile(treeDir)
	cfg, err := ReadJvmCfg(cfgPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", cfgPath, err)
	}
	if !cfg.MarkKnown(vm) {
		return nil
	}
	perm := in.Modes.File
	if !in.Platform.HasPOSIXPermissions() {
		perm = 0o666
	}
	in.Logger.Debug("📝 Declaring VM KNOWN", "vm", vm, "file", cfgPath)
	if err := atomicfile.WriteFile(cfgPath, cfg.Bytes(), perm); err != nil {
		return fmt.Errorf("writing %s: %w", cfgPath, err)
	}
	return nil
}

// CheckVMExists returns a MissingInstallationError unless jvm.cfg in tree
// declares vm KNOWN.
func (in *Installation) CheckVMExists(treeDir string, vm variant.VM) error {
	cfgPath := in.Platform.JvmCfgFile(treeDir)
	cfg, err := ReadJvmCfg(cfgPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", cfgPath, err)
	}
	if cfg.Known(vm) {
		return nil
	}
	build, err := in.BuildKindOf(treeDir)
	if err != nil {
		return err
	}
	return &jerrors.MissingInstallationError{Build: string(build), VM: string(vm), Dir: treeDir}
}
