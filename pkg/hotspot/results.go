package hotspot

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/provide-io/jvmci/go/jvmci/pkg/archive"
	"github.com/provide-io/jvmci/go/jvmci/pkg/platform"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

// OutputDir is where make leaves the products of (vm, build):
// <suite>/build/<os>/<os>_<arch>_<variant>/<build>.
func (b *Builder) OutputDir(vm variant.VM, build variant.BuildKind) string {
	osName := b.Platform.HotSpotOS()
	return filepath.Join(b.SuiteDir, "build", osName,
		fmt.Sprintf("%s_%s_%s", osName, b.Platform.Arch, vm.HotSpotName()), string(build))
}

// ResultNames are the build products that make up a VM archive.
func ResultNames(p platform.Platform) []string {
	return []string{
		"jvmti.h",
		"sa-jdi.jar",
		p.Lib("jvm"), p.DebugLib("jvm"),
		p.Lib("saproc"), p.DebugLib("saproc"),
		p.Lib("jsig"), p.DebugLib("jsig"),
	}
}

// Pack collects the results of (vm, build) from OutputDir into the archive
// dst, each stored at the archive root. The first match of a name wins.
// The libjvm library is required; the other results are optional.
func (b *Builder) Pack(vm variant.VM, build variant.BuildKind, dst string, codec archive.Codec) error {
	root := b.OutputDir(vm, build)
	wanted := make(map[string]bool)
	for _, name := range ResultNames(b.Platform) {
		wanted[name] = true
	}

	found := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if !wanted[name] || found[name] != "" {
			return nil
		}
		found[name] = p
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("collecting build results in %s: %w", root, err)
	}
	jvm := b.Platform.Lib("jvm")
	if found[jvm] == "" {
		return fmt.Errorf("%s not found in %s", jvm, root)
	}

	b.Logger.Debug("📦 Packing VM archive", "dst", dst, "results", len(found))
	return archive.Create(dst, codec, func(w *archive.Writer) error {
		for _, name := range ResultNames(b.Platform) {
			src := found[name]
			if src == "" {
				continue
			}
			if err := w.AddFile(src, name); err != nil {
				return err
			}
			// dSYM bundles are directories
			if err := w.AddTree(src, name, nil); err != nil {
				return err
			}
		}
		return nil
	})
}
