package pkg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/provide-io/jvmci/go/jvmci/pkg/deploy"
	"github.com/provide-io/jvmci/go/jvmci/pkg/jdk"
	"github.com/provide-io/jvmci/go/jvmci/pkg/release"
	"github.com/provide-io/jvmci/go/jvmci/pkg/utils/permissions"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

// VerifyTrees checks that every existing tree is a usable JVMCI JDK. The
// launcher and libjli must exist, jvm.cfg must declare the original and the
// active VM KNOWN with a library, deployed jars must be in place and the
// release file must record a jvmci revision.
func (s *Session) VerifyTrees(ctx context.Context) error {
	in, err := s.Installation(ctx)
	if err != nil {
		return err
	}
	d, err := s.Deployer(ctx)
	if err != nil {
		return err
	}
	trees, err := in.Trees()
	if err != nil {
		return err
	}
	if len(trees) == 0 {
		s.Logger.Warn("⚠️ No JDK trees to verify", "dir", in.Dir)
		return nil
	}

	logger := s.Logger.Named("verify")
	var errors []string
	check := func(tree jdk.Tree, what string, err error) {
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s %s: %v", tree.Build, what, err))
			logger.Error(what+" check failed", "build", tree.Build, "error", err)
			return
		}
		logger.Info("✓ "+what, "build", tree.Build)
	}

	vm := s.Selection.VM
	for _, tree := range trees {
		logger.Info("Verifying JDK tree", "dir", tree.Dir)
		check(tree, "java launcher", s.checkLauncher(tree.Dir))
		check(tree, "jli library", s.checkJli(tree.Dir))
		check(tree, "original VM", s.checkVM(in, tree.Dir, variant.Original))
		check(tree, string(vm)+" VM", s.checkVM(in, tree.Dir, vm))
		for _, a := range d.Artifacts {
			jar, ok := a.(deploy.JarArtifact)
			if !ok {
				continue
			}
			dist := d.Registry.Distribution(jar.Name)
			if !dist.Exists() {
				logger.Debug("Distribution not built, not checking", "dist", dist.Name)
				continue
			}
			check(tree, jar.Name, requireFile(filepath.Join(jar.Target(tree.Dir), filepath.Base(dist.Path))))
		}
		check(tree, "release file", checkRelease(tree.Dir))
	}

	if len(errors) == 0 {
		logger.Info("✓ JDK tree verification passed", "trees", len(trees))
		return nil
	}
	logger.Error("✗ JDK tree verification failed", "error_count", len(errors))
	for _, e := range errors {
		logger.Error("  Verification error", "details", e)
	}
	return fmt.Errorf("%w: %d problem(s)", ErrVerificationFailed, len(errors))
}

func (s *Session) checkVM(in *jdk.Installation, tree string, vm variant.VM) error {
	if err := in.CheckVMExists(tree, vm); err != nil {
		return err
	}
	return requireFile(filepath.Join(s.Platform.VMLibDir(tree), string(vm), s.Platform.Lib("jvm")))
}

func (s *Session) checkLauncher(tree string) error {
	java := s.Platform.JavaExecutable(tree)
	if err := requireFile(java); err != nil {
		return err
	}
	if !s.Platform.HasPOSIXPermissions() {
		return nil
	}
	info, err := os.Stat(java)
	if err != nil {
		return err
	}
	if !permissions.IsExecutable(info.Mode()) {
		return fmt.Errorf("%s is not executable (mode %s)", java, permissions.FormatOctal(info.Mode()))
	}
	return nil
}

func (s *Session) checkJli(tree string) error {
	name := s.Platform.Lib("jli")
	dirs := s.Platform.JliLibDirs(tree)
	for _, dir := range dirs {
		if requireFile(filepath.Join(dir, name)) == nil {
			return nil
		}
	}
	return fmt.Errorf("%s not found in %v", name, dirs)
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

// checkRelease accepts a tree without release file; bootstrap JDKs do not
// always ship one.
func checkRelease(tree string) error {
	data, err := os.ReadFile(filepath.Join(tree, release.FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if _, ok := release.Revision(data); !ok {
		return fmt.Errorf("no jvmci revision recorded in %s", release.FileName)
	}
	return nil
}
