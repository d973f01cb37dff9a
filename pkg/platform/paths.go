package platform

import (
	"path/filepath"
	"strings"

	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

// JvmCfgName is the name of the launcher's VM registry file.
const JvmCfgName = "jvm.cfg"

// JdkTreeRoot returns the home directory of the JDK tree for build under
// installRoot.
func (p Platform) JdkTreeRoot(installRoot string, build variant.BuildKind) string {
	if p.IsBundleLayout() {
		return filepath.Join(installRoot, string(build), BundleHome)
	}
	return filepath.Join(installRoot, string(build))
}

// BundleRoot strips the bundle nesting from a JDK home, if present.
func (p Platform) BundleRoot(jdkHome string) string {
	suffix := string(filepath.Separator) + BundleHome
	if p.IsBundleLayout() && strings.HasSuffix(jdkHome, suffix) {
		return strings.TrimSuffix(jdkHome, suffix)
	}
	return jdkHome
}

// RelativeVMLibDir is VMLibDir relative to the tree root.
func (p Platform) RelativeVMLibDir() string {
	switch p.Family {
	case Darwin:
		return filepath.Join("jre", "lib")
	case Windows, Cygwin:
		return filepath.Join("jre", "bin")
	case Linux, Solaris:
		return filepath.Join("jre", "lib", p.Arch)
	}
	return p.unreachable()
}

// VMLibDir returns the directory holding the per-VM sub-directories
// (server, client, original) and jvm.cfg on most platforms.
func (p Platform) VMLibDir(jdkTree string) string {
	return filepath.Join(jdkTree, p.RelativeVMLibDir())
}

// JvmCfgFile returns the location of jvm.cfg inside a tree.
func (p Platform) JvmCfgFile(jdkTree string) string {
	switch p.Family {
	case Windows, Cygwin:
		return filepath.Join(jdkTree, "jre", "lib", p.Arch, JvmCfgName)
	case Darwin, Linux, Solaris:
		return filepath.Join(p.VMLibDir(jdkTree), JvmCfgName)
	}
	return p.unreachable()
}

// JliLibDirs returns the directories holding the jli launcher library.
func (p Platform) JliLibDirs(jdkTree string) []string {
	switch p.Family {
	case Darwin:
		return []string{filepath.Join(jdkTree, "jre", "lib", "jli")}
	case Windows, Cygwin:
		return []string{filepath.Join(jdkTree, "jre", "bin"), filepath.Join(jdkTree, "bin")}
	case Linux, Solaris:
		return []string{
			filepath.Join(jdkTree, "jre", "lib", p.Arch, "jli"),
			filepath.Join(jdkTree, "lib", p.Arch, "jli"),
		}
	}
	p.unreachable()
	return nil
}

// JavaExecutable returns the java launcher of a tree.
func (p Platform) JavaExecutable(jdkTree string) string {
	return filepath.Join(jdkTree, "bin", p.Exe("java"))
}

// Exe adds the executable suffix.
func (p Platform) Exe(name string) string {
	if p.IsWindows() && !strings.HasSuffix(name, ".exe") {
		return name + ".exe"
	}
	return name
}

// LibSuffix returns the shared library suffix including the dot.
func (p Platform) LibSuffix() string {
	switch p.Family {
	case Darwin:
		return ".dylib"
	case Windows, Cygwin:
		return ".dll"
	case Linux, Solaris:
		return ".so"
	}
	return p.unreachable()
}

// Lib decorates a library base name, e.g. jvm -> libjvm.so.
func (p Platform) Lib(name string) string {
	return p.libPrefix() + name + p.LibSuffix()
}

// DebugLib decorates the debug-info companion of a library,
// e.g. jvm -> libjvm.debuginfo.
func (p Platform) DebugLib(name string) string {
	switch p.Family {
	case Darwin:
		return p.libPrefix() + name + ".dylib.dSYM"
	case Windows, Cygwin:
		return name + ".pdb"
	case Linux, Solaris:
		return p.libPrefix() + name + ".debuginfo"
	}
	return p.unreachable()
}

func (p Platform) libPrefix() string {
	if p.IsWindows() {
		return ""
	}
	return "lib"
}
