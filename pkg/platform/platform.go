// Package platform computes where things live inside a JDK tree for each
// supported operating system family.
package platform

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

// Family is an operating system family with its own JDK layout.
type Family int

const (
	Linux Family = iota + 1
	Darwin
	Windows
	Cygwin
	Solaris
)

// BundleHome is the nesting of a JDK inside a macOS application bundle.
var BundleHome = filepath.Join("Contents", "Home")

func (f Family) String() string {
	switch f {
	case Linux:
		return "linux"
	case Darwin:
		return "darwin"
	case Windows:
		return "windows"
	case Cygwin:
		return "cygwin"
	case Solaris:
		return "solaris"
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// ParseFamily maps an OS name as reported by GOOS (or mx) to a Family.
func ParseFamily(name string) (Family, error) {
	switch strings.ToLower(name) {
	case "linux":
		return Linux, nil
	case "darwin", "macos", "macosx":
		return Darwin, nil
	case "windows":
		return Windows, nil
	case "cygwin":
		return Cygwin, nil
	case "solaris", "illumos", "sunos":
		return Solaris, nil
	}
	return 0, fmt.Errorf("%w: %q", jerrors.ErrUnsupportedPlatform, name)
}

// Platform is an (OS family, CPU architecture) pair. Arch uses the JDK's
// naming (amd64, sparcv9, aarch64).
type Platform struct {
	Family Family
	Arch   string
}

// New validates the OS and architecture names.
func New(osName, arch string) (Platform, error) {
	family, err := ParseFamily(osName)
	if err != nil {
		return Platform{}, err
	}
	if arch == "" {
		return Platform{}, fmt.Errorf("%w: empty architecture", jerrors.ErrUnsupportedPlatform)
	}
	return Platform{Family: family, Arch: JDKArch(arch)}, nil
}

// Current returns the platform this process runs on.
func Current() (Platform, error) {
	return New(runtime.GOOS, runtime.GOARCH)
}

// JDKArch translates a Go architecture name to the one used in JDK paths.
func JDKArch(goarch string) string {
	switch goarch {
	case "arm64":
		return "aarch64"
	case "386":
		return "i386"
	case "sparc64":
		return "sparcv9"
	}
	return goarch
}

func (p Platform) String() string {
	return p.Family.String() + "-" + p.Arch
}

// IsWindows is true for the windows family, including cygwin.
func (p Platform) IsWindows() bool {
	return p.Family == Windows || p.Family == Cygwin
}

// HasPOSIXPermissions is false on native windows.
func (p Platform) HasPOSIXPermissions() bool {
	return p.Family != Windows
}

// IsBundleLayout is true when JDKs nest inside an application bundle.
func (p Platform) IsBundleLayout() bool {
	return p.Family == Darwin
}

// SupportsVM reports whether the java launcher on this platform can select vm.
func (p Platform) SupportsVM(vm variant.VM) bool {
	// the macOS launcher translates -client to -server
	if vm == variant.Client && p.Family == Darwin {
		return false
	}
	return true
}

// HotSpotOS returns the OS name used by the HotSpot makefiles.
func (p Platform) HotSpotOS() string {
	if p.Family == Darwin {
		return "bsd"
	}
	return p.Family.String()
}

func (p Platform) unreachable() string {
	panic(fmt.Sprintf("unsupported platform family %v", p.Family))
}
