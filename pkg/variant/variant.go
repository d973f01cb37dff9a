// Package variant enumerates the VM kinds, build kinds and JVMCI modes a
// JVMCI JDK can be built and run with.
package variant

import (
	"fmt"
	"strings"

	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
)

// VM names a HotSpot VM installed in a JDK tree.
type VM string

const (
	Server VM = "server"
	Client VM = "client"
	// Original is the default VM of the bootstrap JDK. It is never rebuilt
	// and only exists as a product build.
	Original VM = "original"
)

// VMs lists the selectable VMs in display order.
var VMs = []VM{Server, Client, Original}

var vmDescriptions = map[VM]string{
	Server: "Normal compilation is performed with a tiered system (C1 + C2 or Graal) and Graal is available for hosted compilation.",
}

// legacy names accepted on the command line
var vmAliases = map[string]VM{
	"jvmci": Server,
	"graal": Server,
}

// Description returns the human readable description, if the VM has one.
func (v VM) Description() (string, bool) {
	d, ok := vmDescriptions[v]
	return d, ok
}

func (v VM) String() string { return string(v) }

// JVMCIEnabled reports whether JVMCI is available in this VM.
func (v VM) JVMCIEnabled() bool { return v != Original }

// HotSpotName returns the name the HotSpot makefiles use for the VM.
func (v VM) HotSpotName() string {
	switch v {
	case Client:
		return "compiler1"
	case Server:
		return "compiler2"
	}
	return string(v)
}

// BuildSuffix returns the suffix appended to the make target for this VM.
func (v VM) BuildSuffix() string {
	if v == Client {
		return "1"
	}
	return ""
}

// ParseVM resolves a VM name, following legacy aliases. The second result
// is true when an alias was used; aliases imply JVMCI mode jit.
func ParseVM(name string) (VM, bool, error) {
	if vm, ok := vmAliases[name]; ok {
		return vm, true, nil
	}
	for _, vm := range VMs {
		if string(vm) == name {
			return vm, false, nil
		}
	}
	return "", false, fmt.Errorf("%w: %q (choose from %s)", jerrors.ErrUnknownVM, name, joinVMs())
}

func joinVMs() string {
	names := make([]string, len(VMs))
	for i, vm := range VMs {
		names[i] = string(vm)
	}
	return strings.Join(names, ", ")
}

// BuildKind is the optimization/debug level of a HotSpot build.
type BuildKind string

const (
	Product   BuildKind = "product"
	FastDebug BuildKind = "fastdebug"
	Debug     BuildKind = "debug"
	Optimized BuildKind = "optimized"
)

// BuildKinds lists the build kinds; the first one is the default.
var BuildKinds = []BuildKind{Product, FastDebug, Debug, Optimized}

// DefaultBuildKind is the build used when none is selected.
func DefaultBuildKind() BuildKind { return BuildKinds[0] }

func (b BuildKind) String() string { return string(b) }

// ParseBuildKind validates a build kind name.
func ParseBuildKind(name string) (BuildKind, error) {
	for _, b := range BuildKinds {
		if string(b) == name {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", jerrors.ErrUnknownBuildKind, name)
}

// IsBuildKind reports whether name is one of the known build kinds.
func IsBuildKind(name string) bool {
	_, err := ParseBuildKind(name)
	return err == nil
}

// Exists reports whether a (vm, build) combination can exist in a tree.
func Exists(vm VM, build BuildKind) bool {
	return vm != Original || build == Product
}
