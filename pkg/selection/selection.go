// Package selection holds the VM, build kind and JVMCI mode that commands
// operate on, with scoped overrides that always restore the previous value.
package selection

import (
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

// Triple is the part of a selection that scoped overrides swap.
type Triple struct {
	VM    variant.VM
	Build variant.BuildKind
	Mode  variant.JVMCIMode
}

// Selection is the active selection of a command invocation. It is not safe
// for concurrent mutation; overrides follow strict stack discipline.
type Selection struct {
	Triple

	// VMCwd is the directory to switch to before running the VM.
	VMCwd string
	// VMPrefix is prepended to the java command line (e.g. "gdb --args").
	VMPrefix string
	// InstalledJDKs overrides the base directory of the cloned JDKs.
	InstalledJDKs string

	depth int
}

// New returns a selection with the defaults: server VM, first build kind,
// hosted mode.
func New() *Selection {
	return &Selection{
		Triple: Triple{
			VM:    variant.Server,
			Build: variant.DefaultBuildKind(),
			Mode:  variant.DefaultJVMCIMode,
		},
	}
}

// Override describes a scoped change. Empty fields keep the current value.
type Override struct {
	VM    variant.VM
	Build variant.BuildKind
	Mode  variant.JVMCIMode
}

// Push installs o and returns the function restoring the previous triple.
// Callers must defer the returned function.
func (s *Selection) Push(o Override) (restore func()) {
	previous := s.Triple
	if o.VM != "" {
		s.VM = o.VM
	}
	if o.Build != "" {
		s.Build = o.Build
	}
	if o.Mode != "" {
		s.Mode = o.Mode
	}
	s.depth++
	restored := false
	return func() {
		if restored {
			return
		}
		restored = true
		s.Triple = previous
		s.depth--
	}
}

// With runs fn with o installed. The previous triple is restored however fn
// exits, including by panic.
func (s *Selection) With(o Override, fn func() error) error {
	restore := s.Push(o)
	defer restore()
	return fn()
}

// Depth returns the number of active overrides.
func (s *Selection) Depth() int { return s.depth }

// Snapshot returns a copy of the current triple.
func (s *Selection) Snapshot() Triple { return s.Triple }
