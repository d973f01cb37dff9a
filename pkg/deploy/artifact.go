// Package deploy installs build outputs into every JVMCI JDK tree.
package deploy

import (
	"path/filepath"
	"strings"

	"github.com/provide-io/jvmci/go/jvmci/pkg/selection"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

// Artifact is something deployed into a JDK tree. The set of kinds is
// closed: JarArtifact and VMArchiveArtifact.
type Artifact interface {
	// Dist returns the distribution name for the active selection.
	Dist(active selection.Triple) string

	artifact()
}

// JarArtifact copies a single file, and its sources companion when one was
// built, into a fixed directory of the tree.
type JarArtifact struct {
	Name string
	// TargetDir is relative to the tree root, slash separated.
	TargetDir string
}

func (a JarArtifact) Dist(selection.Triple) string { return a.Name }
func (JarArtifact) artifact()                      {}

// Target returns the absolute target directory inside tree.
func (a JarArtifact) Target(tree string) string {
	return filepath.Join(tree, filepath.FromSlash(a.TargetDir))
}

// VMArchiveArtifact extracts the libraries of one VM variant from the
// archive produced by the native build. NameTemplate may contain <vm> and
// <vmbuild>.
type VMArchiveArtifact struct {
	NameTemplate string
}

func (a VMArchiveArtifact) Dist(active selection.Triple) string {
	return VMArchiveName(a.NameTemplate, active.VM, active.Build)
}

func (VMArchiveArtifact) artifact() {}

// VMArchiveName instantiates a VM archive name template.
func VMArchiveName(template string, vm variant.VM, build variant.BuildKind) string {
	return strings.NewReplacer("<vmbuild>", string(build), "<vm>", string(vm)).Replace(template)
}

// Distribution names of the artifacts deployed by default.
const (
	JVMCIServices   = "JVMCI_SERVICES"
	JVMCIAPI        = "JVMCI_API"
	JVMCIHotSpot    = "JVMCI_HOTSPOT"
	VMArchivePrefix = "JVM_"

	// VMArchiveTemplate names the archive of one native build.
	VMArchiveTemplate = VMArchivePrefix + "<vmbuild>_<vm>"
)

// DefaultArtifacts is the ordered list deployed by DeployAll.
func DefaultArtifacts() []Artifact {
	return []Artifact{
		JarArtifact{Name: JVMCIServices, TargetDir: "jre/lib"},
		JarArtifact{Name: JVMCIAPI, TargetDir: "jre/lib/jvmci"},
		JarArtifact{Name: JVMCIHotSpot, TargetDir: "jre/lib/jvmci"},
		VMArchiveArtifact{NameTemplate: VMArchiveTemplate},
	}
}
