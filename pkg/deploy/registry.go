package deploy

import (
	"path/filepath"
	"strings"

	"github.com/provide-io/jvmci/go/jvmci/internal/fileutils"
)

// Distribution is a build output ready to be deployed.
type Distribution struct {
	Name string
	Path string
	// SourcesPath is the companion sources archive; it may not exist.
	SourcesPath string
}

// Exists reports whether the distribution has been built.
func (d Distribution) Exists() bool {
	return d.Path != "" && fileutils.Exists(d.Path)
}

// HasSources reports whether a sources companion has been built.
func (d Distribution) HasSources() bool {
	return d.SourcesPath != "" && fileutils.Exists(d.SourcesPath)
}

// Registry resolves distribution names to build outputs.
type Registry interface {
	Distribution(name string) Distribution
}

// DirRegistry finds distributions in a single output directory using the
// mx naming scheme: JVMCI_API -> jvmci-api.jar, jvmci-api.src.zip;
// JVM_product_server -> jvm-product-server.tar[.gz|.bz2|.xz].
type DirRegistry struct {
	Dir string
}

// Slug is the file stem for a distribution name.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

var archiveSuffixes = []string{".tar", ".tar.gz", ".tgz", ".tar.bz2", ".tar.xz"}

func (r DirRegistry) Distribution(name string) Distribution {
	stem := filepath.Join(r.Dir, Slug(name))
	if strings.HasPrefix(name, VMArchivePrefix) {
		for _, suffix := range archiveSuffixes {
			if fileutils.Exists(stem + suffix) {
				return Distribution{Name: name, Path: stem + suffix}
			}
		}
		return Distribution{Name: name, Path: stem + archiveSuffixes[0]}
	}
	return Distribution{Name: name, Path: stem + ".jar", SourcesPath: stem + ".src.zip"}
}
