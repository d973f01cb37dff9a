// Package export packs the JDK trees into archives for distribution: one
// base JDK per build kind, one archive per VM and one for debug symbols.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/provide-io/jvmci/go/jvmci/pkg/archive"
	"github.com/provide-io/jvmci/go/jvmci/pkg/jdk"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

// Info is the metadata stored as JSON in every archive.
type Info struct {
	Timestamp    float64 `json:"timestamp"`
	Revision     string  `json:"revision"`
	JDKVersion   string  `json:"jdkversion"`
	Architecture string  `json:"architecture"`
	Platform     string  `json:"platform"`
	Hostname     string  `json:"hostname"`
	VMBuild      string  `json:"vmbuild,omitempty"`
	VM           string  `json:"vm,omitempty"`
}

// debugSuffixes mark debug symbol files, which go to a separate archive.
var debugSuffixes = []string{".debuginfo", ".pdb", ".dSYM"}

func isDebugFile(name string) bool {
	for _, s := range debugSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// Exporter writes archives for every existing tree of an installation.
type Exporter struct {
	Installation *jdk.Installation
	OutDir       string
	Codec        archive.Codec
	Info         Info
	Logger       hclog.Logger
}

// Export writes the archives and returns their paths. Trees are packed in
// parallel.
func (e *Exporter) Export(ctx context.Context) ([]string, error) {
	trees, err := e.Installation.Trees()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(e.OutDir, 0o755); err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		written []string
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, tree := range trees {
		g.Go(func() error {
			paths, err := e.exportTree(ctx, tree)
			mu.Lock()
			written = append(written, paths...)
			mu.Unlock()
			return err
		})
	}
	err = g.Wait()
	return written, err
}

func (e *Exporter) fileName(kind, middle string) string {
	name := fmt.Sprintf("graalvm_%s_%s_%s_%s_%s.tar%s",
		kind, e.Info.Revision, e.Info.Platform, e.Info.Architecture, middle, e.Codec.Extension())
	return filepath.Join(e.OutDir, name)
}

func (e *Exporter) infoJSON(build variant.BuildKind, vm string) ([]byte, error) {
	info := e.Info
	info.VMBuild = string(build)
	info.VM = vm
	return json.Marshal(info)
}

func (e *Exporter) exportTree(ctx context.Context, tree jdk.Tree) ([]string, error) {
	var written []string
	build := tree.Build
	root := tree.Dir

	var vmDirs []string
	base := e.fileName("basejdk", string(build))
	e.Logger.Debug("Creating base JDK archive", "path", base)
	err := archive.Create(base, e.Codec, func(w *archive.Writer) error {
		err := w.AddTree(root, string(build), func(rel string, d fs.DirEntry) bool {
			if d.IsDir() && isVMDir(d.Name()) {
				vmDirs = append(vmDirs, rel)
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
		return e.addInfo(w, "basejdk-"+string(build), build, "")
	})
	if err != nil {
		return written, fmt.Errorf("exporting %s: %w", build, err)
	}
	written = append(written, base)

	for _, rel := range vmDirs {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		paths, err := e.exportVM(root, rel, build)
		written = append(written, paths...)
		if err != nil {
			return written, fmt.Errorf("exporting %s %s: %w", build, path.Base(rel), err)
		}
	}
	return written, nil
}

func isVMDir(name string) bool {
	for _, vm := range variant.VMs {
		if name == string(vm) {
			return true
		}
	}
	return false
}

func (e *Exporter) exportVM(root, rel string, build variant.BuildKind) ([]string, error) {
	vm := path.Base(rel)
	dir := filepath.Join(root, filepath.FromSlash(rel))
	prefix := path.Join(string(build), rel)
	middle := string(build) + "_" + vm

	var debugFiles []string
	vmArchive := e.fileName("vm", middle)
	e.Logger.Debug("Creating VM archive", "path", vmArchive)
	err := archive.Create(vmArchive, e.Codec, func(w *archive.Writer) error {
		err := w.AddTree(dir, prefix, func(r string, d fs.DirEntry) bool {
			if isDebugFile(d.Name()) {
				debugFiles = append(debugFiles, r)
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
		return e.addInfo(w, "vm-"+string(build)+"-"+vm, build, vm)
	})
	if err != nil {
		return nil, err
	}
	written := []string{vmArchive}
	if len(debugFiles) == 0 {
		return written, nil
	}

	debugArchive := e.fileName("debugfilesvm", middle)
	e.Logger.Debug("Creating debug files archive", "path", debugArchive)
	err = archive.Create(debugArchive, e.Codec, func(w *archive.Writer) error {
		for _, r := range debugFiles {
			src := filepath.Join(dir, filepath.FromSlash(r))
			info, err := os.Lstat(src)
			if err != nil {
				return err
			}
			// macOS symbol bundles are directories
			if info.IsDir() {
				err = w.AddTree(src, path.Join(prefix, r), nil)
			} else {
				err = w.AddFile(src, path.Join(prefix, r))
			}
			if err != nil {
				return err
			}
		}
		return e.addInfo(w, "debugfilesvm-"+string(build)+"-"+vm, build, vm)
	})
	if err != nil {
		return written, err
	}
	return append(written, debugArchive), nil
}

func (e *Exporter) addInfo(w *archive.Writer, suffix string, build variant.BuildKind, vm string) error {
	data, err := e.infoJSON(build, vm)
	if err != nil {
		return err
	}
	return w.AddData("export-"+suffix+".json", append(data, '\n'), 0o644)
}

// NewInfo fills in the host dependent fields of Info.
func NewInfo(revision, jdkVersion, arch, platformName string, now time.Time) Info {
	host, _ := os.Hostname()
	return Info{
		Timestamp:    float64(now.UnixNano()) / float64(time.Second),
		Revision:     revision,
		JDKVersion:   jdkVersion,
		Architecture: arch,
		Platform:     platformName,
		Hostname:     host,
	}
}
