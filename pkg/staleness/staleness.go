// Package staleness decides whether the native VM has to be rebuilt by
// comparing source timestamps against the newest build output.
package staleness

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Decision is the result of a rebuild check.
type Decision struct {
	Needed bool
	Reason string
}

func (d Decision) String() string {
	if !d.Needed {
		return "up to date"
	}
	return d.Reason
}

// Exclusions are directories, relative to the suite directory, whose
// contents never trigger a rebuild.
type Exclusions struct {
	dirs map[string]bool
}

// NewExclusions validates paths against the source directories. Each path
// must be relative, stay inside the suite and lie below one of sourceDirs.
func NewExclusions(sourceDirs []string, paths ...string) (Exclusions, error) {
	ex := Exclusions{dirs: make(map[string]bool, len(paths))}
	for _, p := range paths {
		clean, err := cleanRelative(p)
		if err != nil {
			return Exclusions{}, fmt.Errorf("invalid exclusion %q: %w", p, err)
		}
		if !underAny(clean, sourceDirs) {
			return Exclusions{}, fmt.Errorf("invalid exclusion %q: not inside a source directory (%s)",
				p, strings.Join(sourceDirs, ", "))
		}
		ex.dirs[clean] = true
	}
	return ex, nil
}

// Add returns ex extended by more validated paths, e.g. per platform.
func (ex Exclusions) Add(sourceDirs []string, paths ...string) (Exclusions, error) {
	more, err := NewExclusions(sourceDirs, paths...)
	if err != nil {
		return Exclusions{}, err
	}
	for d := range ex.dirs {
		more.dirs[d] = true
	}
	return more, nil
}

// Contains reports whether rel, slash separated and relative to the suite
// directory, is an excluded directory.
func (ex Exclusions) Contains(rel string) bool {
	return ex.dirs[rel]
}

// Len is the number of excluded directories.
func (ex Exclusions) Len() int { return len(ex.dirs) }

func cleanRelative(p string) (string, error) {
	slashed := filepath.ToSlash(p)
	if slashed == "" || path.IsAbs(slashed) || filepath.IsAbs(p) {
		return "", errors.New("must be a relative path")
	}
	clean := path.Clean(slashed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.New("must stay inside the suite directory")
	}
	return clean, nil
}

func underAny(p string, dirs []string) bool {
	for _, d := range dirs {
		d = path.Clean(filepath.ToSlash(d))
		if p != d && strings.HasPrefix(p, d+"/") {
			return true
		}
	}
	return false
}

// Checker walks the source directories of a suite.
type Checker struct {
	SuiteDir   string
	SourceDirs []string
	Exclusions Exclusions
	Logger     hclog.Logger
}

// NeedsRebuild compares every regular file in the source directories with
// newestOutput. An empty newestOutput means nothing was ever built.
func (c *Checker) NeedsRebuild(newestOutput string) (Decision, error) {
	if newestOutput == "" {
		return Decision{Needed: true, Reason: "no baseline"}, nil
	}
	baseline, err := os.Stat(newestOutput)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Decision{Needed: true, Reason: newestOutput + " does not exist"}, nil
		}
		return Decision{}, err
	}
	since := baseline.ModTime()

	for _, dir := range c.SourceDirs {
		d, err := c.walk(dir, newestOutput, since)
		if err != nil || d.Needed {
			return d, err
		}
	}
	c.Logger.Debug("Sources are older than the build output", "output", newestOutput)
	return Decision{}, nil
}

var errFound = errors.New("found newer file")

func (c *Checker) walk(dir, newestOutput string, since time.Time) (Decision, error) {
	var decision Decision
	root := filepath.Join(c.SuiteDir, filepath.FromSlash(dir))
	// a source dir may itself be a link; entries are reported under root
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return decision, nil
		}
		return decision, err
	}
	err = filepath.WalkDir(resolved, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		sub, err := filepath.Rel(resolved, p)
		if err != nil {
			return err
		}
		logical := filepath.Join(root, sub)
		if d.IsDir() {
			rel, err := filepath.Rel(c.SuiteDir, logical)
			if err != nil {
				return err
			}
			if c.Exclusions.Contains(filepath.ToSlash(rel)) {
				c.Logger.Trace("Skipping excluded directory", "dir", rel)
				return filepath.SkipDir
			}
			return nil
		}
		var info fs.FileInfo
		switch {
		case d.Type().IsRegular():
			info, err = d.Info()
		case d.Type()&fs.ModeSymlink != 0:
			info, err = os.Stat(p)
			if errors.Is(err, fs.ErrNotExist) {
				c.Logger.Trace("Skipping dangling link", "path", logical)
				return nil
			}
		default:
			return nil
		}
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if info.ModTime().After(since) {
			decision = Decision{Needed: true, Reason: fmt.Sprintf("%s is newer than %s", logical, newestOutput)}
			return errFound
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return decision, nil
	}
	return decision, err
}
