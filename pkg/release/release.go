// Package release rewrites the SOURCE line of a JDK's release file to record
// the JVMCI revision.
package release

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/jvmci/go/jvmci/internal/atomicfile"
)

// FileName is the metadata file at the root of a JDK.
const FileName = "release"

// UnknownRevision is recorded when no version control is available.
const UnknownRevision = "unknown"

// revisionLength is how much of a revision id is recorded.
const revisionLength = 12

const (
	sourcePrefix = `SOURCE="`
	sourceSuffix = `"`
)

// Result describes what PatchFile did.
type Result struct {
	Patched  bool
	Warnings []string
}

// PatchFile updates <tree>/release. A missing file is not an error. Lines
// that cannot be parsed are kept as they are and reported as warnings.
func PatchFile(tree, revision string, perm os.FileMode, logger hclog.Logger) (Result, error) {
	path := filepath.Join(tree, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}

	out, res := Patch(data, revision)
	for _, w := range res.Warnings {
		logger.Warn("⚠️ Could not update release file", "path", path, "problem", w)
	}
	if !res.Patched {
		return res, nil
	}
	if err := atomicfile.WriteFile(path, out, perm); err != nil {
		return res, fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Debug("📝 Updated release file", "path", path)
	return res, nil
}

// Patch applies the SOURCE rewrite to the contents of a release file. All
// other lines, including their line endings, are copied verbatim.
func Patch(data []byte, revision string) ([]byte, Result) {
	var res Result
	var out bytes.Buffer
	rest := data
	for len(rest) > 0 {
		line := rest
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i+1]
		}
		rest = rest[len(line):]

		body := string(line)
		eol := ""
		for _, e := range []string{"\r\n", "\n"} {
			if strings.HasSuffix(body, e) {
				body, eol = strings.TrimSuffix(body, e), e
				break
			}
		}
		trimmed := strings.TrimSpace(body)
		if !isSourceLine(trimmed) {
			out.Write(line)
			continue
		}
		patched, err := patchSource(trimmed, revision)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			out.Write(line)
			continue
		}
		if eol == "" {
			eol = "\n"
		}
		out.WriteString(patched + eol)
		res.Patched = true
	}
	return out.Bytes(), res
}

func isSourceLine(s string) bool {
	return len(s) >= len(sourcePrefix)+len(sourceSuffix) &&
		strings.HasPrefix(s, sourcePrefix) && strings.HasSuffix(s, sourceSuffix)
}

func parseSource(line string) (*orderedMap, error) {
	body := line[len(sourcePrefix) : len(line)-len(sourceSuffix)]
	versions := newOrderedMap()
	for _, p := range strings.Split(body, " ") {
		if p == "" {
			continue
		}
		idx := strings.IndexByte(p, ':')
		if idx < 0 {
			return nil, fmt.Errorf("malformed SOURCE entry %q", p)
		}
		versions.Set(p[:idx], p[idx+1:])
	}
	return versions, nil
}

// Revision returns the jvmci revision recorded in the contents of a release
// file, if any.
func Revision(data []byte) (string, bool) {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !isSourceLine(line) {
			continue
		}
		versions, err := parseSource(line)
		if err != nil {
			continue
		}
		if rev, ok := versions.values["jvmci"]; ok {
			return rev, true
		}
	}
	return "", false
}

func patchSource(line, revision string) (string, error) {
	versions, err := parseSource(line)
	if err != nil {
		return "", err
	}
	versions.Delete("hotspot")
	versions.Set("jvmci", shorten(revision))

	var b strings.Builder
	b.WriteString(sourcePrefix)
	for _, k := range versions.keys {
		b.WriteString(" ")
		b.WriteString(k + ":" + versions.values[k])
	}
	b.WriteString(sourceSuffix)
	return b.String(), nil
}

func shorten(revision string) string {
	if revision == "" {
		return UnknownRevision
	}
	if len(revision) > revisionLength {
		return revision[:revisionLength]
	}
	return revision
}

// orderedMap keeps insertion order; overwriting keeps the original position.
type orderedMap struct {
	keys   []string
	values map[string]string
}

func newOrderedMap() *orderedMap {
	return &orderedMap{values: map[string]string{}}
}

func (m *orderedMap) Set(k, v string) {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

func (m *orderedMap) Delete(k string) {
	if _, ok := m.values[k]; !ok {
		return
	}
	delete(m.values, k)
	for i, key := range m.keys {
		if key == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}
