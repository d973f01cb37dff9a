package bootstrap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is a Java version such as 1.8.0_141, compared component-wise.
type Version struct {
	parts []int
	raw   string
}

var versionSplit = regexp.MustCompile(`[._\-+]`)

// ParseVersion parses a dotted/underscored Java version string.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("empty version")
	}
	var parts []int
	for _, p := range versionSplit.Split(s, -1) {
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(p, "b"))
		if err != nil {
			// stop at qualifiers like "ea" or "internal"
			break
		}
		parts = append(parts, n)
	}
	if len(parts) == 0 {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	return Version{parts: parts, raw: s}, nil
}

// MustParseVersion is ParseVersion for constants.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare returns -1, 0 or 1. Missing components count as zero.
func (v Version) Compare(o Version) int {
	n := len(v.parts)
	if len(o.parts) > n {
		n = len(o.parts)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v.parts) {
			a = v.parts[i]
		}
		if i < len(o.parts) {
			b = o.parts[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports v < o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

func (v Version) String() string { return v.raw }

// Constraint accepts versions in [Min, Until).
type Constraint struct {
	Min   Version
	Until *Version
}

// Allows reports whether v satisfies the constraint.
func (c Constraint) Allows(v Version) bool {
	if v.Less(c.Min) {
		return false
	}
	return c.Until == nil || v.Less(*c.Until)
}

func (c Constraint) String() string {
	s := ">=" + c.Min.String()
	if c.Until != nil {
		s += " and <" + c.Until.String()
	}
	return s
}

var javaVersionLine = regexp.MustCompile(`(?m)^(\S+) version "([^"]+)"`)

// parseJavaVersionOutput extracts the version and vendor flavour from the
// output of "java -version".
func parseJavaVersionOutput(out string) (Version, bool, error) {
	m := javaVersionLine.FindStringSubmatch(out)
	if m == nil {
		return Version{}, false, fmt.Errorf("unrecognized java -version output: %q", firstLine(out))
	}
	v, err := ParseVersion(m[2])
	if err != nil {
		return Version{}, false, err
	}
	return v, strings.Contains(strings.ToLower(out), "openjdk"), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
