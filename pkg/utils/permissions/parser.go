// Package permissions provides the permission bits applied inside JDK trees
package permissions

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Unix permissions applied to files installed into a JDK
const (
	JDKDirPerms  = 0o755
	JDKFilePerms = 0o644
	JDKExecPerms = 0o755
)

// ParseOctalString parses an octal permission string.
// Handles formats like "755", "0755", "0o755". An empty string yields def.
func ParseOctalString(s string, def os.FileMode) (os.FileMode, error) {
	if s == "" {
		return def, nil
	}

	// Remove common prefixes
	s = strings.TrimPrefix(s, "0o")
	s = strings.TrimPrefix(s, "0")

	// Parse as octal
	val, err := strconv.ParseUint(s, 8, 16)
	if err != nil {
		return def, fmt.Errorf("invalid permission string %q: %w", s, err)
	}
	if val > 0o7777 {
		return def, fmt.Errorf("invalid permission string %q: out of range", s)
	}

	return os.FileMode(val), nil
}

// FormatOctal formats a permission value as an octal string
func FormatOctal(perm os.FileMode) string {
	return fmt.Sprintf("0%o", uint32(perm.Perm()))
}

// IsExecutable checks if permissions include execute bit for owner
func IsExecutable(perm os.FileMode) bool {
	return perm&0o100 != 0
}
