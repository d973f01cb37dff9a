// Package cache resolves where downloaded helper binaries are kept
package cache

import (
	"os"
	"path/filepath"
	"runtime"
)

// GetCacheRoot returns the root cache directory
func GetCacheRoot() string {
	// Check environment variable first
	if cacheDir := os.Getenv("JVMCI_CACHE_DIR"); cacheDir != "" {
		return cacheDir
	}

	// Use platform-specific defaults
	switch runtime.GOOS {
	case "darwin":
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, "Library", "Caches", "jvmci")
		}
	case "linux":
		if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
			return filepath.Join(xdgCache, "jvmci")
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".cache", "jvmci")
		}
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "jvmci", "cache")
		}
	}

	// Fallback to temp directory
	return filepath.Join(os.TempDir(), "jvmci", "cache")
}

// Path returns the cache location of a named entry, creating its directory.
func Path(root string, elem ...string) (string, error) {
	if root == "" {
		root = GetCacheRoot()
	}
	p := filepath.Join(append([]string{root}, elem...)...)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	return p, nil
}
