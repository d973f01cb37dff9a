// Package lock guards an installation root against concurrent writers with a
// pid lock file.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
)

// Lock is a held lock file.
type Lock struct {
	path   string
	logger hclog.Logger
}

// PathFor returns the lock file used for an installation root. It lives next
// to the root so it never shows up as a JDK tree.
func PathFor(root string) string {
	root = filepath.Clean(root)
	return filepath.Join(filepath.Dir(root), "."+filepath.Base(root)+".lock")
}

// TryAcquire attempts to take the lock for root. It returns ErrLocked when a
// live process holds it. Locks left behind by dead processes are removed.
func TryAcquire(root string, logger hclog.Logger) (*Lock, error) {
	lockPath := PathFor(root)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	// Check for stale lock first
	if data, err := os.ReadFile(lockPath); err == nil {
		logger.Debug("🔍 Lock file exists, checking if it's stale...", "path", lockPath)
		contents := strings.TrimSpace(string(data))
		if oldPid, err := strconv.Atoi(contents); err == nil {
			if oldPid != os.Getpid() && isProcessRunning(oldPid) {
				logger.Debug("🔒 Lock held by active process", "pid", oldPid)
				return nil, fmt.Errorf("%w: pid %d holds %s", jerrors.ErrLocked, oldPid, lockPath)
			}
			logger.Info("🧹 Removing stale lock from dead process", "pid", oldPid)
		} else {
			logger.Info("🧹 Removing invalid lock file (couldn't parse PID)")
		}
		os.Remove(lockPath)
	}

	// Try to create lock file exclusively
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", jerrors.ErrLocked, lockPath)
		}
		return nil, err
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		os.Remove(lockPath)
		return nil, err
	}

	logger.Debug("🔒 Acquired installation lock", "path", lockPath)
	return &Lock{path: lockPath, logger: logger}, nil
}

// Acquire retries TryAcquire until it succeeds or timeout elapses.
func Acquire(root string, timeout time.Duration, logger hclog.Logger) (*Lock, error) {
	deadline := time.Now().Add(timeout)
	for attempt := 0; ; attempt++ {
		l, err := TryAcquire(root, logger)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, jerrors.ErrLocked) || time.Now().After(deadline) {
			return nil, err
		}
		if attempt%10 == 0 {
			logger.Info("⏳ Waiting for installation lock...", "root", root)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Release removes the lock file.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	if err := os.Remove(l.path); err != nil {
		l.logger.Debug("⚠️ Failed to remove lock file", "error", err)
	} else {
		l.logger.Debug("🔓 Released installation lock")
	}
}
