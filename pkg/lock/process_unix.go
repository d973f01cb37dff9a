//go:build !windows

package lock

import (
	"os"
	"syscall"
)

// isProcessRunning checks if a process with given PID is still running
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, Signal(0) checks if process exists without actually sending a signal
	return process.Signal(syscall.Signal(0)) == nil
}
