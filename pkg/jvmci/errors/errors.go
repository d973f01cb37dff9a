package errors

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors ⚙️
	ErrUnsupportedPlatform = errors.New("❌ unsupported platform")
	ErrUnknownBuildKind    = errors.New("❌ unknown VM build")
	ErrUnknownVM           = errors.New("❌ unknown VM")
	ErrUnknownJVMCIMode    = errors.New("❌ unknown JVMCI mode")

	// Bootstrap errors ☕
	ErrNoBootstrapJDK   = errors.New("❌ no suitable bootstrap JDK")
	ErrCorruptBootstrap = errors.New("❌ corrupt bootstrap JDK")

	// Build errors 🔨
	ErrBuildFailed    = errors.New("❌ native build failed")
	ErrBuildForbidden = errors.New("❌ build not allowed for this VM")

	// Installation errors 📂
	ErrLocked            = errors.New("❌ installation root is locked by another process")
	ErrHelperUnavailable = errors.New("⚠️ helper library unavailable")
	ErrConflictingCwd    = errors.New("❌ conflicting working directories")
	ErrInsufficientSpace = errors.New("❌ insufficient disk space")
)

// MissingInstallationError reports that the JDK tree for a build kind has not
// been created yet. The caller decides whether to offer creating it.
type MissingInstallationError struct {
	Build string
	VM    string
	Dir   string
}

func (e *MissingInstallationError) Error() string {
	return fmt.Sprintf("the %s %s VM has not been created (%s)", e.Build, e.VM, e.Dir)
}

// Hint returns the command line that creates the missing installation.
func (e *MissingInstallationError) Hint() string {
	return fmt.Sprintf("jvmci-go --vm=%s --vmbuild=%s build", e.VM, e.Build)
}

// IsMissingInstallation reports whether err is, or wraps, a MissingInstallationError.
func IsMissingInstallation(err error) (*MissingInstallationError, bool) {
	var missing *MissingInstallationError
	if errors.As(err, &missing) {
		return missing, true
	}
	return nil, false
}
