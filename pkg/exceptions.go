package pkg

import (
	"errors"
	"os/exec"

	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
)

// Process exit codes of the command line tool. A VM started by the vm
// command passes its own exit code through.
const (
	ExitSuccess             = 0
	ExitFailure             = 1
	ExitPanic               = 101
	ExitConfigError         = 102
	ExitBootstrapError      = 103
	ExitBuildError          = 104
	ExitInvalidArgs         = 105
	ExitIOError             = 106
	ExitLocked              = 107
	ExitMissingInstallation = 108
	ExitVerificationFailed  = 109
)

// ErrVerificationFailed is returned when a tree does not pass VerifyTrees.
var ErrVerificationFailed = errors.New("❌ JDK tree verification failed")

var exitCodes = []struct {
	err  error
	code int
}{
	{jerrors.ErrUnsupportedPlatform, ExitConfigError},
	{jerrors.ErrUnknownBuildKind, ExitInvalidArgs},
	{jerrors.ErrUnknownVM, ExitInvalidArgs},
	{jerrors.ErrUnknownJVMCIMode, ExitInvalidArgs},
	{jerrors.ErrNoBootstrapJDK, ExitBootstrapError},
	{jerrors.ErrCorruptBootstrap, ExitBootstrapError},
	{jerrors.ErrBuildFailed, ExitBuildError},
	{jerrors.ErrBuildForbidden, ExitBuildError},
	{jerrors.ErrLocked, ExitLocked},
	{jerrors.ErrInsufficientSpace, ExitIOError},
	{jerrors.ErrConflictingCwd, ExitInvalidArgs},
	{ErrVerificationFailed, ExitVerificationFailed},
}

// ExitCode maps an error returned by a Session operation to the process
// exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	if _, ok := jerrors.IsMissingInstallation(err); ok {
		return ExitMissingInstallation
	}
	for _, e := range exitCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return ExitFailure
}
