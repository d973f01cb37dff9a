// SPDX-License-Identifier: Apache-2.0
// Package launcher runs java from a JVMCI JDK tree with the selected VM and
// JVMCI mode.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/kballard/go-shellquote"

	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
	"github.com/provide-io/jvmci/go/jvmci/pkg/platform"
	"github.com/provide-io/jvmci/go/jvmci/pkg/selection"
)

// Command is a prepared java invocation.
type Command struct {
	Argv []string
	Dir  string
}

func (c Command) String() string {
	return shellquote.Join(c.Argv...)
}

// Launcher builds and runs java command lines.
type Launcher struct {
	Platform  platform.Platform
	Selection *selection.Selection

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger hclog.Logger
}

// New returns a Launcher attached to the standard streams.
func New(p platform.Platform, sel *selection.Selection, logger hclog.Logger) *Launcher {
	return &Launcher{
		Platform:  p,
		Selection: sel,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Logger:    logger.Named("vm"),
	}
}

// Prepare assembles prefix + java + -<vm> + mode flags + args for the JDK
// at tree. cwd is the working directory requested by the caller, if any; it
// must agree with the selection's VMCwd when both are set.
func (l *Launcher) Prepare(tree string, args []string, cwd string) (Command, error) {
	sel := l.Selection
	if !l.Platform.SupportsVM(sel.VM) {
		return Command{}, fmt.Errorf("%w: the %s VM is not supported on %s", jerrors.ErrUnsupportedPlatform, sel.VM, l.Platform)
	}

	dir := cwd
	switch {
	case dir == "":
		dir = sel.VMCwd
	case sel.VMCwd != "" && sel.VMCwd != dir:
		return Command{}, fmt.Errorf("%w: do not set --vmcwd for this command", jerrors.ErrConflictingCwd)
	}

	if i := indexOf(args, "-version"); i >= 0 && i+1 < len(args) {
		l.Logger.Warn("The following options will be ignored by the vm because they come after the '-version' argument",
			"ignored", strings.Join(args[i+1:], " "))
	}

	var argv []string
	if sel.VMPrefix != "" {
		prefix, err := shellquote.Split(sel.VMPrefix)
		if err != nil {
			return Command{}, fmt.Errorf("parsing VM prefix %q: %w", sel.VMPrefix, err)
		}
		argv = append(argv, prefix...)
	}
	argv = append(argv, l.Platform.JavaExecutable(tree), "-"+string(sel.VM))
	argv = append(argv, sel.Mode.VMArgs()...)
	argv = append(argv, args...)
	return Command{Argv: argv, Dir: dir}, nil
}

func indexOf(args []string, s string) int {
	for i, a := range args {
		if a == s {
			return i
		}
	}
	return -1
}

// Run executes cmd and waits for it. A non-zero exit is returned as an
// *exec.ExitError.
func (l *Launcher) Run(ctx context.Context, cmd Command) error {
	l.Logger.Debug("Running", "cmd", cmd.String(), "dir", cmd.Dir)
	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	c.Stdin = l.Stdin
	c.Stdout = l.Stdout
	c.Stderr = l.Stderr
	return c.Run()
}
