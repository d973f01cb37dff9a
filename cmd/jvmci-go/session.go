package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/provide-io/jvmci/go/jvmci/pkg"
	"github.com/provide-io/jvmci/go/jvmci/pkg/config"
	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
	"github.com/provide-io/jvmci/go/jvmci/pkg/logging"
	"github.com/provide-io/jvmci/go/jvmci/pkg/selection"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

func joinNames[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return strings.Join(names, ",")
}

// openSession loads the configuration and applies the global flags on top
// of it.
func openSession() (*pkg.Session, error) {
	logger := logging.NewLogger("jvmci-go", logging.GetLogLevel(logLevel), nil)

	start := suiteDir
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		start = wd
	}
	dir, err := config.FindSuiteDir(start)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir, configPath)
	if err != nil {
		return nil, err
	}
	if installedJDKs != "" {
		cfg.InstalledJDKs = installedJDKs
	}
	sel, err := pkg.NewSelection(cfg)
	if err != nil {
		return nil, err
	}
	if err := applySelectionFlags(sel, logger); err != nil {
		return nil, err
	}
	logger.Debug("🔍 Selection", "vm", sel.VM, "vmbuild", sel.Build, "mode", sel.Mode, "suite", dir)

	return pkg.Open(pkg.Options{
		Config:    cfg,
		Selection: sel,
		Verbose:   verbose,
		Logger:    logger,
	})
}

func applySelectionFlags(sel *selection.Selection, logger hclog.Logger) error {
	if vmName != "" {
		vm, alias, err := variant.ParseVM(vmName)
		if err != nil {
			return err
		}
		sel.VM = vm
		if alias {
			logger.Warn(fmt.Sprintf("⚠️ '--vm %s' is deprecated, use '--vm %s -M %s'", vmName, vm, variant.JIT))
			sel.Mode = variant.JIT
		}
	}
	if vmBuild != "" {
		build, err := variant.ParseBuildKind(vmBuild)
		if err != nil {
			return err
		}
		sel.Build = build
	}
	if jvmciMode != "" {
		mode, err := variant.ParseJVMCIMode(jvmciMode)
		if err != nil {
			return err
		}
		sel.Mode = mode
	}
	if installedJDKs != "" {
		sel.InstalledJDKs = installedJDKs
	}
	sel.VMCwd = vmCwd
	switch {
	case useGDB:
		sel.VMPrefix = gdbPrefix
	case useLLDB:
		sel.VMPrefix = lldbPrefix
	default:
		sel.VMPrefix = vmPrefix
	}
	return nil
}

func interactive() bool {
	in, out := os.Stdin.Fd(), os.Stdout.Fd()
	return (isatty.IsTerminal(in) || isatty.IsCygwinTerminal(in)) &&
		(isatty.IsTerminal(out) || isatty.IsCygwinTerminal(out))
}

// askYesNo prompts on the terminal; an empty answer picks def.
func askYesNo(r io.Reader, w io.Writer, question string, def bool) bool {
	choices := "[y/N]"
	if def {
		choices = "[Y/n]"
	}
	fmt.Fprintf(w, "%s %s: ", question, choices)
	answer, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && answer == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "":
		return def
	case "y", "yes":
		return true
	}
	return false
}

// withMissingVM runs fn. When fn reports a VM that has not been created yet
// an interactive user is offered to build it, after which fn runs again.
func withMissingVM(ctx context.Context, s *pkg.Session, fn func() error) error {
	err := fn()
	missing, ok := jerrors.IsMissingInstallation(err)
	if !ok {
		return err
	}
	fmt.Fprintf(os.Stderr, "The %s %s VM has not been created\n", missing.Build, missing.VM)
	if !interactive() || !askYesNo(os.Stdin, os.Stdout, "Build it now", true) {
		return err
	}
	vm, _, perr := variant.ParseVM(missing.VM)
	if perr != nil {
		return err
	}
	build, perr := variant.ParseBuildKind(missing.Build)
	if perr != nil {
		return err
	}
	if err := s.Selection.With(selection.Override{VM: vm, Build: build}, func() error {
		return s.Build(ctx, nil, false)
	}); err != nil {
		return err
	}
	return fn()
}

// splitVMArgs separates global long flags given after "vm" from the java
// command line. Java options never start with "--"; "--" ends the flags.
func splitVMArgs(fs *pflag.FlagSet, args []string) (flags, rest []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			return flags, args[i+1:]
		}
		if !strings.HasPrefix(a, "--") {
			return flags, args[i:]
		}
		name, _, hasValue := strings.Cut(strings.TrimPrefix(a, "--"), "=")
		f := fs.Lookup(name)
		if f == nil {
			return flags, args[i:]
		}
		flags = append(flags, a)
		if !hasValue && f.NoOptDefVal == "" && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return flags, nil
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	nameColor = color.New(color.FgCyan, color.Bold)
)

func reportError(err error) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// the VM already reported its failure
		return
	}
	errColor.Fprintf(os.Stderr, "Error: %v\n", err)
	if missing, ok := jerrors.IsMissingInstallation(err); ok {
		fmt.Fprintf(os.Stderr, "You need to run \"%s\" to build the selected VM\n", missing.Hint())
	}
}
