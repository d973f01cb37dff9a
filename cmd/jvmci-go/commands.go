package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/provide-io/jvmci/go/jvmci/pkg"
	"github.com/provide-io/jvmci/go/jvmci/pkg/config"
	"github.com/provide-io/jvmci/go/jvmci/pkg/hotspot"
	"github.com/provide-io/jvmci/go/jvmci/pkg/hsdis"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

// buildArgs rejects positional arguments with a hint, since a build kind
// given there is a common mistake.
func buildArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	return fmt.Errorf("to specify the %s VM build target, you need to use the global \"--vmbuild\" option. For example:\n    %s --vmbuild=%s build",
		args[0], cmd.Root().Name(), args[0])
}

func runBuild(cmd *cobra.Command, args []string) error {
	defs, err := hotspot.ParseDefines(defines)
	if err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := s.Build(ctx, defs, forceBuild); err != nil {
		return err
	}
	tree, err := s.JDKHome(ctx, false)
	if err != nil {
		return err
	}
	okColor.Printf("✅ %s %s VM ready: ", s.Selection.Build, s.Selection.VM)
	fmt.Println(tree)
	return nil
}

func splitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func runBuildVMs(cmd *cobra.Command, args []string) error {
	var opts pkg.BuildVMsOptions
	for _, name := range splitList(buildVMList) {
		vm, _, err := variant.ParseVM(name)
		if err != nil {
			return err
		}
		opts.VMs = append(opts.VMs, vm)
	}
	for _, name := range splitList(buildList) {
		build, err := variant.ParseBuildKind(name)
		if err != nil {
			return err
		}
		opts.Builds = append(opts.Builds, build)
	}
	opts.Check = !noCheck
	opts.Console = console

	s, err := openSession()
	if err != nil {
		return err
	}
	start := time.Now()
	results, err := s.BuildVMs(cmd.Context(), opts)
	for _, r := range results {
		switch {
		case r.Skipped != "":
			warnColor.Printf("SKIPPED %s: %s\n", r.VM, r.Skipped)
		case r.Err != nil:
			errColor.Printf("FAILED  %s-%s", r.VM, r.Build)
			fmt.Printf("\t[%s]\n", r.Duration.Round(time.Second))
		default:
			okColor.Printf("END     %s-%s", r.VM, r.Build)
			fmt.Printf("\t[%s]\n", r.Duration.Round(time.Second))
		}
	}
	fmt.Printf("TOTAL TIME:   [%s]\n", time.Since(start).Round(time.Second))
	return err
}

func runBuildVars(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	vars, err := s.BuildVars(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println("HotSpot build variables that can be set by the -D option to \"jvmci-go build\":")
	fmt.Println()
	for _, v := range vars {
		nameColor.Println(v.Name)
		fmt.Println("    " + v.Description)
	}
	fmt.Println()
	fmt.Printf("Note that these variables can be given persistent values under build_vars in %s\n",
		config.DefaultPath(s.Config.SuiteDir))
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	return s.Clean(cmd.Context())
}

func runJDKHome(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	var tree string
	err = withMissingVM(ctx, s, func() error {
		var err error
		tree, err = s.JDKHome(ctx, false)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Println(tree)
	return nil
}

func runVM(cmd *cobra.Command, args []string) error {
	// flag parsing is disabled so that java options pass through untouched
	fs := cmd.InheritedFlags()
	flagArgs, javaArgs := splitVMArgs(fs, args)
	if err := fs.Parse(flagArgs); err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	return withMissingVM(ctx, s, func() error {
		return s.RunVM(ctx, javaArgs, "")
	})
}

func runDeploy(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := s.Deploy(cmd.Context()); err != nil {
		return err
	}
	okColor.Println("✅ Deployed")
	return nil
}

func runNeedsRebuild(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	decision, err := s.NeedsRebuild()
	if err != nil {
		return err
	}
	label := fmt.Sprintf("%s-%s", s.Selection.VM, s.Selection.Build)
	if decision.Needed {
		warnColor.Printf("%s needs a rebuild: ", label)
		fmt.Println(decision.Reason)
		return nil
	}
	okColor.Printf("%s is up to date\n", label)
	return nil
}

func runHsdis(cmd *cobra.Command, args []string) error {
	syntax := hsdis.Intel
	copyTo := ""
	for _, a := range args {
		if a == hsdis.ATT {
			syntax = hsdis.ATT
			continue
		}
		copyTo = a
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	if syntax == hsdis.Intel && s.Config.Hsdis.Syntax != "" {
		syntax = s.Config.Hsdis.Syntax
	}
	if _, err := hsdis.Resolve(hsdis.DefaultSHA1s, s.Platform, syntax); err != nil {
		warnColor.Fprintf(os.Stderr, "⚠️ %v\n", err)
		return nil
	}
	path, err := s.Hsdis(cmd.Context(), syntax, copyTo)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	outDir := filepath.Join(s.Config.OutputRoot, "export")
	if len(args) == 1 {
		outDir = args[0]
	}
	written, err := s.Export(cmd.Context(), outDir, compression)
	for _, p := range written {
		fmt.Println(p)
	}
	return err
}

func runVerify(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	if err := s.VerifyTrees(cmd.Context()); err != nil {
		return err
	}
	okColor.Println("✓ All JDK trees verified")
	return nil
}
