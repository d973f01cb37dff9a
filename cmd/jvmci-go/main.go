package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/provide-io/jvmci/go/jvmci/pkg"
	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

const version = "0.1.0"

var (
	suiteDir      string
	configPath    string
	logLevel      string
	vmName        string
	vmBuild       string
	jvmciMode     string
	vmCwd         string
	installedJDKs string
	vmPrefix      string
	useGDB        bool
	useLLDB       bool
	verbose       bool
	versionFlag   bool

	defines     []string
	forceBuild  bool
	buildVMList string
	buildList   string
	noCheck     bool
	console     bool
	compression string

	rootCmd *cobra.Command
)

// debugger prefixes selected by --gdb and --lldb
const (
	gdbPrefix  = "/usr/bin/gdb --args"
	lldbPrefix = "lldb --"
)

func getBuildTimestamp() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func vmHelp() string {
	var b strings.Builder
	fmt.Fprintf(&b, "The VM type to build/run (%s)", joinNames(variant.VMs))
	for _, vm := range variant.VMs {
		if d, ok := vm.Description(); ok {
			fmt.Fprintf(&b, "\n  %s: %s", vm, d)
		}
	}
	return b.String()
}

func printVersion() {
	fmt.Printf("jvmci-go %s\n", version)
	fmt.Printf("Built: %s\n", getBuildTimestamp())
}

func init() {
	rootCmd = &cobra.Command{
		Use:   "jvmci-go",
		Short: "Build, assemble and run JVMCI enabled JDKs",
		Long: `Build HotSpot with JVMCI, assemble JDK trees cloned from the bootstrap JDK
and deploy the JVMCI jars and VM libraries into them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if versionFlag {
				printVersion()
				return nil
			}
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&suiteDir, "suite", "", "JVMCI checkout to work on (default: found upwards from the current directory)")
	pf.StringVar(&configPath, "config", "", "Configuration file (default: <suite>/mx.jvmci/env.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	pf.StringVar(&vmName, "vm", "", vmHelp())
	pf.StringVar(&vmBuild, "vmbuild", "", fmt.Sprintf("The VM build to build/run (default: %s)", variant.DefaultBuildKind()))
	pf.StringVarP(&jvmciMode, "jvmci-mode", "M", "", fmt.Sprintf("The JVMCI mode to use (default: %s)", variant.DefaultJVMCIMode))
	pf.StringVar(&vmCwd, "vmcwd", "", "Current directory will be changed to <path> before the VM is executed")
	pf.StringVar(&installedJDKs, "installed-jdks", "", "The base directory in which the JDKs cloned from $JAVA_HOME exist")
	pf.StringVar(&vmPrefix, "vmprefix", "", `Prefix for running the VM (e.g. "/usr/bin/gdb --args")`)
	pf.BoolVar(&useGDB, "gdb", false, `Alias for --vmprefix "`+gdbPrefix+`"`)
	pf.BoolVar(&useLLDB, "lldb", false, `Alias for --vmprefix "`+lldbPrefix+`"`)
	pf.BoolVarP(&verbose, "verbose", "v", false, "Show native build output")
	rootCmd.Flags().BoolVarP(&versionFlag, "version", "V", false, "Show version information")
	rootCmd.MarkFlagsMutuallyExclusive("vmprefix", "gdb", "lldb")

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build the VM selected by --vm and --vmbuild and deploy it",
		Args:  buildArgs,
		RunE:  runBuild,
	}
	buildCmd.Flags().StringArrayVarP(&defines, "define", "D", nil, "Set a HotSpot build variable (run 'jvmci-go buildvars' to list variables)")
	buildCmd.Flags().BoolVarP(&forceBuild, "force", "f", false, "Build even if the sources did not change")

	buildVMsCmd := &cobra.Command{
		Use:   "buildvms",
		Short: "Build one or more VMs in various configurations",
		Args:  cobra.NoArgs,
		RunE:  runBuildVMs,
	}
	buildVMsCmd.Flags().StringVar(&buildVMList, "vms", joinNames(variant.VMs), "Comma separated list of VMs to build")
	buildVMsCmd.Flags().StringVar(&buildList, "builds", joinNames(variant.BuildKinds), "Comma separated list of build types")
	buildVMsCmd.Flags().BoolVarP(&noCheck, "no-check", "n", false, `Omit running "java -version" after each build`)
	buildVMsCmd.Flags().BoolVarP(&console, "console", "c", false, "Send build output to the console instead of a log file")

	exportCmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Archive every JDK tree for distribution",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExport,
	}
	exportCmd.Flags().StringVar(&compression, "compression", "gz", "Archive compression (none, gz, bz2, xz)")

	rootCmd.AddCommand(
		buildCmd,
		buildVMsCmd,
		&cobra.Command{
			Use:   "buildvars",
			Short: "Describe the variables that can be set by the -D option of build",
			Args:  cobra.NoArgs,
			RunE:  runBuildVars,
		},
		&cobra.Command{
			Use:   "clean",
			Short: "Remove the native build output and all JDK trees",
			Args:  cobra.NoArgs,
			RunE:  runClean,
		},
		&cobra.Command{
			Use:   "jdkhome",
			Short: "Print the JDK directory selected for the vm command",
			Args:  cobra.NoArgs,
			RunE:  runJDKHome,
		},
		&cobra.Command{
			Use:                "vm [java options] class [args...]",
			Short:              "Run java from the selected JDK tree",
			DisableFlagParsing: true,
			RunE:               runVM,
		},
		&cobra.Command{
			Use:   "deploy",
			Short: "Deploy the built JVMCI jars and VM libraries into every JDK tree",
			Args:  cobra.NoArgs,
			RunE:  runDeploy,
		},
		&cobra.Command{
			Use:   "needs-rebuild",
			Short: "Report whether the selected VM must be rebuilt",
			Args:  cobra.NoArgs,
			RunE:  runNeedsRebuild,
		},
		&cobra.Command{
			Use:   "hsdis [att] [dir]",
			Short: "Download the hsdis disassembler library",
			Long: `Download the hsdis library needed by HotSpot's assembly dumping features.
The Intel syntax version is used unless 'att' is given. When a directory is
given the library is copied into it.`,
			Args: cobra.MaximumNArgs(2),
			RunE: runHsdis,
		},
		exportCmd,
		&cobra.Command{
			Use:   "verify",
			Short: "Check that every JDK tree is a usable JVMCI JDK",
			Args:  cobra.NoArgs,
			RunE:  runVerify,
		},
	)
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC: %v\n", r)
			debug.PrintStack()
			os.Exit(pkg.ExitPanic)
		}
	}()

	// Handle --version or -V before cobra parses other flags
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		printVersion()
		os.Exit(pkg.ExitSuccess)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(err)
		os.Exit(pkg.ExitCode(err))
	}
}
