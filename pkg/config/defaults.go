package config

import "time"

// =================================
// Layout defaults
// =================================
const (
	SuiteMarkerDir  = "mx.jvmci"
	ConfigFileName  = "env.yaml"
	DefaultOutput   = "mxbuild"
	DefaultDistsDir = "dists"
	MakeDir         = "make"
)

// =================================
// Bootstrap JDK constraints
// =================================
const (
	MinBootstrapVersion   = "1.8.0_141"
	UntilBootstrapVersion = "1.9" // first unsupported version
	DefaultReleaseVersion = "0.0-dev"
)

// =================================
// Native build defaults
// =================================
const (
	DefaultArchDataModel = "64"
	DefaultBuildTimeout  = "0s" // no timeout
)

// LockTimeout bounds the wait for another process working on the same
// installation.
const LockTimeout = 10 * time.Minute

// =================================
// Disassembler helper defaults
// =================================
const (
	DefaultHsdisBaseURL = "https://lafo.ssw.uni-linz.ac.at/pub/hsdis/"
	DefaultHsdisSyntax  = "intel"
)

// DefaultSourceDirs are walked by the rebuild check, relative to the suite.
var DefaultSourceDirs = []string{
	"src",
	"make",
	"jvmci/jdk.vm.ci.hotspot/src_gen/hotspot",
}

// DefaultExcludes are subtrees of DefaultSourceDirs the native build never reads.
var DefaultExcludes = []string{
	"src/share/tools",
}
