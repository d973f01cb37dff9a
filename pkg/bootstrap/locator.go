// Package bootstrap locates the JDK that new JVMCI JDK trees are cloned from
// and that drives the native build.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
	"github.com/provide-io/jvmci/go/jvmci/pkg/platform"
)

// JDK is a located bootstrap JDK.
type JDK struct {
	Home    string
	Version Version
	OpenJDK bool
}

// Java returns the java executable of the JDK.
func (j *JDK) Java(p platform.Platform) string {
	return p.JavaExecutable(j.Home)
}

// DirPrefix names the clones of this JDK: openjdk1.8.0_141 or jdk1.8.0_141.
func (j *JDK) DirPrefix() string {
	if j.OpenJDK {
		return "openjdk" + j.Version.String()
	}
	return "jdk" + j.Version.String()
}

// Locator finds and validates the bootstrap JDK.
type Locator struct {
	Home       string
	Platform   platform.Platform
	Constraint Constraint
	Logger     hclog.Logger

	// VersionOutput runs "java -version"; replaceable in tests.
	VersionOutput func(ctx context.Context, java string) (string, error)

	jdk *JDK
}

// NewLocator returns a locator for home with the given version bounds.
func NewLocator(home string, p platform.Platform, minVersion, untilVersion string, logger hclog.Logger) (*Locator, error) {
	min, err := ParseVersion(minVersion)
	if err != nil {
		return nil, err
	}
	c := Constraint{Min: min}
	if untilVersion != "" {
		until, err := ParseVersion(untilVersion)
		if err != nil {
			return nil, err
		}
		c.Until = &until
	}
	return &Locator{
		Home:          home,
		Platform:      p,
		Constraint:    c,
		Logger:        logger,
		VersionOutput: runJavaVersion,
	}, nil
}

// Locate returns the bootstrap JDK, probing it on first use. Any failure is
// fatal for the caller.
func (l *Locator) Locate(ctx context.Context) (*JDK, error) {
	if l.jdk != nil {
		return l.jdk, nil
	}
	if l.Home == "" {
		return nil, fmt.Errorf("%w: JAVA_HOME is not set", jerrors.ErrNoBootstrapJDK)
	}
	home, err := filepath.Abs(l.Home)
	if err != nil {
		return nil, err
	}
	if l.Platform.IsBundleLayout() && !strings.HasSuffix(home, string(filepath.Separator)+platform.BundleHome) {
		return nil, fmt.Errorf("%w: JAVA_HOME on macOS is expected to end with /Contents/Home: %s", jerrors.ErrNoBootstrapJDK, home)
	}
	java := l.Platform.JavaExecutable(home)
	if _, err := os.Stat(java); err != nil {
		return nil, fmt.Errorf("%w: %s", jerrors.ErrNoBootstrapJDK, err)
	}
	out, err := l.VersionOutput(ctx, java)
	if err != nil {
		return nil, fmt.Errorf("%w: running %s -version: %v", jerrors.ErrNoBootstrapJDK, java, err)
	}
	version, openjdk, err := parseJavaVersionOutput(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jerrors.ErrNoBootstrapJDK, err)
	}
	if !l.Constraint.Allows(version) {
		return nil, fmt.Errorf("%w: %s has version %s, need %s", jerrors.ErrNoBootstrapJDK, home, version, l.Constraint)
	}
	l.Logger.Debug("☕ Using bootstrap JDK", "home", home, "version", version.String(), "openjdk", openjdk)
	l.jdk = &JDK{Home: home, Version: version, OpenJDK: openjdk}
	return l.jdk, nil
}

func runJavaVersion(ctx context.Context, java string) (string, error) {
	out, err := exec.CommandContext(ctx, java, "-version").CombinedOutput()
	return string(out), err
}
