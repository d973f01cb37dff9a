package variant

import (
	"fmt"

	jerrors "github.com/provide-io/jvmci/go/jvmci/pkg/jvmci/errors"
)

// JVMCIMode selects whether and how the JVMCI compiler is used.
type JVMCIMode string

const (
	Hosted   JVMCIMode = "hosted"
	JIT      JVMCIMode = "jit"
	Disabled JVMCIMode = "disabled"
)

// DefaultJVMCIMode is used when no mode is given.
const DefaultJVMCIMode = Hosted

// JVMCIModes lists the modes in display order.
var JVMCIModes = []JVMCIMode{Hosted, JIT, Disabled}

var modeArgs = map[JVMCIMode][]string{
	Hosted:   {"-XX:+UnlockExperimentalVMOptions", "-XX:+EnableJVMCI", "-XX:-UseJVMCICompiler"},
	JIT:      {"-XX:+UnlockExperimentalVMOptions", "-XX:+EnableJVMCI", "-XX:+UseJVMCICompiler"},
	Disabled: {"-XX:+UnlockExperimentalVMOptions", "-XX:-EnableJVMCI"},
}

// VMArgs returns a copy of the VM flags activated by the mode.
func (m JVMCIMode) VMArgs() []string {
	args := modeArgs[m]
	out := make([]string, len(args))
	copy(out, args)
	return out
}

func (m JVMCIMode) String() string { return string(m) }

// ParseJVMCIMode validates a mode name.
func ParseJVMCIMode(name string) (JVMCIMode, error) {
	for _, m := range JVMCIModes {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", jerrors.ErrUnknownJVMCIMode, name)
}
