package jdk

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/provide-io/jvmci/go/jvmci/pkg/variant"
)

// JvmCfg is the launcher's VM registry, kept as raw lines so rewriting it
// preserves everything not touched.
type JvmCfg struct {
	Lines []string
}

// ReadJvmCfg loads a jvm.cfg file.
func ReadJvmCfg(path string) (*JvmCfg, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseJvmCfg(data), nil
}

// ParseJvmCfg splits data into lines.
func ParseJvmCfg(data []byte) *JvmCfg {
	cfg := &JvmCfg{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		cfg.Lines = append(cfg.Lines, sc.Text())
	}
	return cfg
}

func declaration(vm variant.VM, status string) string {
	return fmt.Sprintf("-%s %s", vm, status)
}

// Known reports whether vm is declared KNOWN.
func (c *JvmCfg) Known(vm variant.VM) bool {
	want := declaration(vm, "KNOWN")
	for _, l := range c.Lines {
		if strings.TrimSpace(l) == want {
			return true
		}
	}
	return false
}

// AddKnown appends a KNOWN declaration for vm unless one exists. It reports
// whether the registry changed.
func (c *JvmCfg) AddKnown(vm variant.VM) bool {
	if c.Known(vm) {
		return false
	}
	c.Lines = append(c.Lines, declaration(vm, "KNOWN"))
	return true
}

// MarkKnown turns the declaration of vm into KNOWN, keeping its position,
// or appends one. It reports whether the registry changed.
func (c *JvmCfg) MarkKnown(vm variant.VM) bool {
	if c.Known(vm) {
		return false
	}
	prefix := "-" + string(vm)
	for i, l := range c.Lines {
		fields := strings.Fields(l)
		if len(fields) >= 2 && fields[0] == prefix {
			c.Lines[i] = declaration(vm, "KNOWN")
			return true
		}
	}
	return c.AddKnown(vm)
}

// Bytes renders the registry with a trailing newline.
func (c *JvmCfg) Bytes() []byte {
	var b bytes.Buffer
	for _, l := range c.Lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.Bytes()
}
