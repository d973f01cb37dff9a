package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// NewLogger creates a new hclog logger with standard settings
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	// "json" or "json:<level>" selects JSON output as well
	jsonFormat := os.Getenv("JVMCI_JSON_LOG") == "1"
	if strings.HasPrefix(level, "json") {
		jsonFormat = true
		level = strings.TrimPrefix(strings.TrimPrefix(level, "json"), ":")
		if level == "" {
			level = "info"
		}
	}

	// Add prefix for non-JSON output
	if !jsonFormat {
		output = NewPrefixWriter("☕ ", output)
	}

	opts := &hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: jsonFormat,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z", // UTC ISO format
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	}

	return hclog.New(opts)
}

// GetLogLevel returns the configured log level. An explicit CLI value wins
// over JVMCI_LOG_LEVEL.
func GetLogLevel(cliLevel string) string {
	if cliLevel != "" {
		return cliLevel
	}
	level := os.Getenv("JVMCI_LOG_LEVEL")
	if level == "" {
		level = "warn" // Default to warn for production safety
	}
	return level
}
