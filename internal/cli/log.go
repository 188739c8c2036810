package cli

import (
	"io"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger with timestamp formatting that writes to w
// and filters messages at the given level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// logLevel maps the --verbose flag to a log level.
func logLevel() log.Level {
	if flags.verbose {
		return log.DebugLevel
	}
	return log.InfoLevel
}
