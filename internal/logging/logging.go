// Package logging builds the structured, leveled logger every component
// accepts via a go-kit/log.Logger parameter, defaulting to a no-op logger
// when none is supplied.
package logging

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// New builds a logfmt logger writing to stderr at the given minimum level
// ("debug", "info", "warn", "error"; anything else defaults to "info"),
// timestamped and annotated with the calling component.
func New(levelName string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return level.NewFilter(logger, filterOption(levelName))
}

func filterOption(levelName string) level.Option {
	switch levelName {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

// Nop is the default logger accepted by components that weren't handed one.
func Nop() log.Logger { return log.NewNopLogger() }
