// Package log builds the structured logger shared by both the panel and the
// daemon binaries.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options controls how the logger is constructed. Both cmd/panel and
// cmd/daemon populate this from environment variables at startup.
type Options struct {
	// Component is attached to every entry, e.g. "panel" or "daemon".
	Component string
	// Debug enables debug-level logging written to stderr. Without it the
	// default level is info, the primary output is discarded, and only
	// warning-and-above entries reach stderr (via stderrHook). Both modes
	// use the JSON formatter.
	Debug   bool
	Version string
}

// New returns a *logrus.Entry pre-populated with component/version fields.
// Every constructor in this repo takes a logger like this one rather than
// reaching for a package-level global.
func New(opts Options) *logrus.Entry {
	logger := logrus.New()
	logger.Formatter = &logrus.JSONFormatter{}

	if opts.Debug || os.Getenv("DEBUG") == "TRUE" {
		logger.SetLevel(getLogLevel(logrus.DebugLevel))
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetLevel(getLogLevel(logrus.InfoLevel))
		logger.SetOutput(io.Discard)
		logger.AddHook(&stderrHook{minLevel: logrus.WarnLevel})
	}

	return logger.WithFields(logrus.Fields{
		"component": opts.Component,
		"version":   opts.Version,
	})
}

func getLogLevel(fallback logrus.Level) logrus.Level {
	strLevel := os.Getenv("LOG_LEVEL")
	if strLevel == "" {
		return fallback
	}
	level, err := logrus.ParseLevel(strLevel)
	if err != nil {
		return fallback
	}
	return level
}

// stderrHook re-emits warning-and-above entries to stderr even when the
// logger's primary output is discarded, so operators still see failures
// without needing DEBUG=TRUE.
type stderrHook struct {
	minLevel logrus.Level
}

func (h *stderrHook) Levels() []logrus.Level {
	return logrus.AllLevels[:h.minLevel+1]
}

func (h *stderrHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Bytes()
	if err != nil {
		return err
	}
	_, err = os.Stderr.Write(line)
	return err
}
