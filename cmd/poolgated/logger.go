// logger.go - Structured logging for the proof gateway daemon
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the daemon logger. Console output always goes to stdout in
// a human-readable form; when a log file is configured it additionally
// receives the raw JSON stream.
func NewLogger(level, logFile string) (zerolog.Logger, io.Closer, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}

	var out io.Writer = console
	var closer io.Closer
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(console, file)
		closer = file
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), closer, nil
}

// NewAuditLogger builds the audit sink for withdrawal decisions. With no path
// configured the audit records ride along on the main logger.
func NewAuditLogger(path string, fallback zerolog.Logger) (zerolog.Logger, io.Closer, error) {
	if path == "" {
		return fallback, nil, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	return zerolog.New(file).With().Timestamp().Logger(), file, nil
}
