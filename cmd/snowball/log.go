// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/charmbracelet/log"
)

// newLogger creates a stderr logger with timestamp formatting
// ("HH:MM:SS.ms", e.g. "14:32:01.45").
func newLogger(level log.Level) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}
