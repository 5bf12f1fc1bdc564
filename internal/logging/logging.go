// Package logging sets up the process logger and the adapters that feed it.
package logging

import (
	"path/filepath"
	"time"
)

const stampLayout = "20060102_150405"

// SessionFilePath returns logsDir/<name>.<start as yyyymmdd_hhmmss UTC>.<ext>.
// Every file a run writes next to its log shares the stamp.
func SessionFilePath(logsDir, name string, start time.Time, ext string) string {
	return filepath.Join(logsDir, name+"."+start.UTC().Format(stampLayout)+"."+ext)
}

func LogFilePath(logsDir, name string, start time.Time) string {
	return SessionFilePath(logsDir, name, start, "log")
}
