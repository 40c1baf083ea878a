package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath builds the path of the log file for one CLI run.
func LogFilePath(logsDir, appName string, runStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, runStart.Format("20060102_150405")),
	)
}
