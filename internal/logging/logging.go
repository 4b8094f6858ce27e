package logging

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// LogFilePath names the log file of one editing session:
// <logsDir>/<name>_<UTC start>.log. Path separators in name are replaced.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	name = strings.NewReplacer("/", "-", `\`, "-").Replace(name)
	return filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", name, sessionStart.UTC().Format("20060102T150405Z")))
}
