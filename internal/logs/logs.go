// Package logs reads the agent's daily log files. Logs rotate by date
// (<dir>/openclaw-YYYY-MM-DD.log); reads are always bounded so a busy day's
// multi-hundred-megabyte file never gets slurped whole.
package logs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/openclaw/clawmetry/internal/record"
	"github.com/openclaw/clawmetry/internal/tail"
)

const (
	filePrefix = "openclaw-"
	fileSuffix = ".log"

	// Byte budget per requested line when tailing. Structured log lines run
	// a few hundred bytes; 1 KiB each leaves headroom for stack traces.
	bytesPerLine = 1024
)

// DayPath returns the log file path for the given day.
func DayPath(dir string, day time.Time) string {
	return filepath.Join(dir, filePrefix+day.Format("2006-01-02")+fileSuffix)
}

// Tail returns the last n parsed lines of the given day's log file, oldest
// first. A missing file yields an empty slice.
func Tail(dir string, day time.Time, n int) ([]record.LogLine, error) {
	if n <= 0 {
		return nil, nil
	}
	lines, err := tail.Lines(DayPath(dir, day), int64(n)*bytesPerLine)
	if err != nil {
		return nil, err
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	parsed := make([]record.LogLine, 0, len(lines))
	for _, line := range lines {
		parsed = append(parsed, record.ParseLogLine(line))
	}
	return parsed, nil
}

// Days lists the dates that have a log file, newest first.
func Days(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var days []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		day := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if _, err := time.Parse("2006-01-02", day); err != nil {
			continue
		}
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days
}
