// Package workspace reads agent-owned workspace artifacts: the well-known
// memory files, arbitrary workspace files (path-confined), and the cron
// job state.
package workspace

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// The well-known root-level memory files, in display order.
var rootMemoryFiles = []string{
	"MEMORY.md",
	"SOUL.md",
	"IDENTITY.md",
	"USER.md",
	"AGENTS.md",
	"TOOLS.md",
	"HEARTBEAT.md",
}

// MemoryFile is one listed workspace file. Path is workspace-relative and
// is what the file endpoint accepts back.
type MemoryFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// MemoryFiles lists the well-known root files that exist plus every
// markdown file under memory/, newest name first.
func MemoryFiles(workspace string) []MemoryFile {
	files := []MemoryFile{}
	for _, name := range rootMemoryFiles {
		if info, err := os.Stat(filepath.Join(workspace, name)); err == nil && !info.IsDir() {
			files = append(files, MemoryFile{Path: name, Size: info.Size()})
		}
	}

	memDir := filepath.Join(workspace, "memory")
	entries, err := os.ReadDir(memDir)
	if err != nil {
		return files
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names {
		info, err := os.Stat(filepath.Join(memDir, name))
		if err != nil {
			continue
		}
		files = append(files, MemoryFile{Path: "memory/" + name, Size: info.Size()})
	}
	return files
}

// maxFileRead bounds file endpoint responses.
const maxFileRead = 100_000

var (
	ErrOutsideWorkspace = errors.New("path escapes the workspace")
	ErrNotFound         = errors.New("file not found")
)

// ReadFile returns up to maxFileRead bytes of a workspace-relative file.
// Paths that resolve outside the workspace are refused; ".." segments and
// absolute paths both fall out of the same containment check.
func ReadFile(workspace, relPath string) (string, error) {
	root := filepath.Clean(workspace)
	full := filepath.Clean(filepath.Join(root, relPath))
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", ErrOutsideWorkspace
	}

	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxFileRead))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CronJob is one scheduled job from the agent's cron state.
type CronJob struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Schedule string `json:"schedule,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty"`
	LastRun  int64  `json:"lastRun,omitempty"`
	NextRun  int64  `json:"nextRun,omitempty"`
	Status   string `json:"status,omitempty"`
}

// CronJobs reads the cron state file. The file is either a bare job list or
// an object with a "jobs" key; a missing or malformed file yields an empty
// list.
func CronJobs(path string) []CronJob {
	data, err := os.ReadFile(path)
	if err != nil {
		return []CronJob{}
	}

	var list []CronJob
	if err := json.Unmarshal(data, &list); err == nil {
		return list
	}

	var wrapped struct {
		Jobs []CronJob `json:"jobs"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Jobs != nil {
		return wrapped.Jobs
	}
	return []CronJob{}
}
