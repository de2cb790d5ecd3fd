package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openclaw/clawmetry/internal/record"
)

// Follow streams newly appended log lines to fn until ctx is done. It
// watches the log directory rather than one file so a midnight rollover to
// the next day's file is picked up without reconnecting. Starts at the end
// of today's file; history is served by Tail.
func Follow(ctx context.Context, dir string, fn func(record.LogLine)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating log watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching log dir: %w", err)
	}

	f := &follower{dir: dir, fn: fn}
	defer f.close()
	f.openCurrent(true)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.currentPath()) {
				continue
			}
			if err := f.drain(); err != nil {
				return err
			}
		case <-ticker.C:
			// Rollover check and a safety net for missed events.
			f.openCurrent(false)
			if err := f.drain(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("log watcher error: %w", err)
		}
	}
}

type follower struct {
	dir     string
	fn      func(record.LogLine)
	path    string
	file    *os.File
	rd      *bufio.Reader
	partial string
}

func (f *follower) currentPath() string {
	if f.path != "" {
		return f.path
	}
	return DayPath(f.dir, time.Now())
}

// openCurrent points the follower at today's file, seeking to the end when
// attaching for the first time so only new lines are streamed.
func (f *follower) openCurrent(seekEnd bool) {
	want := DayPath(f.dir, time.Now())
	if f.file != nil && f.path == want {
		return
	}
	f.close()

	file, err := os.Open(want)
	if err != nil {
		return
	}
	if seekEnd {
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			file.Close()
			return
		}
	}
	f.path = want
	f.file = file
	f.rd = bufio.NewReader(file)
}

// drain parses every complete appended line and hands it to fn.
func (f *follower) drain() error {
	if f.rd == nil {
		f.openCurrent(false)
		if f.rd == nil {
			return nil
		}
	}
	for {
		line, err := f.rd.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Hold the incomplete line until its newline arrives.
				f.partial += line
				return nil
			}
			return err
		}
		full := f.partial + line[:len(line)-1]
		f.partial = ""
		if len(full) > 0 {
			f.fn(record.ParseLogLine(full))
		}
	}
}

func (f *follower) close() {
	if f.file != nil {
		f.file.Close()
	}
	f.path = ""
	f.file = nil
	f.rd = nil
	f.partial = ""
}
