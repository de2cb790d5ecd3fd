// Package tail provides bounded reads over large append-only files.
// Transcripts grow without bound, so every poll reads at most a fixed
// byte budget from the end (or a few lines from the head) instead of
// scanning the whole file.
package tail

import (
	"bufio"
	"bytes"
	"io"
	"os"
)

// Lines reads at most the last maxBytes of the file at path and returns its
// complete lines. When the read starts mid-file the first, possibly
// truncated, partial line is discarded so every returned line is an exact
// line of the underlying file. A missing file yields no lines and no error.
func Lines(path string, maxBytes int64) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := info.Size()
	if size == 0 {
		return nil, nil
	}

	offset := int64(0)
	truncated := false
	if maxBytes > 0 && size > maxBytes {
		offset = size - maxBytes
		truncated = true
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	if truncated {
		// Drop everything up to and including the first newline; the
		// preceding bytes belong to a line that started before the window.
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			data = data[i+1:]
		} else {
			return nil, nil
		}
	}

	return splitLines(data), nil
}

// Head returns the first n lines of the file at path. Used to recover a
// session's opening user message for labeling without reading the body.
func Head(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) >= n {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return lines, err
	}
	return lines, nil
}

func splitLines(data []byte) []string {
	var lines []string
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			if len(bytes.TrimSpace(data)) > 0 {
				lines = append(lines, string(data))
			}
			break
		}
		line := data[:i]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if len(bytes.TrimSpace(line)) > 0 {
			lines = append(lines, string(line))
		}
		data = data[i+1:]
	}
	return lines
}
