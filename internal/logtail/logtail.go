package logtail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Read returns at most maxLines from the end of the file at path. A missing
// file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	lines, _, err := readTail(path, maxLines)
	return lines, err
}

// readTail also returns the offset after the last complete line read.
func readTail(path string, maxLines int) ([]string, int64, error) {
	if maxLines <= 0 {
		return nil, 0, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	count, idx := 0, 0
	offset, err := scanLines(file, func(line string) {
		ring[idx] = line
		idx = (idx + 1) % maxLines
		count = min(count+1, maxLines)
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := range count {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// scanLines calls fn for each newline-terminated line of r and returns the
// number of bytes consumed. A trailing partial line is left unread.
func scanLines(r io.Reader, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			consumed += int64(len(line))
			fn(strings.TrimRight(line, "\r\n"))
			continue
		}
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		return consumed, fmt.Errorf("read log: %w", err)
	}
}

// Level returns the slog level of a text-handler line ("level=WARN"), or
// the empty string when the line carries none.
func Level(line string) string {
	for field := range strings.FieldsSeq(line) {
		if v, ok := strings.CutPrefix(field, "level="); ok {
			return strings.ToUpper(v)
		}
	}
	return ""
}

// AtLeast reports whether line is at or above threshold. Lines without a level
// are continuation output and always pass.
func AtLeast(line string, threshold slog.Level) bool {
	lvl := Level(line)
	if lvl == "" {
		return true
	}
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(lvl)); err != nil {
		return true
	}
	return parsed >= threshold
}

// Filter keeps the lines at or above threshold.
func Filter(lines []string, threshold slog.Level) []string {
	out := lines[:0:0]
	for _, l := range lines {
		if AtLeast(l, threshold) {
			out = append(out, l)
		}
	}
	return out
}

// Follow prints the last maxLines of path through fn, then every line
// appended until ctx is done. A truncated or replaced file is read again
// from the start.
func Follow(ctx context.Context, path string, maxLines int, fn func(string)) error {
	lines, offset, err := readTail(path, maxLines)
	if err != nil {
		return err
	}
	for _, l := range lines {
		fn(l)
	}
	if maxLines <= 0 {
		offset, err = fileSize(path)
		if err != nil {
			return err
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				offset = 0
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			offset, err = readFrom(path, offset, fn)
			if err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				return fmt.Errorf("watch log: %w", err)
			}
		}
	}
}

// readFrom emits the complete lines after offset and returns the new
// offset.
func readFrom(path string, offset int64, fn func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log: %w", err)
	}
	n, err := scanLines(file, fn)
	return offset + n, err
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("stat log: %w", err)
	}
	return info.Size(), nil
}
