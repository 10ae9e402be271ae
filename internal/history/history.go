// Package history implements the command history file contract of
// spec.md §6.2/§6.3: one command per line, UTF-8, path overridden by
// CODEX_HISTORY_FILE or defaulting to ~/.codex_history. Grounded on the
// teacher's plain append-only log file idiom (stdlib os, no library —
// the format is a single newline-delimited text file with no framing
// that any pack library would help parse).
package history

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
)

// File is an open, append-ready history log plus its in-memory replay
// buffer, used by the `history` command to list prior input.
type File struct {
	path    string
	entries []string
}

// Open reads path's existing entries (if any) and prepares for appends.
// A missing file is not an error: it is created lazily by the first
// Append.
func Open(path string) (*File, error) {
	f := &File{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			f.entries = append(f.entries, line)
		}
	}
	return f, scanner.Err()
}

// Append records line (a full command line, as typed at the prompt) both
// in memory and on disk.
func (f *File) Append(line string) error {
	if line == "" {
		return nil
	}
	f.entries = append(f.entries, line)
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = out.WriteString(line + "\n")
	return err
}

// Entries returns every recorded command line, oldest first.
func (f *File) Entries() []string {
	out := make([]string, len(f.entries))
	copy(out, f.entries)
	return out
}

// Path returns the backing file path, for diagnostics.
func (f *File) Path() string { return f.path }
