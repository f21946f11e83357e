// Package activity reads the tail of basket's own JSON log for display in the
// terminal UI.
package activity

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Entry is one decoded log record.
type Entry struct {
	Time    time.Time
	Level   string
	Logger  string
	Message string
	Op      string
	Err     string
}

// record matches the keys written by zap's production JSON encoder.
type record struct {
	TS     string `json:"ts"`
	Level  string `json:"level"`
	Logger string `json:"logger"`
	Msg    string `json:"msg"`
	Op     string `json:"op"`
	Error  string `json:"error"`
}

// Tail returns at most n entries from the end of the log at path, oldest
// first. A missing file yields no entries. Lines that are not JSON records
// are kept as plain messages.
func Tail(path string, n int) ([]Entry, error) {
	lines, err := readLast(path, n)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, parse(line))
	}
	return entries, nil
}

func parse(line string) Entry {
	var r record
	if err := json.Unmarshal([]byte(line), &r); err != nil || r.Msg == "" {
		return Entry{Message: line}
	}
	e := Entry{
		Level:   strings.ToUpper(r.Level),
		Logger:  r.Logger,
		Message: r.Msg,
		Op:      r.Op,
		Err:     r.Error,
	}
	if ts, err := time.Parse("2006-01-02T15:04:05.000Z0700", r.TS); err == nil {
		e.Time = ts
	}
	return e
}

// readLast keeps a ring of the last n lines so the file is scanned once with
// O(n) memory.
func readLast(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "open log")
	}
	defer func() { _ = file.Close() }()

	ring := make([]string, n)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	seen := 0
	for scanner.Scan() {
		ring[seen%n] = scanner.Text()
		seen++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read log")
	}

	if seen <= n {
		return ring[:seen], nil
	}
	out := make([]string, n)
	start := seen % n
	copy(out, ring[start:])
	copy(out[n-start:], ring[:start])
	return out, nil
}
