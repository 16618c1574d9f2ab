package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	RunID   string         `json:"run_id,omitempty"`
	Command string         `json:"command,omitempty"`
	Country string         `json:"country,omitempty"`
	Sex     string         `json:"sex,omitempty"`
	Year    int            `json:"year,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Filter selects log entries. Zero-valued fields match everything.
type Filter struct {
	// Level keeps entries at or above this level.
	Level   string
	Since   time.Time
	RunID   string
	Command string
	Country string
	Year    int
	// Contains keeps entries whose message contains this substring.
	Contains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ReadEntries parses the active log file in dir, oldest first. Lines that
// are not valid JSON are skipped.
func ReadEntries(fs afero.Fs, dir string) ([]Entry, error) {
	f, err := fs.Open(filepath.Join(dir, LogFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	const maxLine = 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})
	return entries, nil
}

func parseEntry(line string) (Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	entry := Entry{Attrs: make(map[string]any)}
	for k, v := range raw {
		switch k {
		case "time":
			if s, ok := v.(string); ok {
				entry.Time, _ = time.Parse(time.RFC3339Nano, s)
			}
		case "level":
			entry.Level, _ = v.(string)
		case "msg":
			entry.Message, _ = v.(string)
		case keyRun:
			entry.RunID, _ = v.(string)
		case keyCommand:
			entry.Command, _ = v.(string)
		case keyCountry:
			entry.Country, _ = v.(string)
		case keySex:
			entry.Sex, _ = v.(string)
		case keyYear:
			if n, ok := v.(float64); ok {
				entry.Year = int(n)
			}
		default:
			entry.Attrs[k] = v
		}
	}
	return entry, nil
}

// FilterEntries returns the entries matching every criterion in f.
func FilterEntries(entries []Entry, f Filter) []Entry {
	var out []Entry
	for _, e := range entries {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (f Filter) matches(e Entry) bool {
	if f.Level != "" {
		want, ok1 := levelOrder[strings.ToUpper(f.Level)]
		got, ok2 := levelOrder[e.Level]
		if ok1 && ok2 && got < want {
			return false
		}
	}
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if f.RunID != "" && !strings.HasPrefix(e.RunID, f.RunID) {
		return false
	}
	if f.Command != "" && e.Command != f.Command {
		return false
	}
	if f.Country != "" && !strings.EqualFold(e.Country, f.Country) {
		return false
	}
	if f.Year != 0 && e.Year != f.Year {
		return false
	}
	if f.Contains != "" && !strings.Contains(e.Message, f.Contains) {
		return false
	}
	return true
}

// WriteText writes entries in a one-line-per-entry human format:
//
//	[2024-05-01 10:00:00.000] INFO  - message (run=..., year=...) {"k":"v"}
func WriteText(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		var sb strings.Builder
		fmt.Fprintf(&sb, "[%s] %-5s - %s", e.Time.Format("2006-01-02 15:04:05.000"), e.Level, e.Message)

		var ctx []string
		if e.RunID != "" {
			ctx = append(ctx, "run="+shortRun(e.RunID))
		}
		if e.Command != "" {
			ctx = append(ctx, "command="+e.Command)
		}
		if e.Country != "" {
			ctx = append(ctx, "country="+e.Country)
		}
		if e.Sex != "" {
			ctx = append(ctx, "sex="+e.Sex)
		}
		if e.Year != 0 {
			ctx = append(ctx, fmt.Sprintf("year=%d", e.Year))
		}
		if len(ctx) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(ctx, ", "))
		}
		if len(e.Attrs) > 0 {
			if b, err := json.Marshal(e.Attrs); err == nil {
				sb.WriteString(" ")
				sb.Write(b)
			}
		}
		sb.WriteString("\n")

		if _, err := io.WriteString(w, sb.String()); err != nil {
			return fmt.Errorf("failed to write log entry: %w", err)
		}
	}
	return nil
}

func shortRun(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
