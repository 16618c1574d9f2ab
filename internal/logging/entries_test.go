package logging

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

const sampleLog = `{"time":"2024-05-01T10:00:02Z","level":"WARN","msg":"degenerate attribution","run_id":"aaaaaaaa-1111","command":"decompose","country":"France","sex":"Female","year":2019,"age_group":"95+ years"}
not json at all
{"time":"2024-05-01T10:00:00Z","level":"DEBUG","msg":"loaded dataset","run_id":"aaaaaaaa-1111","command":"decompose","records":44}
{"time":"2024-05-01T10:00:01Z","level":"INFO","msg":"built life table","run_id":"aaaaaaaa-1111","command":"decompose","country":"France","sex":"Female","year":2015,"e0":84.9}

{"time":"2024-05-02T09:00:00Z","level":"ERROR","msg":"selection not found","run_id":"bbbbbbbb-2222","command":"table","country":"Frnace"}
`

func writeSampleLog(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, filepath.Join("/logs", LogFileName), []byte(sampleLog), 0o644); err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestReadEntries(t *testing.T) {
	entries, err := ReadEntries(writeSampleLog(t), "/logs")
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries (invalid lines skipped), got %d", len(entries))
	}

	// Sorted by time.
	for i := 1; i < len(entries); i++ {
		if entries[i].Time.Before(entries[i-1].Time) {
			t.Errorf("entries not sorted at %d", i)
		}
	}

	first := entries[0]
	if first.Message != "loaded dataset" || first.Level != LevelDebug {
		t.Errorf("first entry = %+v", first)
	}
	if first.Attrs["records"] != float64(44) {
		t.Errorf("records attr = %v, want 44", first.Attrs["records"])
	}

	warn := entries[2]
	if warn.Year != 2019 || warn.Country != "France" || warn.Sex != "Female" || warn.Command != "decompose" {
		t.Errorf("context fields not parsed: %+v", warn)
	}
	if _, ok := warn.Attrs["year"]; ok {
		t.Error("context keys should not be duplicated into Attrs")
	}
}

func TestReadEntries_MissingFile(t *testing.T) {
	if _, err := ReadEntries(afero.NewMemMapFs(), "/nowhere"); err == nil {
		t.Error("expected error for missing log file")
	}
}

func TestFilterEntries(t *testing.T) {
	entries, err := ReadEntries(writeSampleLog(t), "/logs")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter", Filter{}, []string{"loaded dataset", "built life table", "degenerate attribution", "selection not found"}},
		{"min level", Filter{Level: "warn"}, []string{"degenerate attribution", "selection not found"}},
		{"run prefix", Filter{RunID: "bbbb"}, []string{"selection not found"}},
		{"command", Filter{Command: "decompose", Level: "info"}, []string{"built life table", "degenerate attribution"}},
		{"country ignores case", Filter{Country: "france"}, []string{"built life table", "degenerate attribution"}},
		{"year", Filter{Year: 2015}, []string{"built life table"}},
		{"since", Filter{Since: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)}, []string{"selection not found"}},
		{"contains", Filter{Contains: "life"}, []string{"built life table"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterEntries(entries, tt.filter)
			var msgs []string
			for _, e := range got {
				msgs = append(msgs, e.Message)
			}
			if strings.Join(msgs, "|") != strings.Join(tt.want, "|") {
				t.Errorf("FilterEntries() = %v, want %v", msgs, tt.want)
			}
		})
	}
}

func TestWriteText(t *testing.T) {
	entries, err := ReadEntries(writeSampleLog(t), "/logs")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteText(&buf, FilterEntries(entries, Filter{Year: 2019})); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"[2024-05-01 10:00:02.000] WARN",
		"degenerate attribution",
		"run=aaaaaaaa",
		"year=2019",
		`{"age_group":"95+ years"}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
