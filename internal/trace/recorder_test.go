package trace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRecorderRotation(t *testing.T) {
	tempDir := t.TempDir()

	r, err := NewRecorder(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	// Start more traces than the rotation keeps.
	for i := 0; i < MaxRotatedFiles+2; i++ {
		if err := r.Start("sess"); err != nil {
			t.Fatal(err)
		}
		r.Log(Event{Op: "archive_thread", OK: true})
		time.Sleep(10 * time.Millisecond) // distinct mod times
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != MaxRotatedFiles {
		t.Errorf("expected %d files, got %d", MaxRotatedFiles, len(entries))
	}
}

func TestRecorderLogsJSONL(t *testing.T) {
	tempDir := t.TempDir()

	r, err := NewRecorder(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Start("session1"); err != nil {
		t.Fatal(err)
	}

	r.Log(Event{SessionID: "session1", Op: "mark_read", Candidate: "gmail.markThreadRead", OK: true})
	r.Log(Event{SessionID: "session1", Op: "archive_thread", OK: false, Kind: "remote_threw", Detail: "Error: boom"})
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 file, got %d", len(entries))
	}

	content, err := os.ReadFile(filepath.Join(tempDir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}

	var first Event
	line, _, _ := readFirstLine(content)
	if err := json.Unmarshal(line, &first); err != nil {
		t.Fatalf("trace line is not valid JSON: %v\n%s", err, content)
	}
	if first.Op != "mark_read" || !first.OK || first.Candidate != "gmail.markThreadRead" {
		t.Errorf("unexpected first event: %+v", first)
	}
	if first.Timestamp.IsZero() {
		t.Error("recorder must stamp events that omit a timestamp")
	}
}

func TestUnstartedRecorderDropsEvents(t *testing.T) {
	r, err := NewRecorder(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	// Must not panic or write anything.
	r.Log(Event{Op: "noop"})
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
}

func readFirstLine(b []byte) ([]byte, []byte, bool) {
	for i, c := range b {
		if c == '\n' {
			return b[:i], b[i+1:], true
		}
	}
	return b, nil, false
}
