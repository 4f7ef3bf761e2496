package trace

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()
	return NewStore(filepath.Join(base, "logs"), filepath.Join(base, "transcripts"))
}

func TestAppendWritesJSONLines(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append("widgets-login", "s-1", "session-established", map[string]string{"agent": "a-1"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append("widgets-login", "s-1", "message", nil); err != nil {
		t.Fatalf("second Append failed: %v", err)
	}

	f, err := os.Open(s.LogPath("widgets-login", "s-1"))
	if err != nil {
		t.Fatalf("open trace log: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines+1, err)
		}
		if rec["event"] == "" {
			t.Fatalf("line %d missing event: %v", lines+1, rec)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("trace log has %d lines, want 2", lines)
	}
}

func TestAppendRequiresSessionID(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append("widgets-login", "", "event", nil); err == nil {
		t.Fatalf("expected error for empty session id")
	}
}

func TestDeleteTraceFilesToleratesMissing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append("widgets-login", "s-1", "x", nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// s-2 never existed; deletion must still succeed.
	if err := s.DeleteTraceFiles("widgets-login", []string{"s-1", "s-2"}); err != nil {
		t.Fatalf("DeleteTraceFiles failed: %v", err)
	}
	if _, err := os.Stat(s.LogPath("widgets-login", "s-1")); !os.IsNotExist(err) {
		t.Fatalf("expected trace log removed, err=%v", err)
	}

	// A worktree with no trace files at all is also fine.
	if err := s.DeleteTraceFiles("never-used", nil); err != nil {
		t.Fatalf("DeleteTraceFiles(no files) failed: %v", err)
	}
}

func TestDeleteTranscripts(t *testing.T) {
	s := newTestStore(t)
	dir := s.TranscriptDir("widgets-login")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir transcripts: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "chat.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	if err := s.DeleteTranscripts("widgets-login"); err != nil {
		t.Fatalf("DeleteTranscripts failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected transcript dir removed, err=%v", err)
	}

	if err := s.DeleteTranscripts("never-existed"); err != nil {
		t.Fatalf("DeleteTranscripts on absent dir failed: %v", err)
	}
}
