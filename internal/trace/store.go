// Package trace owns the per-session trace logs and per-worktree transcript
// directories. Logs are append-only JSON lines keyed by session id; both
// stores exist mainly so worktree teardown has something concrete to delete.
package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Store struct {
	logRoot        string
	transcriptRoot string
}

// NewStore builds a store writing trace logs under
// <logRoot>/<folderName>/<sessionID>.jsonl and transcripts under
// <transcriptRoot>/<folderName>/.
func NewStore(logRoot, transcriptRoot string) *Store {
	return &Store{logRoot: logRoot, transcriptRoot: transcriptRoot}
}

func (s *Store) LogPath(folderName, sessionID string) string {
	return filepath.Join(s.logRoot, folderName, sessionID+".jsonl")
}

func (s *Store) TranscriptDir(folderName string) string {
	return filepath.Join(s.transcriptRoot, folderName)
}

type logRecord struct {
	Ts    time.Time `json:"ts"`
	Event string    `json:"event"`
	Data  any       `json:"data,omitempty"`
}

// Append writes one event line to the session's trace log, creating the file
// and its directory as needed.
func (s *Store) Append(folderName, sessionID, event string, data any) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	path := s.LogPath(folderName, sessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create trace directory: %w", err)
	}
	line, err := json.Marshal(logRecord{Ts: time.Now().UTC(), Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("encode trace record: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open trace log %q: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append trace record: %w", err)
	}
	return nil
}

// DeleteTraceFiles removes the trace logs for the given session ids. Missing
// files are fine; failures are joined so one bad file does not hide another.
func (s *Store) DeleteTraceFiles(folderName string, sessionIDs []string) error {
	var errs []error
	for _, id := range sessionIDs {
		path := s.LogPath(folderName, id)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove trace log %q: %w", path, err))
		}
	}
	// The per-worktree log directory goes too once its files are gone.
	if err := os.RemoveAll(filepath.Join(s.logRoot, folderName)); err != nil {
		errs = append(errs, fmt.Errorf("remove trace directory for %q: %w", folderName, err))
	}
	return errors.Join(errs...)
}

// DeleteTranscripts removes the worktree's transcript directory. A directory
// that never existed counts as success.
func (s *Store) DeleteTranscripts(folderName string) error {
	if err := os.RemoveAll(s.TranscriptDir(folderName)); err != nil {
		return fmt.Errorf("remove transcript directory for %q: %w", folderName, err)
	}
	return nil
}
