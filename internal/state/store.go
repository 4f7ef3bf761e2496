// Package state persists the workspace configuration document: the worktree
// list, each worktree's active tab pointer, and global settings. The whole
// document is always read before write and written back in full, serialized
// behind a single mutex so concurrent operations on different worktrees
// cannot lose each other's edits.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrWorktreeNotFound = errors.New("worktree not found in configuration")

type WorktreeEntry struct {
	RepoURL     string `yaml:"repo_url" json:"repo_url"`
	BranchName  string `yaml:"branch_name" json:"branch_name"`
	FolderName  string `yaml:"folder_name" json:"folder_name"`
	ActiveTabID string `yaml:"active_tab_id,omitempty" json:"active_tab_id,omitempty"`
}

type document struct {
	Worktrees []WorktreeEntry   `yaml:"worktrees"`
	Settings  map[string]string `yaml:"settings,omitempty"`
}

type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{}, nil
		}
		return nil, fmt.Errorf("read configuration %q: %w", s.path, err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse configuration %q: %w", s.path, err)
	}
	return &doc, nil
}

func (s *Store) save(doc *document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create configuration directory: %w", err)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write configuration %q: %w", s.path, err)
	}
	return nil
}

func (s *Store) ListWorktrees() ([]WorktreeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]WorktreeEntry, len(doc.Worktrees))
	copy(out, doc.Worktrees)
	return out, nil
}

// GetWorktree returns nil when no entry exists for folderName.
func (s *Store) GetWorktree(folderName string) (*WorktreeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Worktrees {
		if doc.Worktrees[i].FolderName == folderName {
			entry := doc.Worktrees[i]
			return &entry, nil
		}
	}
	return nil, nil
}

// EnsureWorktree appends entry unless an entry with the same folder name is
// already present. It reports whether a new entry was added, so create and
// sync can share one idempotent write path.
func (s *Store) EnsureWorktree(entry WorktreeEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return false, err
	}
	for i := range doc.Worktrees {
		if doc.Worktrees[i].FolderName == entry.FolderName {
			return false, nil
		}
	}
	doc.Worktrees = append(doc.Worktrees, entry)
	if err := s.save(doc); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveWorktree deletes the entry for folderName. Removing an absent entry
// is not an error; deletion must always be able to finish.
func (s *Store) RemoveWorktree(folderName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	kept := doc.Worktrees[:0]
	removed := false
	for _, wt := range doc.Worktrees {
		if wt.FolderName == folderName {
			removed = true
			continue
		}
		kept = append(kept, wt)
	}
	if !removed {
		return nil
	}
	doc.Worktrees = kept
	return s.save(doc)
}

func (s *Store) SetActiveTab(folderName, tabID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Worktrees {
		if doc.Worktrees[i].FolderName == folderName {
			doc.Worktrees[i].ActiveTabID = tabID
			return s.save(doc)
		}
	}
	return fmt.Errorf("set active tab for %q: %w", folderName, ErrWorktreeNotFound)
}

// ActiveTab returns the persisted active tab id, empty when none was set.
func (s *Store) ActiveTab(folderName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", err
	}
	for i := range doc.Worktrees {
		if doc.Worktrees[i].FolderName == folderName {
			return doc.Worktrees[i].ActiveTabID, nil
		}
	}
	return "", fmt.Errorf("active tab for %q: %w", folderName, ErrWorktreeNotFound)
}

// RepoURLs returns the distinct repository URLs across all worktrees, in
// first-seen order.
func (s *Store) RepoURLs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(doc.Worktrees))
	urls := make([]string, 0, len(doc.Worktrees))
	for _, wt := range doc.Worktrees {
		if _, ok := seen[wt.RepoURL]; ok {
			continue
		}
		seen[wt.RepoURL] = struct{}{}
		urls = append(urls, wt.RepoURL)
	}
	return urls, nil
}

func (s *Store) Setting(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", err
	}
	return doc.Settings[key], nil
}

func (s *Store) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if doc.Settings == nil {
		doc.Settings = make(map[string]string)
	}
	doc.Settings[key] = value
	return s.save(doc)
}
