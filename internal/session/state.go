package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"ncboard/internal/record"
	"ncboard/internal/views"
)

// state is the on-disk form of a session so the CLI can resume between
// invocations.
type state struct {
	Records   []record.Record `json:"records"`
	Hidden    []string        `json:"hidden,omitempty"`
	Filter    views.Filter    `json:"filter"`
	OpenGroup string          `json:"open_group,omitempty"`
}

// Load restores a session saved with Save. A missing file yields an empty
// session.
func Load(path string) (*Session, error) {
	s := New()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("read session: %w", err)
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return s, fmt.Errorf("parse session: %w", err)
	}
	s.records = st.Records
	for _, identity := range st.Hidden {
		s.hidden[identity] = struct{}{}
	}
	s.filter = st.Filter
	s.openGroup = st.OpenGroup
	return s, nil
}

// Save writes the session atomically to path.
func (s *Session) Save(path string) error {
	s.mu.RLock()
	st := state{
		Records:   s.records,
		Filter:    s.filter,
		OpenGroup: s.openGroup,
	}
	for identity := range s.hidden {
		st.Hidden = append(st.Hidden, identity)
	}
	sort.Strings(st.Hidden)
	data, err := json.MarshalIndent(st, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
