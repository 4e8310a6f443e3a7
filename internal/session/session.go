// Package session holds the dashboard's mutable state: the working set of
// records, the hidden set, the filter selection and the open listing group.
//
// A Session replaces the global dashboard state of a browser page. The host
// creates one per user session, mutates it through the methods below and
// calls Views after each change to recompute every aggregate.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"ncboard/internal/reconcile"
	"ncboard/internal/record"
	"ncboard/internal/views"
)

// ErrPosition reports a working-set position that does not exist.
var ErrPosition = errors.New("position out of range")

// Session is safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	records   []record.Record
	hidden    map[string]struct{}
	filter    views.Filter
	openGroup string
}

// New returns an empty session.
func New() *Session {
	return &Session{hidden: map[string]struct{}{}}
}

// Replace swaps the working set wholesale. Hidden records are forgotten
// because positions and identities from the previous set no longer apply.
func (s *Session) Replace(records []record.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]record.Record(nil), records...)
	s.hidden = map[string]struct{}{}
}

// Merge folds incoming records into the working set.
func (s *Session) Merge(incoming []record.Record) reconcile.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged, stats := reconcile.MergeWithStats(s.records, incoming)
	s.records = merged
	return stats
}

// Dedupe collapses duplicate identities left behind by edits.
func (s *Session) Dedupe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = reconcile.Dedupe(s.records)
}

// Records returns a copy of the working set.
func (s *Session) Records() []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]record.Record(nil), s.records...)
}

// Len returns the working-set size.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// At returns the record at position.
func (s *Session) At(position int) (record.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if position < 0 || position >= len(s.records) {
		return record.Record{}, false
	}
	return s.records[position], true
}

// IndexOfID returns the position of the record with id, or -1.
func (s *Session) IndexOfID(id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, r := range s.records {
		if strings.TrimSpace(r.ID) == id {
			return i
		}
	}
	return -1
}

// IndexOfIdentity returns the position of the record with the given
// identity, or -1.
func (s *Session) IndexOfIdentity(identity string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, r := range s.records {
		if r.Identity() == identity {
			return i
		}
	}
	return -1
}

// Set overwrites the record at position. A hidden record stays hidden when
// its identity changes.
func (s *Session) Set(position int, rec record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position < 0 || position >= len(s.records) {
		return fmt.Errorf("%w: %d", ErrPosition, position)
	}
	before := s.records[position].Identity()
	s.records[position] = rec
	if after := rec.Identity(); after != before {
		if _, ok := s.hidden[before]; ok {
			delete(s.hidden, before)
			s.hidden[after] = struct{}{}
		}
	}
	return nil
}

// Remove deletes the record at position.
func (s *Session) Remove(position int) (record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position < 0 || position >= len(s.records) {
		return record.Record{}, fmt.Errorf("%w: %d", ErrPosition, position)
	}
	removed := s.records[position]
	s.records = append(s.records[:position:position], s.records[position+1:]...)
	delete(s.hidden, removed.Identity())
	return removed, nil
}

// Hide excludes the record at position from every view without removing it
// from the working set.
func (s *Session) Hide(position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position < 0 || position >= len(s.records) {
		return fmt.Errorf("%w: %d", ErrPosition, position)
	}
	s.hidden[s.records[position].Identity()] = struct{}{}
	return nil
}

// Unhide clears the hidden set.
func (s *Session) Unhide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden = map[string]struct{}{}
}

// HiddenCount returns the number of hidden records.
func (s *Session) HiddenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hidden)
}

// IsHidden reports whether the record at position is hidden.
func (s *Session) IsHidden(position int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if position < 0 || position >= len(s.records) {
		return false
	}
	_, ok := s.hidden[s.records[position].Identity()]
	return ok
}

// ActiveRows returns the working set minus hidden records.
func (s *Session) ActiveRows() []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked()
}

func (s *Session) activeLocked() []record.Record {
	out := make([]record.Record, 0, len(s.records))
	for _, r := range s.records {
		if _, hidden := s.hidden[r.Identity()]; hidden {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Filter returns the current selection.
func (s *Session) Filter() views.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SetFilter replaces the selection. Changing the qualification closes the
// open listing group.
func (s *Session) SetFilter(f views.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Qualification != s.filter.Qualification {
		s.openGroup = ""
	}
	s.filter = f
}

// OpenGroup expands a listing group, collapsing any other.
func (s *Session) OpenGroup(qualification string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openGroup = qualification
}

// CloseGroups collapses every listing group.
func (s *Session) CloseGroups() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openGroup = ""
}

// OpenGroups returns the expanded listing groups; at most one.
func (s *Session) OpenGroups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.openGroup == "" {
		return nil
	}
	return []string{s.openGroup}
}

// Views recomputes every dashboard view over the active rows.
func (s *Session) Views() views.Dashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return views.Build(s.activeLocked(), s.filter)
}
