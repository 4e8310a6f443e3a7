package snapshots

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"ncboard/internal/logging"
	"ncboard/internal/record"
)

// Snapshot is a named group of records captured at import time.
type Snapshot struct {
	Name           string          `json:"name"`
	SourceFilename string          `json:"source_file_name"`
	Records        []record.Record `json:"records"`
	SavedAt        time.Time       `json:"saved_at"`
}

// Store persists snapshots as a single JSON document mapping snapshot name
// to Snapshot. Every operation reads the whole document, mutates it, and
// writes it back. Operations never return errors: failures are logged and
// reported as false or zero.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
	lock   *flock.Flock
	now    func() time.Time
}

type document map[string]Snapshot

var errCorrupt = errors.New("snapshot document is corrupt")

// NewStore creates a store backed by path. An empty path yields a store whose
// operations are no-ops.
func NewStore(path string, logger *slog.Logger) *Store {
	s := &Store{
		path:   strings.TrimSpace(path),
		logger: logging.NewComponentLogger(logger, "snapshots"),
		now:    time.Now,
	}
	if s.path != "" {
		s.lock = flock.New(s.path + ".lock")
	}
	return s
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Save stores records under name, replacing any snapshot with that name.
func (s *Store) Save(name string, records []record.Record, sourceFilename string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		logging.WarnWithContext(s.logger, "snapshot not saved", "snapshot_save_rejected",
			logging.String(logging.FieldErrorHint, "snapshot name is empty"),
			logging.String(logging.FieldImpact, "upload is not cached locally"))
		return false
	}
	if strings.TrimSpace(sourceFilename) == "" {
		sourceFilename = name
	}
	err := s.update(func(doc document) (bool, error) {
		doc[name] = Snapshot{
			Name:           name,
			SourceFilename: sourceFilename,
			Records:        append([]record.Record(nil), records...),
			SavedAt:        s.now().UTC(),
		}
		return true, nil
	})
	if err != nil {
		s.warnWrite("save", name, err)
		return false
	}
	s.logger.Debug("saved snapshot",
		logging.String(logging.FieldSnapshot, name),
		logging.String(logging.FieldSourceFile, sourceFilename),
		logging.Int("records", len(records)))
	return true
}

// LoadAll returns every snapshot keyed by name.
func (s *Store) LoadAll() map[string]Snapshot {
	doc, err := s.read()
	if err != nil {
		s.warnRead(err)
		return map[string]Snapshot{}
	}
	return doc
}

// Names returns snapshot names in ascending order.
func (s *Store) Names() []string {
	doc := s.LoadAll()
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a single snapshot.
func (s *Store) Get(name string) (Snapshot, bool) {
	snap, ok := s.LoadAll()[name]
	return snap, ok
}

// LoadOne returns the records of a snapshot, or false when it does not exist.
func (s *Store) LoadOne(name string) ([]record.Record, bool) {
	snap, ok := s.Get(name)
	if !ok {
		return nil, false
	}
	return snap.Records, true
}

// Delete removes a snapshot. Deleting a missing snapshot succeeds.
func (s *Store) Delete(name string) bool {
	err := s.update(func(doc document) (bool, error) {
		if _, ok := doc[name]; !ok {
			return false, nil
		}
		delete(doc, name)
		return true, nil
	})
	if err != nil {
		s.warnWrite("delete", name, err)
		return false
	}
	return true
}

// UpdateMatching replaces every cached record that corresponds to target
// with updated. Records correlate by id when both sides carry one and by
// target's fallback key otherwise, so callers pass the record as it was
// before the edit. Only a changed document is written. It returns the
// number of cached records that matched.
func (s *Store) UpdateMatching(target, updated record.Record) int {
	matched := 0
	err := s.update(func(doc document) (bool, error) {
		changed := false
		for name, snap := range doc {
			for i, stored := range snap.Records {
				if !correlates(stored, target) {
					continue
				}
				matched++
				next := updated
				if next.ID == "" {
					next.ID = stored.ID
				}
				if next.SourceFile == "" {
					next.SourceFile = stored.SourceFile
				}
				if next != stored {
					snap.Records[i] = next
					changed = true
				}
			}
			doc[name] = snap
		}
		return changed, nil
	})
	if err != nil {
		s.warnWrite("update", "", err)
		return 0
	}
	return matched
}

// AttachID records a store-assigned id on the id-less cached copies of
// target. Only entries with the same fields as target are stamped, so an
// unrelated record sharing its fallback key stays cache-only.
func (s *Store) AttachID(target record.Record, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0
	}
	attached := 0
	err := s.update(func(doc document) (bool, error) {
		for name, snap := range doc {
			for i, stored := range snap.Records {
				if stored.HasID() || !stored.SameFields(target) {
					continue
				}
				snap.Records[i].ID = id
				attached++
			}
			doc[name] = snap
		}
		return attached > 0, nil
	})
	if err != nil {
		s.warnWrite("attach_id", "", err)
		return 0
	}
	return attached
}

var timestampSuffix = regexp.MustCompile(`^(.+?)_\d+$`)

// Migrate backfills missing provenance filenames from snapshot names:
// "roster_1700000000000" becomes "roster.xlsx", anything else "<name>.xlsx".
func (s *Store) Migrate() int {
	migrated := 0
	err := s.update(func(doc document) (bool, error) {
		for key, snap := range doc {
			if strings.TrimSpace(snap.SourceFilename) != "" {
				continue
			}
			base := key
			if m := timestampSuffix.FindStringSubmatch(key); m != nil {
				base = m[1]
			}
			snap.SourceFilename = base + ".xlsx"
			if snap.Name == "" {
				snap.Name = key
			}
			doc[key] = snap
			migrated++
		}
		return migrated > 0, nil
	})
	if err != nil {
		s.warnWrite("migrate", "", err)
		return 0
	}
	if migrated > 0 {
		s.logger.Info("backfilled snapshot source filenames", logging.Int("snapshots", migrated))
	}
	return migrated
}

func correlates(stored, target record.Record) bool {
	if stored.HasID() && target.HasID() {
		return strings.TrimSpace(stored.ID) == strings.TrimSpace(target.ID)
	}
	return stored.Key() == target.Key()
}

// update runs fn under both the in-process mutex and the file lock and
// persists the document when fn reports a change.
func (s *Store) update(fn func(document) (bool, error)) error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock cache: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}
	changed, err := fn(doc)
	if err != nil || !changed {
		return err
	}
	return s.writeLocked(doc)
}

func (s *Store) read() (document, error) {
	if s.path == "" {
		return document{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *Store) readLocked() (document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return document{}, nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return document{}, nil
	}
	doc := document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorrupt, err)
	}
	return doc, nil
}

func (s *Store) writeLocked(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (s *Store) warnRead(err error) {
	hint := "check permissions on the cache file"
	if errors.Is(err, errCorrupt) {
		hint = "move the cache file aside to start fresh"
	}
	logging.WarnWithContext(s.logger, "snapshot cache unreadable", "snapshot_read_failed",
		logging.Error(err),
		logging.String("path", s.path),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, "cached uploads are unavailable"))
}

func (s *Store) warnWrite(op, name string, err error) {
	attrs := []logging.Attr{
		logging.Error(err),
		logging.String("operation", op),
		logging.String("path", s.path),
		logging.String(logging.FieldImpact, "change not saved to local cache"),
	}
	if name != "" {
		attrs = append(attrs, logging.String(logging.FieldSnapshot, name))
	}
	if errors.Is(err, errCorrupt) {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, "move the cache file aside to start fresh"))
	}
	logging.WarnWithContext(s.logger, "snapshot cache write failed", "snapshot_write_failed", attrs...)
}
