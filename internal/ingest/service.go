// Package ingest runs the bulk flows that rebuild the working set: spreadsheet
// import, refresh from the candidate store, loading every cached snapshot,
// and removing a snapshot together with its store records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"ncboard/internal/logging"
	"ncboard/internal/reconcile"
	"ncboard/internal/record"
	"ncboard/internal/remote"
	"ncboard/internal/session"
	"ncboard/internal/sheet"
	"ncboard/internal/snapshots"
)

// ErrNoRows is returned when an upload has a header row but no data.
var ErrNoRows = errors.New("spreadsheet has no data rows")

var errNoRemote = errors.New("candidate store not configured")

// Remote is the subset of the candidate store client used by bulk flows.
type Remote interface {
	FetchAll(ctx context.Context) ([]record.Record, error)
	Import(ctx context.Context, rows []record.Record, sourceFile string) (int, error)
	DeleteBySource(ctx context.Context, sourceFile string) (remote.BySourceResult, error)
}

// Service wires the session to the snapshot cache and the candidate store.
type Service struct {
	session *session.Session
	cache   *snapshots.Store
	remote  Remote
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds a Service. remote may be nil for offline use.
func NewService(sess *session.Session, cache *snapshots.Store, client Remote, logger *slog.Logger) *Service {
	return &Service{
		session: sess,
		cache:   cache,
		remote:  client,
		logger:  logging.NewComponentLogger(logger, "ingest"),
		now:     time.Now,
	}
}

// ImportResult summarizes an upload.
type ImportResult struct {
	File       string `json:"file"`
	Snapshot   string `json:"snapshot"`
	Rows       int    `json:"rows"`
	Cached     bool   `json:"cached"`
	Inserted   int    `json:"inserted"`
	Refreshed  bool   `json:"refreshed"`
	RemoteErr  error  `json:"-"`
	RefreshErr error  `json:"-"`
}

// ImportFile parses the spreadsheet at path and makes it the working set.
// Parse failures leave the session untouched. The upload is cached as a new
// snapshot and pushed to the store; when the store accepts it the working set
// is refreshed so records carry their store ids.
func (s *Service) ImportFile(ctx context.Context, path string) (ImportResult, error) {
	filename := filepath.Base(path)
	rows, err := sheet.ReadFile(path)
	if err != nil {
		return ImportResult{File: filename}, err
	}
	if len(rows) == 0 {
		return ImportResult{File: filename}, fmt.Errorf("%s: %w", filename, ErrNoRows)
	}

	records := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		rec := record.MapRow(row)
		rec.SourceFile = filename
		records = append(records, rec)
	}
	// Repeated rows in one sheet collapse before anything is cached or pushed.
	records = reconcile.Dedupe(records)
	s.session.Replace(records)

	result := ImportResult{
		File:     filename,
		Snapshot: s.snapshotName(filename),
		Rows:     len(records),
	}
	result.Cached = s.cache.Save(result.Snapshot, records, filename)

	log := s.logger.With(
		logging.String(logging.FieldSourceFile, filename),
		logging.String(logging.FieldSnapshot, result.Snapshot))
	log.Info("imported spreadsheet", logging.Int("rows", len(records)))

	if s.remote == nil {
		result.RemoteErr = errNoRemote
		return result, nil
	}
	inserted, err := s.remote.Import(ctx, records, filename)
	if err != nil {
		result.RemoteErr = err
		logging.WarnWithContext(log, "upload not stored remotely", "import_push_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the candidate store and import again"),
			logging.String(logging.FieldImpact, "records stay cache-only until the next successful import"))
		return result, nil
	}
	result.Inserted = inserted

	if _, err := s.Refresh(ctx); err != nil {
		result.RefreshErr = err
		return result, nil
	}
	result.Refreshed = true
	return result, nil
}

// snapshotName returns "<base>_<unix millis>" for filename.
func (s *Service) snapshotName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if base == "" {
		base = "upload"
	}
	return base + "_" + strconv.FormatInt(s.now().UnixMilli(), 10)
}

// Refresh replaces the working set with the store's records. On failure the
// working set is left as it was.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	if s.remote == nil {
		return 0, errNoRemote
	}
	fetched, err := s.remote.FetchAll(ctx)
	if err != nil {
		logging.WarnWithContext(s.logger, "refresh from candidate store failed", "refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the candidate store url and credentials"),
			logging.String(logging.FieldImpact, "working set not refreshed"))
		return 0, err
	}
	records := reconcile.Dedupe(fetched)
	s.session.Replace(records)
	s.logger.Info("refreshed from candidate store",
		logging.Int("fetched", len(fetched)),
		logging.Int("records", len(records)))
	return len(records), nil
}

// LoadAll replaces the working set with the merged records of every cached
// snapshot, visiting snapshots by name. It returns false when the cache is
// empty.
func (s *Service) LoadAll() (int, bool) {
	all := s.cache.LoadAll()
	if len(all) == 0 {
		return 0, false
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	var combined []record.Record
	for _, name := range names {
		combined = append(combined, all[name].Records...)
	}
	records := reconcile.Dedupe(combined)
	s.session.Replace(records)
	s.logger.Info("loaded cached snapshots",
		logging.Int("snapshots", len(names)),
		logging.Int("records", len(records)))
	return len(records), true
}

// RemoveResult reports a snapshot removal.
type RemoveResult struct {
	Snapshot         string   `json:"snapshot"`
	SourceFile       string   `json:"source_file"`
	Deleted          int      `json:"deleted"`
	RemainingSources []string `json:"remaining_sources,omitempty"`
	LocalRemoved     bool     `json:"local_removed"`
	Refreshed        bool     `json:"refreshed"`
	RemoteErr        error    `json:"-"`
}

// RemoveSnapshot deletes the store records whose provenance matches the
// snapshot and removes the snapshot from the cache. The local delete happens
// even when the store call fails.
func (s *Service) RemoveSnapshot(ctx context.Context, name string) (RemoveResult, error) {
	snap, ok := s.cache.Get(name)
	if !ok {
		return RemoveResult{Snapshot: name}, fmt.Errorf("snapshot %q not found", name)
	}
	provenance := firstNonEmpty(snap.SourceFilename, snap.Name, name)
	result := RemoveResult{Snapshot: name, SourceFile: provenance}
	log := s.logger.With(
		logging.String(logging.FieldSnapshot, name),
		logging.String(logging.FieldSourceFile, provenance))

	var remoteErr error
	if s.remote == nil {
		remoteErr = errNoRemote
	} else {
		res, err := s.remote.DeleteBySource(ctx, provenance)
		if err != nil {
			remoteErr = err
		} else {
			result.Deleted = res.Deleted
			result.RemainingSources = res.AllSourceFiles
		}
	}
	if remoteErr != nil {
		result.RemoteErr = remoteErr
		logging.WarnWithContext(log, "store records not removed", "delete_by_source_failed",
			logging.Error(remoteErr),
			logging.String(logging.FieldErrorHint, "remove the records again once the candidate store is reachable"),
			logging.String(logging.FieldImpact, "store still holds records from this file"))
	}

	result.LocalRemoved = s.cache.Delete(name)
	log.Info("removed snapshot",
		logging.Int("deleted", result.Deleted),
		logging.Bool("local_removed", result.LocalRemoved))

	if remoteErr == nil {
		if _, err := s.Refresh(ctx); err == nil {
			result.Refreshed = true
		}
	}
	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
