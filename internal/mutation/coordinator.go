package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"ncboard/internal/logging"
	"ncboard/internal/record"
	"ncboard/internal/session"
)

// ErrRecordNotFound reports a reference that matches no working-set record.
var ErrRecordNotFound = errors.New("record not found")

// errNoStore is returned when no candidate store is configured.
var errNoStore = errors.New("candidate store not configured")

// Status classifies what happened to a mutation.
type Status int

const (
	// Persisted means the candidate store confirmed the change.
	Persisted Status = iota
	// LocalOnly means the change exists only in the session and local cache.
	LocalOnly
	// NotPersisted means nothing changed because the store call failed.
	NotPersisted
)

func (s Status) String() string {
	switch s {
	case Persisted:
		return "persisted"
	case LocalOnly:
		return "local-only"
	case NotPersisted:
		return "not-persisted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is returned by every mutation. Err carries the store failure for
// LocalOnly and NotPersisted outcomes.
type Outcome struct {
	Status Status
	ID     string
	Record record.Record
	Err    error
}

// Ref identifies a record by store id or, for cache-only records, by
// working-set position.
type Ref struct {
	ID       string
	Position int
}

// ByID references a store-confirmed record.
func ByID(id string) Ref { return Ref{ID: strings.TrimSpace(id), Position: -1} }

// ByPosition references a record by its working-set position.
func ByPosition(position int) Ref { return Ref{Position: position} }

func (r Ref) String() string {
	if r.ID != "" {
		return "id " + r.ID
	}
	return fmt.Sprintf("position %d", r.Position)
}

// Store is the subset of the candidate store the coordinator writes through.
type Store interface {
	Create(ctx context.Context, rec record.Record) (string, error)
	UpdateByID(ctx context.Context, id string, rec record.Record) error
	DeleteByID(ctx context.Context, id string) (int, error)
}

// Cache is the subset of the snapshot cache kept in step with edits.
type Cache interface {
	UpdateMatching(target, updated record.Record) int
	AttachID(target record.Record, id string) int
}

// Coordinator applies edits and deletes to the session, the local cache and
// the candidate store.
//
// Local application is serialized; store calls run outside the lock, so two
// overlapping edits to one record resolve in favour of the last response.
type Coordinator struct {
	session *session.Session
	store   Store
	cache   Cache
	logger  *slog.Logger
	mu      sync.Mutex
}

// New builds a coordinator. store and cache may be nil.
func New(sess *session.Session, store Store, cache Cache, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		session: sess,
		store:   store,
		cache:   cache,
		logger:  logging.NewComponentLogger(logger, "mutation"),
	}
}

func (c *Coordinator) resolve(ref Ref) (int, record.Record, error) {
	pos := ref.Position
	if ref.ID != "" {
		pos = c.session.IndexOfID(ref.ID)
	}
	rec, ok := c.session.At(pos)
	if !ok {
		return -1, record.Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, ref)
	}
	return pos, rec, nil
}

// Edit applies update to the referenced record.
//
// A store-confirmed record is updated in the store first; the session and
// cache change only when the store accepts. A cache-only record is updated
// locally at once and then created in the store; when that fails the record
// stays cache-only and the outcome is LocalOnly.
func (c *Coordinator) Edit(ctx context.Context, ref Ref, update record.Update) (Outcome, error) {
	_, current, err := c.resolve(ref)
	if err != nil {
		return Outcome{Status: NotPersisted, Err: err}, err
	}
	if current.HasID() {
		return c.editConfirmed(ctx, current, update), nil
	}
	return c.editCacheOnly(ctx, ref, update)
}

func (c *Coordinator) editConfirmed(ctx context.Context, current record.Record, update record.Update) Outcome {
	id := strings.TrimSpace(current.ID)
	log := c.logger.With(logging.String(logging.FieldRecordID, id))

	if err := c.storeUpdate(ctx, id, update.Apply(current)); err != nil {
		logging.WarnWithContext(log, "record update rejected", "record_update_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the candidate store and retry the edit"),
			logging.String(logging.FieldImpact, "edit not saved"))
		return Outcome{Status: NotPersisted, ID: id, Record: current, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pos := c.session.IndexOfID(id)
	latest, ok := c.session.At(pos)
	if !ok {
		// Removed while the update was in flight.
		return Outcome{Status: Persisted, ID: id, Record: update.Apply(current)}
	}
	applied := update.Apply(latest)
	if err := c.session.Set(pos, applied); err != nil {
		return Outcome{Status: Persisted, ID: id, Record: applied, Err: err}
	}
	if c.cache != nil {
		c.cache.UpdateMatching(latest, applied)
	}
	c.session.Dedupe()
	log.Info("record updated")
	return Outcome{Status: Persisted, ID: id, Record: applied}
}

func (c *Coordinator) editCacheOnly(ctx context.Context, ref Ref, update record.Update) (Outcome, error) {
	c.mu.Lock()
	pos, current, err := c.resolve(ref)
	if err != nil {
		c.mu.Unlock()
		return Outcome{Status: NotPersisted, Err: err}, err
	}
	applied := update.Apply(current)
	if err := c.session.Set(pos, applied); err != nil {
		c.mu.Unlock()
		return Outcome{Status: NotPersisted, Err: err}, err
	}
	if c.cache != nil {
		c.cache.UpdateMatching(current, applied)
	}
	c.mu.Unlock()

	id, err := c.storeCreate(ctx, applied)
	if err != nil {
		c.mu.Lock()
		c.session.Dedupe()
		c.mu.Unlock()
		logging.WarnWithContext(c.logger, "record saved locally only", "record_create_failed",
			logging.Error(err),
			logging.String("name", applied.Name),
			logging.String(logging.FieldErrorHint, "import the snapshot again once the candidate store is reachable"),
			logging.String(logging.FieldImpact, "edit kept in the local cache only"))
		return Outcome{Status: LocalOnly, Record: applied, Err: err}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	confirmed := applied
	confirmed.ID = id
	if target := c.createdPosition(pos, applied); target >= 0 {
		latest, _ := c.session.At(target)
		latest.ID = id
		confirmed = latest
		_ = c.session.Set(target, latest)
	}
	if c.cache != nil {
		c.cache.AttachID(applied, id)
	}
	c.session.Dedupe()
	c.logger.Info("record created", logging.String(logging.FieldRecordID, id))
	return Outcome{Status: Persisted, ID: id, Record: confirmed}, nil
}

// createdPosition finds the edited record again after a store create. The
// position taken before the call wins while it still holds the same id-less
// record; otherwise the first id-less record with identical fields is used.
func (c *Coordinator) createdPosition(pos int, applied record.Record) int {
	if latest, ok := c.session.At(pos); ok && !latest.HasID() && latest.Identity() == applied.Identity() {
		return pos
	}
	for i, rec := range c.session.Records() {
		if !rec.HasID() && rec.SameFields(applied) {
			return i
		}
	}
	return -1
}

// Delete removes the referenced record. A store-confirmed record leaves the
// working set only after the store confirms; a cache-only record is removed
// at once.
func (c *Coordinator) Delete(ctx context.Context, ref Ref) (Outcome, error) {
	_, current, err := c.resolve(ref)
	if err != nil {
		return Outcome{Status: NotPersisted, Err: err}, err
	}

	if !current.HasID() {
		c.mu.Lock()
		defer c.mu.Unlock()
		pos, latest, err := c.resolve(ref)
		if err != nil {
			return Outcome{Status: NotPersisted, Err: err}, err
		}
		if _, err := c.session.Remove(pos); err != nil {
			return Outcome{Status: NotPersisted, Err: err}, err
		}
		c.logger.Info("removed cache-only record", logging.String("name", latest.Name))
		return Outcome{Status: LocalOnly, Record: latest}, nil
	}

	id := strings.TrimSpace(current.ID)
	log := c.logger.With(logging.String(logging.FieldRecordID, id))
	if _, err := c.storeDelete(ctx, id); err != nil {
		logging.WarnWithContext(log, "record delete rejected", "record_delete_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the candidate store and retry the delete"),
			logging.String(logging.FieldImpact, "record kept"))
		return Outcome{Status: NotPersisted, ID: id, Record: current, Err: err}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if pos := c.session.IndexOfID(id); pos >= 0 {
		_, _ = c.session.Remove(pos)
	}
	log.Info("record deleted")
	return Outcome{Status: Persisted, ID: id, Record: current}, nil
}

// Hide excludes the record at position from the dashboard views without
// touching the store or the cache.
func (c *Coordinator) Hide(position int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Hide(position)
}

func (c *Coordinator) storeUpdate(ctx context.Context, id string, rec record.Record) error {
	if c.store == nil {
		return errNoStore
	}
	return c.store.UpdateByID(ctx, id, rec)
}

func (c *Coordinator) storeCreate(ctx context.Context, rec record.Record) (string, error) {
	if c.store == nil {
		return "", errNoStore
	}
	return c.store.Create(ctx, rec)
}

func (c *Coordinator) storeDelete(ctx context.Context, id string) (int, error) {
	if c.store == nil {
		return 0, errNoStore
	}
	return c.store.DeleteByID(ctx, id)
}
