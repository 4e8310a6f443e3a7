package mutation_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ncboard/internal/mutation"
	"ncboard/internal/record"
	"ncboard/internal/session"
	"ncboard/internal/snapshots"
)

type fakeStore struct {
	createID  string
	createErr error
	updateErr error
	deleteErr error

	created []record.Record
	updated map[string]record.Record
	deleted []string
}

func (f *fakeStore) Create(_ context.Context, rec record.Record) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, rec)
	return f.createID, nil
}

func (f *fakeStore) UpdateByID(_ context.Context, id string, rec record.Record) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = map[string]record.Record{}
	}
	f.updated[id] = rec
	return nil
}

func (f *fakeStore) DeleteByID(_ context.Context, id string) (int, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return 1, nil
}

func str(s string) *string { return &s }

func setup(t *testing.T, store mutation.Store) (*session.Session, *snapshots.Store, *mutation.Coordinator) {
	t.Helper()
	sess := session.New()
	sess.Replace([]record.Record{
		{ID: "1", Name: "Ana", DateAssessed: "2024-01-01", NCNo: "N1", Result: "Failed"},
		{Name: "Ben", DateAssessed: "2024-02-01", NCNo: "N2", Result: "Passed"},
	})
	cache := snapshots.NewStore(filepath.Join(t.TempDir(), "snapshots.json"), nil)
	cache.Save("roster_1", sess.Records(), "roster.xlsx")
	return sess, cache, mutation.New(sess, store, cache, nil)
}

func TestEditConfirmedFailureLeavesRecordUntouched(t *testing.T) {
	store := &fakeStore{updateErr: errors.New("store down")}
	sess, cache, coord := setup(t, store)
	before := sess.Records()

	out, err := coord.Edit(context.Background(), mutation.ByID("1"), record.Update{Result: str("Passed"), Name: str("Ana Maria")})
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if out.Status != mutation.NotPersisted || out.Err == nil {
		t.Fatalf("expected not-persisted outcome, got %+v", out)
	}
	if diff := cmp.Diff(before, sess.Records()); diff != "" {
		t.Fatalf("working set changed after failed update (-before +after):\n%s", diff)
	}
	cached, _ := cache.LoadOne("roster_1")
	if cached[0].Name != "Ana" {
		t.Fatalf("cache changed after failed update: %+v", cached[0])
	}
}

func TestEditConfirmedSuccessUpdatesSessionAndCache(t *testing.T) {
	store := &fakeStore{}
	sess, cache, coord := setup(t, store)

	out, err := coord.Edit(context.Background(), mutation.ByID("1"), record.Update{Name: str("Ana Maria"), Result: str("Passed")})
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if out.Status != mutation.Persisted {
		t.Fatalf("expected persisted, got %+v", out)
	}
	if store.updated["1"].Name != "Ana Maria" {
		t.Fatalf("store not called with updated record: %+v", store.updated)
	}
	rec, _ := sess.At(sess.IndexOfID("1"))
	if rec.Name != "Ana Maria" || rec.Result != "Passed" {
		t.Fatalf("session not updated: %+v", rec)
	}
	cached, _ := cache.LoadOne("roster_1")
	if cached[0].Name != "Ana Maria" || cached[0].Result != "Passed" {
		t.Fatalf("cache not updated: %+v", cached[0])
	}
}

func TestEditCacheOnlyCreatesAndAttachesID(t *testing.T) {
	store := &fakeStore{createID: "77"}
	sess, cache, coord := setup(t, store)

	out, err := coord.Edit(context.Background(), mutation.ByPosition(1), record.Update{School: str("North")})
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if out.Status != mutation.Persisted || out.ID != "77" {
		t.Fatalf("expected persisted with id, got %+v", out)
	}
	if len(store.created) != 1 || store.created[0].School != "North" {
		t.Fatalf("create not called with edited record: %+v", store.created)
	}
	if sess.IndexOfID("77") < 0 {
		t.Fatal("session record did not receive the new id")
	}
	cached, _ := cache.LoadOne("roster_1")
	if cached[1].ID != "77" || cached[1].School != "North" {
		t.Fatalf("cache entry not updated: %+v", cached[1])
	}
}

func TestEditCacheOnlyDegradesToLocal(t *testing.T) {
	store := &fakeStore{createErr: errors.New("offline")}
	sess, cache, coord := setup(t, store)

	out, err := coord.Edit(context.Background(), mutation.ByPosition(1), record.Update{School: str("North")})
	if err != nil {
		t.Fatalf("Edit returned error: %v", err)
	}
	if out.Status != mutation.LocalOnly || out.Err == nil {
		t.Fatalf("expected local-only outcome, got %+v", out)
	}
	rec, _ := sess.At(1)
	if rec.School != "North" || rec.HasID() {
		t.Fatalf("expected local edit without id, got %+v", rec)
	}
	cached, _ := cache.LoadOne("roster_1")
	if cached[1].School != "North" {
		t.Fatalf("cache should hold the local edit: %+v", cached[1])
	}
}

func collidingSetup(t *testing.T, store mutation.Store) (*session.Session, *snapshots.Store, *mutation.Coordinator) {
	t.Helper()
	sess := session.New()
	sess.Replace([]record.Record{
		{Name: "Ben", DateAssessed: "2024-02-01", NCNo: "N2", School: "Old"},
		{Name: "Cy", DateAssessed: "2024-02-01", NCNo: "N2", School: "Old"},
	})
	cache := snapshots.NewStore(filepath.Join(t.TempDir(), "snapshots.json"), nil)
	cache.Save("roster_1", sess.Records(), "roster.xlsx")
	return sess, cache, mutation.New(sess, store, cache, nil)
}

func requireUniqueKeys(t *testing.T, records []record.Record) {
	t.Helper()
	seen := map[string]bool{}
	for _, rec := range records {
		if rec.HasID() {
			continue
		}
		if seen[rec.Key()] {
			t.Fatalf("fallback key %q appears more than once in %+v", rec.Key(), records)
		}
		seen[rec.Key()] = true
	}
}

func TestEditCacheOnlyCollidingKeyLocalOnlyCollapses(t *testing.T) {
	store := &fakeStore{createErr: errors.New("offline")}
	sess, _, coord := collidingSetup(t, store)

	out, err := coord.Edit(context.Background(), mutation.ByPosition(1), record.Update{Name: str("ben"), School: str("Edited")})
	if err != nil || out.Status != mutation.LocalOnly {
		t.Fatalf("expected local-only outcome, got %+v %v", out, err)
	}
	requireUniqueKeys(t, sess.Records())
	if sess.Len() != 1 {
		t.Fatalf("expected colliding records to collapse, got %+v", sess.Records())
	}
	if rec, _ := sess.At(0); rec.School != "Edited" {
		t.Fatalf("edit lost in merge: %+v", rec)
	}
}

func TestEditCacheOnlyCollidingKeyAttachesIDToEditedRecord(t *testing.T) {
	store := &fakeStore{createID: "77"}
	sess, cache, coord := collidingSetup(t, store)

	out, err := coord.Edit(context.Background(), mutation.ByPosition(1), record.Update{Name: str("ben"), School: str("Edited")})
	if err != nil || out.Status != mutation.Persisted {
		t.Fatalf("expected persisted outcome, got %+v %v", out, err)
	}
	if out.Record.School != "Edited" {
		t.Fatalf("outcome carries the wrong record: %+v", out.Record)
	}
	requireUniqueKeys(t, sess.Records())

	created, ok := sess.At(sess.IndexOfID("77"))
	if !ok || created.School != "Edited" || created.Name != "ben" {
		t.Fatalf("store id attached to the wrong record: %+v", sess.Records())
	}
	other, _ := sess.At(0)
	if other.HasID() || other.School != "Old" {
		t.Fatalf("untouched record changed: %+v", other)
	}

	cached, _ := cache.LoadOne("roster_1")
	want := []string{"", "77"}
	got := []string{cached[0].ID, cached[1].ID}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("cache ids mismatch (-want +got):\n%s", diff)
	}
}

func TestEditWithoutStoreIsLocalOnly(t *testing.T) {
	sess, _, _ := setup(t, nil)
	coord := mutation.New(sess, nil, nil, nil)

	out, err := coord.Edit(context.Background(), mutation.ByPosition(1), record.Update{Result: str("Failed")})
	if err != nil || out.Status != mutation.LocalOnly {
		t.Fatalf("expected local-only without a store, got %+v %v", out, err)
	}
	out, err = coord.Edit(context.Background(), mutation.ByID("1"), record.Update{Result: str("Passed")})
	if err != nil || out.Status != mutation.NotPersisted {
		t.Fatalf("expected not-persisted without a store, got %+v %v", out, err)
	}
}

func TestEditUnknownRef(t *testing.T) {
	_, _, coord := setup(t, &fakeStore{})
	if _, err := coord.Edit(context.Background(), mutation.ByID("404"), record.Update{}); !errors.Is(err, mutation.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if _, err := coord.Delete(context.Background(), mutation.ByPosition(9)); !errors.Is(err, mutation.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestDeleteConfirmed(t *testing.T) {
	store := &fakeStore{deleteErr: errors.New("boom")}
	sess, _, coord := setup(t, store)

	out, err := coord.Delete(context.Background(), mutation.ByID("1"))
	if err != nil || out.Status != mutation.NotPersisted {
		t.Fatalf("expected not-persisted, got %+v %v", out, err)
	}
	if sess.IndexOfID("1") < 0 {
		t.Fatal("record removed despite store failure")
	}

	store.deleteErr = nil
	out, err = coord.Delete(context.Background(), mutation.ByID("1"))
	if err != nil || out.Status != mutation.Persisted {
		t.Fatalf("expected persisted, got %+v %v", out, err)
	}
	if sess.IndexOfID("1") >= 0 || sess.Len() != 1 {
		t.Fatal("record should be removed after store confirmation")
	}
}

func TestDeleteCacheOnlyIsUnconditional(t *testing.T) {
	store := &fakeStore{deleteErr: errors.New("never called")}
	sess, _, coord := setup(t, store)

	out, err := coord.Delete(context.Background(), mutation.ByPosition(1))
	if err != nil || out.Status != mutation.LocalOnly {
		t.Fatalf("expected local-only delete, got %+v %v", out, err)
	}
	if sess.Len() != 1 || len(store.deleted) != 0 {
		t.Fatal("cache-only delete should not touch the store")
	}
}

func TestHide(t *testing.T) {
	sess, _, coord := setup(t, &fakeStore{})
	if err := coord.Hide(0); err != nil {
		t.Fatalf("Hide failed: %v", err)
	}
	if sess.Len() != 2 || sess.Views().Summary.Candidates != 1 {
		t.Fatal("hide should only affect views")
	}
}

func TestStatusString(t *testing.T) {
	if mutation.LocalOnly.String() != "local-only" || mutation.Persisted.String() != "persisted" {
		t.Fatal("unexpected status labels")
	}
}
