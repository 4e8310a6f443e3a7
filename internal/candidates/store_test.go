package candidates_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ncboard/internal/candidates"
	"ncboard/internal/record"
	"ncboard/internal/testsupport"
)

func TestOpenAppliesMigrationsOnce(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "db", "candidates.db")
	first, err := candidates.OpenDSN("sqlite", dsn, time.Second)
	if err != nil {
		t.Fatalf("OpenDSN failed: %v", err)
	}
	if _, err := first.Create(context.Background(), record.Record{Name: "Ana"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := candidates.OpenDSN("sqlite", dsn, time.Second)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })
	list, err := second.List(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("List after reopen = %v, %v", list, err)
	}
}

func TestParseDialect(t *testing.T) {
	cases := map[string]candidates.Dialect{
		"":           candidates.SQLite,
		"SQLite":     candidates.SQLite,
		"postgresql": candidates.Postgres,
		"pgx":        candidates.Postgres,
		"mysql":      candidates.MySQL,
	}
	for in, want := range cases {
		got, err := candidates.ParseDialect(in)
		if err != nil || got != want {
			t.Fatalf("ParseDialect(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := candidates.ParseDialect("oracle"); !errors.Is(err, candidates.ErrUnknownDialect) {
		t.Fatalf("expected ErrUnknownDialect, got %v", err)
	}
}

func TestCreateGetUpdateDelete(t *testing.T) {
	store := testsupport.MustOpenCandidates(t, testsupport.NewConfig(t))
	ctx := context.Background()

	id, err := store.Create(ctx, record.Record{Name: " Ana ", DateAssessed: "45000", Result: "Failed", SourceFile: "a.xlsx"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Ana" || got.DateAssessed != "2023-03-15" || got.SourceFile != "a.xlsx" || !got.HasID() {
		t.Fatalf("unexpected stored record %+v", got)
	}

	n, err := store.Update(ctx, id, map[string]string{"result": "Passed", "school": "North"})
	if err != nil || n != 1 {
		t.Fatalf("Update = %d, %v", n, err)
	}
	got, _ = store.Get(ctx, id)
	if got.Result != "Passed" || got.School != "North" || got.Name != "Ana" {
		t.Fatalf("partial update not applied: %+v", got)
	}
	if _, err := store.Update(ctx, id, map[string]string{"shoe": "9"}); err == nil {
		t.Fatal("expected unknown field error")
	}

	n, err = store.Delete(ctx, id)
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, candidates.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	n, err = store.Delete(ctx, id)
	if err != nil || n != 0 {
		t.Fatalf("second Delete = %d, %v", n, err)
	}
}

func TestImportAndDeleteBySource(t *testing.T) {
	store := testsupport.MustOpenCandidates(t, testsupport.NewConfig(t))
	ctx := context.Background()

	n, err := store.Import(ctx, testsupport.Roster(), "roster.xlsx")
	if err != nil || n != len(testsupport.Roster()) {
		t.Fatalf("Import = %d, %v", n, err)
	}
	if _, err := store.Create(ctx, record.Record{Name: "Zed", SourceFile: "other.xlsx"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sources, err := store.SourceFiles(ctx)
	if err != nil {
		t.Fatalf("SourceFiles failed: %v", err)
	}
	if diff := cmp.Diff([]string{"other.xlsx", "roster.xlsx"}, sources); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}

	deleted, remaining, err := store.DeleteBySource(ctx, "roster.xlsx")
	if err != nil {
		t.Fatalf("DeleteBySource failed: %v", err)
	}
	if deleted != len(testsupport.Roster()) {
		t.Fatalf("deleted %d rows", deleted)
	}
	if diff := cmp.Diff([]string{"other.xlsx"}, remaining); diff != "" {
		t.Fatalf("remaining mismatch (-want +got):\n%s", diff)
	}
	list, _ := store.List(ctx)
	if len(list) != 1 || list[0].Name != "Zed" {
		t.Fatalf("unexpected remaining rows %+v", list)
	}
}

func TestParseID(t *testing.T) {
	if id, err := candidates.ParseID(" 12 "); err != nil || id != 12 {
		t.Fatalf("ParseID = %d, %v", id, err)
	}
	for _, raw := range []string{"", "abc", "-1", "0"} {
		if _, err := candidates.ParseID(raw); !errors.Is(err, candidates.ErrNotFound) {
			t.Fatalf("ParseID(%q) expected ErrNotFound, got %v", raw, err)
		}
	}
}
