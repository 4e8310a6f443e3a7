package reconcile_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"ncboard/internal/reconcile"
	"ncboard/internal/record"
)

func TestMergeIntoIsIdempotent(t *testing.T) {
	input := []record.Record{
		{ID: "1", Name: "Ana"},
		{Name: "Ben", DateAssessed: "2024-01-01", NCNo: "7"},
		{ID: "2", Name: "Cy"},
		{Name: "ben ", DateAssessed: "2024-01-01", NCNo: "7", School: "North"},
	}

	once := reconcile.MergeInto(nil, input)
	twice := reconcile.MergeInto(once, input)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("re-merging duplicated records (-once +twice):\n%s", diff)
	}
	if len(once) != 3 {
		t.Fatalf("expected 3 records, got %d", len(once))
	}
}

func TestMergeIntoIdentityUniqueness(t *testing.T) {
	working := []record.Record{
		{ID: "1", Name: "Ana"},
		{Name: "Ben", DateAssessed: "2024-01-01"},
	}
	incoming := []record.Record{
		{ID: "1", Result: "Passed"},
		{ID: "3", Name: "Ben", DateAssessed: "2024-01-01"},
		{Name: "BEN", DateAssessed: "2024-01-01", School: "South"},
		{ID: "1", School: "North"},
	}

	out := reconcile.MergeInto(working, incoming)

	ids := map[string]bool{}
	keys := map[string]bool{}
	for _, rec := range out {
		if rec.HasID() {
			if ids[rec.ID] {
				t.Fatalf("duplicate id %q in %+v", rec.ID, out)
			}
			ids[rec.ID] = true
			continue
		}
		if keys[rec.Key()] {
			t.Fatalf("duplicate key %q in %+v", rec.Key(), out)
		}
		keys[rec.Key()] = true
	}

	want := []record.Record{
		{ID: "1", Name: "Ana", Result: "Passed", School: "North"},
		{Name: "BEN", DateAssessed: "2024-01-01", School: "South"},
		{ID: "3", Name: "Ben", DateAssessed: "2024-01-01"},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("merge result mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeIntoFieldPrecedence(t *testing.T) {
	out := reconcile.Dedupe([]record.Record{
		{ID: "1", Name: "A"},
		{ID: "1", School: "S"},
	})
	want := []record.Record{{ID: "1", Name: "A", School: "S"}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("field precedence mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeIntoDoesNotMutateInputs(t *testing.T) {
	working := []record.Record{{ID: "1", Name: "A"}}
	incoming := []record.Record{{ID: "1", Name: "B"}}

	out := reconcile.MergeInto(working, incoming)

	if working[0].Name != "A" {
		t.Fatalf("working set mutated: %+v", working[0])
	}
	if out[0].Name != "B" {
		t.Fatalf("expected later value to win, got %q", out[0].Name)
	}
}

func TestMergeWithStatsCountsAndEmptyKeyCollapse(t *testing.T) {
	out, stats := reconcile.MergeWithStats(nil, []record.Record{
		{Gender: "Male"},
		{Gender: "Female", School: "X"},
		{ID: "5"},
	})
	if len(out) != 2 {
		t.Fatalf("records without name/date/nc should collapse, got %+v", out)
	}
	if out[0].Gender != "Female" || out[0].School != "X" {
		t.Fatalf("unexpected collapsed record %+v", out[0])
	}
	if stats.Appended != 2 || stats.Merged != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
