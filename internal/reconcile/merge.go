// Package reconcile merges candidate records from the store, the snapshot
// cache and fresh uploads into one de-duplicated working set.
package reconcile

import (
	"strings"

	"ncboard/internal/record"
)

// Stats counts what a merge did.
type Stats struct {
	Appended int
	Merged   int
}

// MergeInto folds incoming into working and returns the combined set.
//
// Records match by id when they have one, otherwise by fallback key among
// the other id-less records. A match overlays the incoming record's non-empty fields onto the entry
// already in the result. Output order is order of first appearance, with
// working-set records first. Neither input slice is modified.
func MergeInto(working, incoming []record.Record) []record.Record {
	out, _ := MergeWithStats(working, incoming)
	return out
}

// MergeWithStats is MergeInto that also reports how many records were
// appended versus merged.
func MergeWithStats(working, incoming []record.Record) ([]record.Record, Stats) {
	var stats Stats
	out := make([]record.Record, 0, len(working)+len(incoming))
	byID := make(map[string]int, len(working)+len(incoming))
	byKey := make(map[string]int, len(working)+len(incoming))

	// Ids and fallback keys are separate namespaces: an id-less record never
	// merges into a store-confirmed one.
	add := func(rec record.Record) {
		index, lookup := byKey, rec.Key()
		if id := strings.TrimSpace(rec.ID); id != "" {
			index, lookup = byID, id
		}
		if idx, found := index[lookup]; found {
			out[idx].MergeFrom(rec)
			stats.Merged++
			return
		}
		out = append(out, rec)
		index[lookup] = len(out) - 1
		stats.Appended++
	}

	for _, rec := range working {
		add(rec)
	}
	for _, rec := range incoming {
		add(rec)
	}
	return out, stats
}

// Dedupe collapses duplicates within a single sequence.
func Dedupe(records []record.Record) []record.Record {
	return MergeInto(nil, records)
}
