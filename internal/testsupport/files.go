package testsupport

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"ncboard/internal/record"
)

// WriteRosterCSV writes records as a spreadsheet-style CSV upload using the
// template headers and returns its path.
func WriteRosterCSV(t testing.TB, dir, name string, records []record.Record) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rows := [][]string{record.TemplateHeaders}
	for _, r := range records {
		rows = append(rows, []string{
			r.Name, r.Gender, r.Qualification, r.DateAssessed, r.AssessmentCenter,
			r.AssessmentStatus, r.Result, r.NCNo, r.School,
		})
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
