package sheet_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"ncboard/internal/record"
	"ncboard/internal/sheet"
)

func writeWorkbook(t *testing.T, path string, grid [][]any) {
	t.Helper()
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()
	name := file.GetSheetName(0)
	for r, cells := range grid {
		for c, value := range cells {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := file.SetCellValue(name, cell, value); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	if err := file.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

func TestReadXLSXKeepsSerialDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.xlsx")
	writeWorkbook(t, path, [][]any{
		{"Name", "Date Assessed", "Result"},
		{"Ana", 45000, "Passed"},
		{},
		{"Ben", "2024-02-01", "Failed"},
	})

	rows, err := sheet.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(rows), rows)
	}
	first := record.MapRow(rows[0])
	if first.Name != "Ana" || first.DateAssessed != "2023-03-15" || first.Result != "Passed" {
		t.Fatalf("unexpected first record %+v", first)
	}
	if got := record.MapRow(rows[1]).DateAssessed; got != "2024-02-01" {
		t.Fatalf("unexpected second date %q", got)
	}
}

func TestReadCSV(t *testing.T) {
	data := "Name,Gender,NC No.\nAna,F,0012\n\nBen,M\n"
	rows, err := sheet.Read(strings.NewReader(data), "upload.CSV")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	want := []sheet.Row{
		{"Name": "Ana", "Gender": "F", "NC No.": "0012"},
		{"Name": "Ben", "Gender": "M", "NC No.": ""},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestReadErrors(t *testing.T) {
	if _, err := sheet.Read(strings.NewReader("x"), "notes.txt"); !errors.Is(err, sheet.ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
	if _, err := sheet.Read(strings.NewReader("\n\n"), "empty.csv"); !errors.Is(err, sheet.ErrEmptySheet) {
		t.Fatalf("expected ErrEmptySheet, got %v", err)
	}
	if _, err := sheet.Read(strings.NewReader("not a zip"), "broken.xlsx"); err == nil {
		t.Fatal("expected error for corrupt workbook")
	}
	if _, err := sheet.ReadFile(filepath.Join(t.TempDir(), "missing.xlsx")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "template.xlsx")
	if err := sheet.WriteTemplate(path); err != nil {
		t.Fatalf("WriteTemplate failed: %v", err)
	}
	file, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open template: %v", err)
	}
	defer func() { _ = file.Close() }()
	rows, err := file.GetRows(file.GetSheetName(0))
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header row only, got %d rows", len(rows))
	}
	if diff := cmp.Diff(record.TemplateHeaders, rows[0]); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}
}
