package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"ncboard/internal/record"
)

var (
	// ErrUnsupportedFile is returned for extensions the reader cannot parse.
	ErrUnsupportedFile = errors.New("unsupported spreadsheet type")
	// ErrEmptySheet is returned when the first worksheet has no header row.
	ErrEmptySheet = errors.New("worksheet is empty")
)

// maxXLSRows bounds legacy workbook reads.
const maxXLSRows = 100000

// Row is one data row keyed by its header cell text.
type Row = map[string]any

// ReadFile parses the spreadsheet at path.
func ReadFile(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}
	return Read(bytes.NewReader(data), filepath.Base(path))
}

// Read parses a spreadsheet from r. filename selects the format by extension.
func Read(r io.ReadSeeker, filename string) ([]Row, error) {
	var (
		grid [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx", ".xlsm":
		grid, err = readXLSX(r)
	case ".xls":
		grid, err = readXLS(r)
	case ".csv":
		grid, err = readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return toRows(grid)
}

func readXLSX(r io.Reader) ([][]string, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	name := file.GetSheetName(0)
	if name == "" {
		return nil, ErrEmptySheet
	}
	// Raw values keep date cells as day serials.
	return file.GetRows(name, excelize.Options{RawCellValue: true})
}

func readXLS(r io.ReadSeeker) ([][]string, error) {
	workbook, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook.NumSheets() == 0 {
		return nil, ErrEmptySheet
	}
	ws := workbook.GetSheet(0)
	if ws == nil {
		return nil, ErrEmptySheet
	}
	limit := int(ws.MaxRow)
	if limit > maxXLSRows {
		limit = maxXLSRows
	}
	grid := make([][]string, 0, limit+1)
	for i := 0; i <= limit; i++ {
		row := ws.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.ReadAll()
}

// toRows keys each data row by the header row. Blank rows are skipped and
// cells under an empty header are dropped.
func toRows(grid [][]string) ([]Row, error) {
	start := -1
	for i, cells := range grid {
		if !blank(cells) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrEmptySheet
	}
	header := make([]string, len(grid[start]))
	for i, cell := range grid[start] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
	}

	rows := make([]Row, 0, len(grid)-start-1)
	for _, cells := range grid[start+1:] {
		if blank(cells) {
			continue
		}
		row := make(Row, len(header))
		for i, title := range header {
			if title == "" {
				continue
			}
			if _, dup := row[title]; dup {
				continue
			}
			value := ""
			if i < len(cells) {
				value = strings.TrimSpace(cells[i])
			}
			row[title] = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// WriteTemplate writes an empty workbook carrying only the import headers.
func WriteTemplate(path string) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	for i, title := range record.TemplateHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheetName, cell, title); err != nil {
			return fmt.Errorf("write template header: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create template directory: %w", err)
	}
	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}
