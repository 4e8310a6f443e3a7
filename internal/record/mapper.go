package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

type column struct {
	field   string
	aliases []string
}

// columns lists accepted spreadsheet headers per field. Order matters: the
// first alias present in a row wins.
var columns = []column{
	{"name", []string{"name", "full name", "student name"}},
	{"gender", []string{"gender", "sex"}},
	{"qualification", []string{"qualification", "course", "trade"}},
	{"dateAssessed", []string{"date assessed", "date", "date_assessed"}},
	{"assessmentCenter", []string{"assessment center", "center", "assessment_center"}},
	{"assessmentStatus", []string{"assessment status", "assessment_status", "assessed"}},
	{"result", []string{"result", "status"}},
	{"ncNo", []string{"nc ii no.", "nc no.", "nc number", "nc ii no", "nc_no"}},
	{"school", []string{"school", "institution", "school name"}},
}

// TemplateHeaders are the column titles written to a blank import template.
var TemplateHeaders = []string{
	"Name", "Gender", "Qualification", "Date Assessed", "Assessment Center",
	"Assessment Status", "Result", "NC No.", "School",
}

func foldHeader(key string) string {
	return cases.Fold().String(strings.TrimSpace(key))
}

// MapRow converts a loosely typed spreadsheet row into a Record. Header
// matching is case-insensitive and ignores surrounding whitespace.
func MapRow(raw map[string]any) Record {
	folded := make(map[string]any, len(raw))
	for key, value := range raw {
		k := foldHeader(key)
		if _, exists := folded[k]; !exists {
			folded[k] = value
		}
	}

	var rec Record
	for _, col := range columns {
		value, ok := lookup(folded, col.aliases)
		if !ok {
			continue
		}
		if col.field == "dateAssessed" {
			rec.DateAssessed = NormalizeDate(value)
			continue
		}
		*fieldPtr(&rec, col.field) = strings.TrimSpace(Stringify(value))
	}
	return rec
}

func lookup(row map[string]any, aliases []string) (any, bool) {
	for _, alias := range aliases {
		if value, ok := row[alias]; ok {
			return value, true
		}
	}
	return nil, false
}

// MapServerRow converts a candidate store row, accepting snake_case and
// camelCase field names interchangeably.
func MapServerRow(raw map[string]any) Record {
	pick := func(keys ...string) string {
		for _, key := range keys {
			if value, ok := raw[key]; ok && value != nil {
				return strings.TrimSpace(Stringify(value))
			}
		}
		return ""
	}
	return Record{
		ID:               pick("id"),
		Name:             pick("name"),
		Gender:           pick("gender"),
		Qualification:    pick("qualification"),
		DateAssessed:     pick("date_assessed", "dateAssessed"),
		AssessmentCenter: pick("assessment_center", "assessmentCenter"),
		AssessmentStatus: pick("assessment_status", "assessmentStatus"),
		Result:           pick("result"),
		NCNo:             pick("nc_no", "ncNo"),
		School:           pick("school"),
		SourceFile:       pick("source_file", "sourceFile"),
	}
}

// Stringify renders a loosely typed cell value as text. Whole numbers lose
// their trailing ".0".
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(dateLayout)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
