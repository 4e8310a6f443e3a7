package record

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"

	// serialEpochOffset is the number of days between the spreadsheet
	// serial epoch (1899-12-30) and the Unix epoch.
	serialEpochOffset = 25569

	// UnknownYear buckets records whose assessment date has no usable year.
	UnknownYear = "Unknown"
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Monday, January 2, 2006",
	time.RFC1123,
}

// NormalizeDate converts an assessment date cell to YYYY-MM-DD. Numbers are
// treated as spreadsheet day serials. Values that cannot be interpreted are
// returned in their original string form.
func NormalizeDate(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		return v.UTC().Format(dateLayout)
	case string:
		return normalizeDateString(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return fromSerial(f, v.String())
		}
		return normalizeDateString(v.String())
	case float64:
		return fromSerial(v, Stringify(v))
	case float32:
		return fromSerial(float64(v), Stringify(v))
	case int:
		return fromSerial(float64(v), Stringify(v))
	case int64:
		return fromSerial(float64(v), Stringify(v))
	default:
		return normalizeDateString(Stringify(v))
	}
}

func normalizeDateString(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if isoDate.MatchString(trimmed) {
		return trimmed
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return fromSerial(f, raw)
	}
	if t, ok := parseDate(trimmed); ok {
		return t.UTC().Format(dateLayout)
	}
	return raw
}

func fromSerial(serial float64, original string) string {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || math.Abs(serial) > 3e6 {
		return original
	}
	days := math.Floor(serial - serialEpochOffset)
	return time.Unix(int64(days)*86400, 0).UTC().Format(dateLayout)
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TrendYear extracts the calendar year used by the year-over-year trend: the
// leading 4-digit token, else the year of a re-parsed date, else UnknownYear.
func TrendYear(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return UnknownYear
	}
	head, _, _ := strings.Cut(date, "-")
	if len(head) == 4 && isDigits(head) {
		return head
	}
	if t, ok := parseDate(date); ok {
		return strconv.Itoa(t.UTC().Year())
	}
	return UnknownYear
}

// ListingYear extracts the year group used by the certificate listing: the
// text before the first '-', or UnknownYear when the date is empty.
func ListingYear(date string) string {
	head, _, _ := strings.Cut(date, "-")
	if head == "" {
		return UnknownYear
	}
	return head
}

// IsNumericYear reports whether a year bucket is a plain number.
func IsNumericYear(year string) bool {
	return year != "" && isDigits(year)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
