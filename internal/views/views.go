// Package views derives dashboard aggregates and listings from the active
// rows of a session. Every function is pure: inputs are never modified and
// results are recomputed from scratch on each call.
package views

import (
	"sort"
	"strconv"
	"strings"

	"ncboard/internal/record"
)

// OtherQualification labels records with no qualification.
const OtherQualification = "Other"

// Filter is the user's current selection. Empty or "all" means no
// constraint. Search applies to the certificate listing only.
type Filter struct {
	Year          string `json:"year,omitempty"`
	Qualification string `json:"qualification,omitempty"`
	Search        string `json:"search,omitempty"`
}

func selected(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "all") {
		return "", false
	}
	return value, true
}

// Summary holds the headline counts.
type Summary struct {
	Candidates int `json:"candidates"`
	Assessed   int `json:"assessed"`
	Certified  int `json:"certified"`
}

// Count is one bucket of a chart series.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Trend is the year-over-year series. All slices share the same length.
type Trend struct {
	Years      []string `json:"years"`
	Candidates []int    `json:"candidates"`
	Assessed   []int    `json:"assessed"`
	Certified  []int    `json:"certified"`
}

// YearGroup is one year inside a qualification group of the listing.
type YearGroup struct {
	Year    string          `json:"year"`
	Records []record.Record `json:"records"`
}

// QualificationGroup is one qualification of the certificate listing.
type QualificationGroup struct {
	Qualification string      `json:"qualification"`
	Years         []YearGroup `json:"years"`
}

// Options lists the values offered by the year and qualification filters.
type Options struct {
	Years          []string `json:"years"`
	Qualifications []string `json:"qualifications"`
}

// Dashboard bundles every view for one recompute.
type Dashboard struct {
	Summary         Summary              `json:"summary"`
	ByQualification []Count              `json:"certified_by_qualification"`
	ByGender        []Count              `json:"gender"`
	Trend           Trend                `json:"trend"`
	Listing         []QualificationGroup `json:"listing"`
	Options         Options              `json:"options"`
}

// Build computes the full dashboard for rows under filter.
func Build(rows []record.Record, filter Filter) Dashboard {
	overview := ApplyOverview(rows, filter)
	return Dashboard{
		Summary:         Summarize(overview),
		ByQualification: CertifiedByQualification(overview),
		ByGender:        GenderSeries(overview),
		Trend:           YearTrend(TrendRows(rows, filter)),
		Listing:         Listing(rows, filter),
		Options:         FilterOptions(rows),
	}
}

// ApplyOverview keeps rows whose date starts with the selected year and whose
// qualification equals the selected one.
func ApplyOverview(rows []record.Record, filter Filter) []record.Record {
	year, byYear := selected(filter.Year)
	qual, byQual := selected(filter.Qualification)
	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		if byYear && !strings.HasPrefix(r.DateAssessed, year) {
			continue
		}
		if byQual && r.Qualification != qual {
			continue
		}
		out = append(out, r)
	}
	return out
}

// TrendRows applies only the qualification selection; the trend always spans
// every year.
func TrendRows(rows []record.Record, filter Filter) []record.Record {
	return ApplyOverview(rows, Filter{Qualification: filter.Qualification})
}

// Summarize counts candidates, assessed and certified rows.
func Summarize(rows []record.Record) Summary {
	var s Summary
	for _, r := range rows {
		s.add(r)
	}
	return s
}

func (s *Summary) add(r record.Record) {
	s.Candidates++
	if record.IsAssessed(r.AssessmentStatus) {
		s.Assessed++
	}
	if record.IsCertified(r.Result) {
		s.Certified++
	}
}

// GroupedCounts counts rows per key. Rows whose key is empty are skipped.
// Keys are returned in ascending order.
func GroupedCounts(rows []record.Record, keyFn func(record.Record) string) []Count {
	counts := map[string]int{}
	for _, r := range rows {
		key := keyFn(r)
		if key == "" {
			continue
		}
		counts[key]++
	}
	out := make([]Count, 0, len(counts))
	for key, n := range counts {
		out = append(out, Count{Key: key, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// CertifiedByQualification counts certified rows per qualification.
func CertifiedByQualification(rows []record.Record) []Count {
	return GroupedCounts(rows, func(r record.Record) string {
		if !record.IsCertified(r.Result) {
			return ""
		}
		return qualificationLabel(r.Qualification)
	})
}

// GenderSeries always returns exactly Male then Female. Other gender values
// are left out of the series.
func GenderSeries(rows []record.Record) []Count {
	out := []Count{{Key: "Male"}, {Key: "Female"}}
	for _, r := range rows {
		switch strings.ToLower(strings.TrimSpace(r.Gender)) {
		case "male":
			out[0].Count++
		case "female":
			out[1].Count++
		}
	}
	return out
}

// YearTrend groups rows by trend year: numeric years ascending and
// record.UnknownYear last.
func YearTrend(rows []record.Record) Trend {
	buckets := map[string]*Summary{}
	for _, r := range rows {
		year := record.TrendYear(r.DateAssessed)
		s, ok := buckets[year]
		if !ok {
			s = &Summary{}
			buckets[year] = s
		}
		s.add(r)
	}

	years := make([]string, 0, len(buckets))
	for year := range buckets {
		years = append(years, year)
	}
	sort.Slice(years, func(i, j int) bool { return yearLess(years[i], years[j]) })

	t := Trend{
		Years:      years,
		Candidates: make([]int, len(years)),
		Assessed:   make([]int, len(years)),
		Certified:  make([]int, len(years)),
	}
	for i, year := range years {
		s := buckets[year]
		t.Candidates[i] = s.Candidates
		t.Assessed[i] = s.Assessed
		t.Certified[i] = s.Certified
	}
	return t
}

// yearLess orders numeric years ascending and everything else after them.
func yearLess(a, b string) bool {
	an, bn := record.IsNumericYear(a), record.IsNumericYear(b)
	switch {
	case an && bn:
		ai, _ := strconv.Atoi(a)
		bi, _ := strconv.Atoi(b)
		return ai < bi
	case an != bn:
		return an
	default:
		return a < b
	}
}

// Listing builds the certificate listing: certified rows matching filter,
// grouped by qualification (ascending) and year (descending, non-numeric
// years last), each year sorted by name.
func Listing(rows []record.Record, filter Filter) []QualificationGroup {
	year, byYear := selected(filter.Year)
	qual, byQual := selected(filter.Qualification)
	term := strings.ToLower(strings.TrimSpace(filter.Search))

	groups := map[string]map[string][]record.Record{}
	for _, r := range rows {
		if !record.IsCertified(r.Result) {
			continue
		}
		if byYear && !strings.HasPrefix(r.DateAssessed, year) {
			continue
		}
		if byQual && r.Qualification != qual {
			continue
		}
		if term != "" && !matchesSearch(r, term) {
			continue
		}
		label := qualificationLabel(r.Qualification)
		if groups[label] == nil {
			groups[label] = map[string][]record.Record{}
		}
		y := record.ListingYear(r.DateAssessed)
		groups[label][y] = append(groups[label][y], r)
	}

	quals := make([]string, 0, len(groups))
	for q := range groups {
		quals = append(quals, q)
	}
	sort.Strings(quals)

	out := make([]QualificationGroup, 0, len(quals))
	for _, q := range quals {
		perYear := groups[q]
		years := make([]string, 0, len(perYear))
		for y := range perYear {
			years = append(years, y)
		}
		sort.Slice(years, func(i, j int) bool { return yearGreater(years[i], years[j]) })

		group := QualificationGroup{Qualification: q, Years: make([]YearGroup, 0, len(years))}
		for _, y := range years {
			recs := perYear[y]
			sort.SliceStable(recs, func(i, j int) bool { return recs[i].Name < recs[j].Name })
			group.Years = append(group.Years, YearGroup{Year: y, Records: recs})
		}
		out = append(out, group)
	}
	return out
}

// yearGreater orders numeric years descending and everything else after them.
func yearGreater(a, b string) bool {
	an, bn := record.IsNumericYear(a), record.IsNumericYear(b)
	switch {
	case an && bn:
		ai, _ := strconv.Atoi(a)
		bi, _ := strconv.Atoi(b)
		return ai > bi
	case an != bn:
		return an
	default:
		return a > b
	}
}

func matchesSearch(r record.Record, term string) bool {
	for _, field := range []string{r.Name, r.Gender, r.Qualification, r.AssessmentCenter} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return strings.Contains(r.DateAssessed, term)
}

func qualificationLabel(q string) string {
	if strings.TrimSpace(q) == "" {
		return OtherQualification
	}
	return q
}

// FilterOptions lists distinct year prefixes and qualifications, sorted.
func FilterOptions(rows []record.Record) Options {
	years := map[string]struct{}{}
	quals := map[string]struct{}{}
	for _, r := range rows {
		if y, _, _ := strings.Cut(r.DateAssessed, "-"); y != "" {
			years[y] = struct{}{}
		}
		quals[qualificationLabel(r.Qualification)] = struct{}{}
	}
	return Options{Years: sortedKeys(years), Qualifications: sortedKeys(quals)}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
