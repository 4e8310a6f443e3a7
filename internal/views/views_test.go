package views_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"ncboard/internal/record"
	"ncboard/internal/views"
)

func TestSummarize(t *testing.T) {
	rows := []record.Record{
		{AssessmentStatus: "A", Result: "Passed"},
		{AssessmentStatus: " a ", Result: "failed"},
		{AssessmentStatus: "NA", Result: "qualified"},
		{},
	}
	want := views.Summary{Candidates: 4, Assessed: 2, Certified: 2}
	if got := views.Summarize(rows); got != want {
		t.Fatalf("Summarize = %+v, want %+v", got, want)
	}
}

func TestYearTrendOrdersUnknownLast(t *testing.T) {
	rows := []record.Record{
		{DateAssessed: "2024-01-01", Result: "Passed"},
		{DateAssessed: "2023-01-01", AssessmentStatus: "A"},
		{DateAssessed: "garbage"},
		{DateAssessed: "2023-06-01", Result: "Passed"},
	}
	got := views.YearTrend(rows)
	want := views.Trend{
		Years:      []string{"2023", "2024", "Unknown"},
		Candidates: []int{2, 1, 1},
		Assessed:   []int{1, 0, 0},
		Certified:  []int{1, 1, 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("YearTrend mismatch (-want +got):\n%s", diff)
	}
}

func TestYearTrendSortsNumerically(t *testing.T) {
	rows := []record.Record{{DateAssessed: "2010-01-01"}, {DateAssessed: "999-01-01"}}
	got := views.YearTrend(rows).Years
	if diff := cmp.Diff([]string{"2010", "Unknown"}, got); diff != "" {
		t.Fatalf("years mismatch (-want +got):\n%s", diff)
	}
}

func TestListingGroupsByQualificationAndYear(t *testing.T) {
	r1 := record.Record{Name: "r1", Qualification: "Welding", DateAssessed: "2023-02-01", Result: "Passed"}
	r2 := record.Record{Name: "r2", Qualification: "Welding", DateAssessed: "2024-03-01", Result: "Passed"}
	r3 := record.Record{Name: "r3", Qualification: "Plumbing", DateAssessed: "2023-04-01", Result: "Passed"}
	failed := record.Record{Name: "r4", Qualification: "Welding", DateAssessed: "2023-04-01", Result: "Failed"}

	got := views.Listing([]record.Record{r1, r2, r3, failed}, views.Filter{})
	want := []views.QualificationGroup{
		{Qualification: "Plumbing", Years: []views.YearGroup{{Year: "2023", Records: []record.Record{r3}}}},
		{Qualification: "Welding", Years: []views.YearGroup{
			{Year: "2024", Records: []record.Record{r2}},
			{Year: "2023", Records: []record.Record{r1}},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Listing mismatch (-want +got):\n%s", diff)
	}
}

func TestListingFiltersAndSorts(t *testing.T) {
	rows := []record.Record{
		{Name: "Zed", Qualification: "", DateAssessed: "2023-01-01", Result: "Passed", AssessmentCenter: "North Center"},
		{Name: "Amy", Qualification: "", DateAssessed: "2023-05-01", Result: "Passed", AssessmentCenter: "North Center"},
		{Name: "Bob", Qualification: "", DateAssessed: "", Result: "Passed", AssessmentCenter: "North Center"},
		{Name: "Cal", Qualification: "Cooking", DateAssessed: "2022-01-01", Result: "Passed", AssessmentCenter: "South"},
	}

	got := views.Listing(rows, views.Filter{Search: "north"})
	if len(got) != 1 || got[0].Qualification != "Other" {
		t.Fatalf("expected only the Other group, got %+v", got)
	}
	years := got[0].Years
	if len(years) != 2 || years[0].Year != "2023" || years[1].Year != "Unknown" {
		t.Fatalf("unexpected year groups %+v", years)
	}
	if years[0].Records[0].Name != "Amy" || years[0].Records[1].Name != "Zed" {
		t.Fatalf("expected name order, got %+v", years[0].Records)
	}

	got = views.Listing(rows, views.Filter{Year: "2022", Qualification: "Cooking"})
	if len(got) != 1 || got[0].Years[0].Records[0].Name != "Cal" {
		t.Fatalf("unexpected filtered listing %+v", got)
	}

	got = views.Listing(rows, views.Filter{Search: "2023-05"})
	if len(got) != 1 || got[0].Years[0].Records[0].Name != "Amy" {
		t.Fatalf("date search should match, got %+v", got)
	}
}

func TestGenderSeriesFixedBuckets(t *testing.T) {
	rows := []record.Record{{Gender: "MALE"}, {Gender: "female"}, {Gender: "Female "}, {Gender: "M"}, {Gender: ""}}
	want := []views.Count{{Key: "Male", Count: 1}, {Key: "Female", Count: 2}}
	if diff := cmp.Diff(want, views.GenderSeries(rows)); diff != "" {
		t.Fatalf("gender series mismatch (-want +got):\n%s", diff)
	}
	if got := views.Summarize(rows).Candidates; got != 5 {
		t.Fatalf("unlisted genders still count as candidates, got %d", got)
	}
}

func TestCertifiedByQualification(t *testing.T) {
	rows := []record.Record{
		{Qualification: "Welding", Result: "Passed"},
		{Qualification: "", Result: "Certified"},
		{Qualification: "Baking", Result: "Passed"},
		{Qualification: "Welding", Result: "Failed"},
		{Qualification: "Welding", Result: "pass"},
	}
	want := []views.Count{{Key: "Baking", Count: 1}, {Key: "Other", Count: 1}, {Key: "Welding", Count: 2}}
	if diff := cmp.Diff(want, views.CertifiedByQualification(rows)); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestTrendIgnoresYearSelection(t *testing.T) {
	rows := []record.Record{
		{Qualification: "Welding", DateAssessed: "2023-01-01"},
		{Qualification: "Welding", DateAssessed: "2024-01-01"},
		{Qualification: "Baking", DateAssessed: "2024-01-01"},
	}
	filter := views.Filter{Year: "2024", Qualification: "Welding"}

	dash := views.Build(rows, filter)
	if dash.Summary.Candidates != 1 {
		t.Fatalf("overview should apply both selections, got %+v", dash.Summary)
	}
	if diff := cmp.Diff([]string{"2023", "2024"}, dash.Trend.Years); diff != "" {
		t.Fatalf("trend should span all years of the qualification (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 1}, dash.Trend.Candidates); diff != "" {
		t.Fatalf("trend counts mismatch (-want +got):\n%s", diff)
	}
}

func TestAllSelectionMeansUnfiltered(t *testing.T) {
	rows := []record.Record{{DateAssessed: "2023-01-01"}, {DateAssessed: "2024-01-01"}}
	if got := views.ApplyOverview(rows, views.Filter{Year: "all", Qualification: "ALL"}); len(got) != 2 {
		t.Fatalf("expected all rows, got %d", len(got))
	}
}

func TestFilterOptions(t *testing.T) {
	rows := []record.Record{
		{DateAssessed: "2024-01-01", Qualification: "Welding"},
		{DateAssessed: "2023-01-01", Qualification: ""},
		{DateAssessed: "", Qualification: "Baking"},
		{DateAssessed: "2024-05-05", Qualification: "Welding"},
	}
	want := views.Options{
		Years:          []string{"2023", "2024"},
		Qualifications: []string{"Baking", "Other", "Welding"},
	}
	if diff := cmp.Diff(want, views.FilterOptions(rows)); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}
