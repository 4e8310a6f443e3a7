package testsupport

import "ncboard/internal/record"

// Roster returns a small mixed roster: two qualifications, three years, one
// undated row and one failed assessment.
func Roster() []record.Record {
	return []record.Record{
		{Name: "Ana Cruz", Gender: "Female", Qualification: "Cookery NC II", DateAssessed: "2023-03-15", AssessmentCenter: "North TC", AssessmentStatus: "A", Result: "Passed", NCNo: "NC-001", School: "North HS"},
		{Name: "Ben Reyes", Gender: "Male", Qualification: "Cookery NC II", DateAssessed: "2023-07-01", AssessmentCenter: "North TC", AssessmentStatus: "A", Result: "Failed", NCNo: "NC-002", School: "North HS"},
		{Name: "Cara Lim", Gender: "female", Qualification: "Bread and Pastry NC II", DateAssessed: "2024-02-10", AssessmentCenter: "South TC", AssessmentStatus: "A", Result: "Competent", NCNo: "NC-003", School: "South HS"},
		{Name: "Dan Uy", Gender: "Male", Qualification: "Bread and Pastry NC II", DateAssessed: "", AssessmentCenter: "South TC", AssessmentStatus: "", Result: "Qualified", NCNo: "NC-004", School: "South HS"},
	}
}
