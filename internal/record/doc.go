// Package record defines the canonical candidate Record and the field mapper
// that turns spreadsheet rows and candidate store rows into it.
//
// The mapper accepts header aliases case-insensitively, normalizes
// assessment dates (including spreadsheet day serials) to YYYY-MM-DD, and
// exposes the certification and assessment predicates shared by every view.
package record
