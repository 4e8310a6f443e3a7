// Package sheet reads the first worksheet of an uploaded roster into loosely
// typed rows keyed by the header row, and writes the blank import template.
//
// Supported inputs are .xlsx (and .xlsm), legacy .xls, and .csv.
package sheet
