// Command ncboard is the NC assessment dashboard CLI. It imports roster
// spreadsheets, keeps a working set in sync with the candidate store and the
// local snapshot cache, and renders the dashboard views as tables.
//
// The working set, hidden records and filter selection persist in the
// session state file between invocations.
package main
