// Package tables provides helpers around tapemachine.Table values:
// eager validation, reachability analysis, content versioning and the
// shipped sample tables.
//
// The engine checks state indices lazily, when a transition is taken.
// Callers that accept tables from outside the process (the HTTP surface,
// persisted run records) should call Validate first.
package tables
