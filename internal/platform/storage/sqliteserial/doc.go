// Package sqliteserial funnels storage access through one SQLite connection.
//
// A Queue owns a single *sql.Conn and one worker goroutine. Callers submit
// units of work with Perform and return immediately; the worker runs each
// unit inside its own transaction, strictly one at a time and in submission
// order, and reports the outcome through the unit's completion callback only
// after the transaction has committed or rolled back. Completions run in
// submission order on a delivery goroutine of their own, so they may submit
// more work or close the queue.
//
// The connection is never touched outside a unit of work, so records read or
// written by one unit cannot be observed half-applied by another.
package sqliteserial
