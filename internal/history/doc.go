// Package history records every fetch in a SQLite database.
//
// Each fetch stores its outcome, encoding label, byte size and the full
// result as JSON, plus one row per city so a single city's announcements can
// be followed over time. The database lives in the data directory as
// history.db and uses the pure-Go modernc.org/sqlite driver.
package history
