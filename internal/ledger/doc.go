// Package ledger persists attendance records and enforces the anti-duplicate
// window.
//
// Ledger.Record is the single entry point for writes. Automatic records are
// suppressed when the same identity already has an automatic record within the
// dedup window among the most recent records; manual records always persist.
// Two stores are provided: JSONStore keeps the whole ledger in one JSON array
// rewritten atomically on every append, and SQLiteStore keeps it in a SQLite
// table. Both assume a single writer process.
package ledger
