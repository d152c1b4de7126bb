// Package ledger records harness runs in SQLite.
//
// Snapshots on disk only show the latest run; the ledger keeps the verdict,
// failure kind, snapshot digests and benchmark medians of every run so a
// regression can be traced back to the run that introduced it.
//
// # Database Configuration
//
//   - WAL mode: history queries can run while a harness run is writing
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: cases cannot outlive their run
//   - one open connection: SQLite has a single writer
//
// Run ids are UUIDv7, so they sort by creation time.
package ledger
