// Package sqlite provides SQLite-backed durable storage for Flow records.
//
// Two database/sql drivers are supported:
//   - DriverCGO ("sqlite3"): github.com/mattn/go-sqlite3, the default
//   - DriverPureGo ("sqlite"): modernc.org/sqlite, no cgo required
//
// # Layout
//
//   - flows: one row per flow; UNIQUE(name) enforces one flow per name
//   - flow_tags: one row per (flow, tag), removed with its flow by
//     ON DELETE CASCADE
//
// # Critical Patterns
//
// Uniqueness is the UNIQUE constraint. A violation from either driver is
// translated into *flow.ConflictError at the Tx boundary; nothing checks for
// an existing name before inserting.
//
// Queries come from queryir via querysql. The tags_all filter is a GROUP BY
// ... HAVING COUNT(DISTINCT tag) subquery over flow_tags, and text ordering
// uses BINARY collation so results match the other stores byte for byte.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - One open connection: transactions are serialised in-process
package sqlite
