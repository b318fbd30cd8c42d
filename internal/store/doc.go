// Package store opens the configured Flow store.
//
// Each backend lives in its own subpackage and implements
// registry.Transactor:
//   - sqlite: database/sql over mattn/go-sqlite3 or modernc.org/sqlite
//   - postgres: pgx/v5 connection pool
//   - memory: in-process, copy-on-write transactions
//
// storetest holds the conformance suite every backend runs.
package store
