// Package postgres is a PostgreSQL Flow store built on pgx/v5.
//
// Tags live in a text[] column with a GIN index, so tags_all compiles to
// the array containment operator (tags @> $n). Names carry a UNIQUE
// constraint (flows_name_key); a unique_violation (23505) on insert is
// translated into *flow.ConflictError.
//
// Schema changes are embedded migrations/*.sql files applied in filename
// order by Open and recorded in flowreg_migrations.
package postgres
