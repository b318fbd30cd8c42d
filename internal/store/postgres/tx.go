package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/queryir"
	"github.com/roach88/flowreg/internal/querysql"
	"github.com/roach88/flowreg/internal/registry"
)

// flowsTable maps the flows source onto the PostgreSQL layout.
var flowsTable = querysql.Table{
	Name:    "flows",
	Columns: []string{"id", "name", "tags", "created", "updated"},
	Fields: map[string]string{
		flow.FieldID:   "id",
		flow.FieldName: "name",
	},
	Types: map[string]string{
		flow.FieldID: "uuid",
	},
	Sets: map[string]querysql.SetColumn{
		flow.FieldTags: {Column: "tags"},
	},
}

var compiler = querysql.NewSQLCompiler(querysql.Postgres, flowsTable)

// Constraint names from migrations/001_flows.sql.
const (
	constraintName = "flows_name_key"
	constraintPKey = "flows_pkey"
)

var _ registry.Tx = (*Tx)(nil)

// Tx is a registry.Tx over one pgx transaction.
type Tx struct {
	tx pgx.Tx
}

// InsertFlow implements registry.Tx. Timestamps come from the database.
func (t *Tx) InsertFlow(ctx context.Context, f flow.Flow) (flow.Flow, error) {
	tags := []string(f.Tags)
	if tags == nil {
		tags = []string{}
	}

	err := t.tx.QueryRow(ctx, `
		INSERT INTO flows (id, name, tags)
		VALUES ($1, $2, $3)
		RETURNING created, updated
	`,
		f.ID.String(),
		f.Name,
		tags,
	).Scan(&f.Created, &f.Updated)
	if err != nil {
		return flow.Flow{}, fmt.Errorf("insert flow: %w", translateError(err, f))
	}

	f.Created = f.Created.UTC()
	f.Updated = f.Updated.UTC()
	return f, nil
}

// SelectFlows implements registry.Tx.
// Returns an empty slice (not nil) if no flows match.
func (t *Tx) SelectFlows(ctx context.Context, q queryir.Select) ([]flow.Flow, error) {
	query, args, err := compiler.Compile(q)
	if err != nil {
		return nil, err
	}

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query flows: %w", translateError(err, flow.Flow{}))
	}
	defer rows.Close()

	flows := []flow.Flow{}
	for rows.Next() {
		var (
			f    flow.Flow
			tags []string
		)
		if err := rows.Scan(&f.ID, &f.Name, &tags, &f.Created, &f.Updated); err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		f.Tags = flow.NewTagSet(tags...)
		f.Created = f.Created.UTC()
		f.Updated = f.Updated.UTC()
		flows = append(flows, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flows: %w", translateError(err, flow.Flow{}))
	}

	return flows, nil
}

// CountFlows implements registry.Tx.
func (t *Tx) CountFlows(ctx context.Context, q queryir.Count) (int, error) {
	query, args, err := compiler.Compile(q)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count flows: %w", translateError(err, flow.Flow{}))
	}
	return int(n), nil
}

// DeleteFlow implements registry.Tx.
func (t *Tx) DeleteFlow(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM flows WHERE id = $1`, id.String())
	if err != nil {
		return false, fmt.Errorf("delete flow: %w", translateError(err, flow.Flow{}))
	}
	return tag.RowsAffected() > 0, nil
}

// translateError maps pgx errors onto registry errors. A unique_violation
// (23505) becomes *flow.ConflictError wrapping the *pgconn.PgError.
func translateError(err error, f flow.Flow) error {
	if errors.Is(err, pgx.ErrTxClosed) {
		return registry.ErrTxClosed
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}

	switch pgErr.ConstraintName {
	case constraintName:
		return &flow.ConflictError{Field: flow.FieldName, Value: f.Name, Err: err}
	case constraintPKey:
		return &flow.ConflictError{Field: flow.FieldID, Value: f.ID.String(), Err: err}
	default:
		return &flow.ConflictError{Field: pgErr.ConstraintName, Err: err}
	}
}
