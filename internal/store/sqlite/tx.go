package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/queryir"
	"github.com/roach88/flowreg/internal/querysql"
	"github.com/roach88/flowreg/internal/registry"
)

// flowsTable maps the flows source onto the SQLite layout. Tags are
// aggregated per row into a JSON array.
var flowsTable = querysql.Table{
	Name: "flows",
	Columns: []string{
		"id",
		"name",
		"(SELECT json_group_array(tag) FROM flow_tags WHERE flow_tags.flow_id = flows.id) AS tags",
		"created",
		"updated",
	},
	Fields: map[string]string{
		flow.FieldID:   "id",
		flow.FieldName: "name",
	},
	Sets: map[string]querysql.SetColumn{
		flow.FieldTags: {Relation: "flow_tags", Owner: "flow_id", Value: "tag", Key: "id"},
	},
}

var compiler = querysql.NewSQLCompiler(querysql.SQLite, flowsTable)

var _ registry.Tx = (*Tx)(nil)

// Tx is a registry.Tx over one SQLite transaction.
type Tx struct {
	tx    *sql.Tx
	store *Store
}

// InsertFlow implements registry.Tx.
//
// The flow row and its tag rows are written in the enclosing transaction.
// A UNIQUE violation returns *flow.ConflictError and leaves the
// transaction usable, but callers should roll it back.
func (t *Tx) InsertFlow(ctx context.Context, f flow.Flow) (flow.Flow, error) {
	now := t.store.now().UTC()
	f.Created = now
	f.Updated = now

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO flows (id, name, created, updated)
		VALUES (?, ?, ?, ?)
	`,
		f.ID.String(),
		f.Name,
		formatTime(f.Created),
		formatTime(f.Updated),
	)
	if err != nil {
		return flow.Flow{}, fmt.Errorf("insert flow: %w", translateError(err, f))
	}

	for _, tag := range f.Tags {
		if _, err := t.tx.ExecContext(ctx,
			`INSERT INTO flow_tags (flow_id, tag) VALUES (?, ?)`,
			f.ID.String(), tag,
		); err != nil {
			return flow.Flow{}, fmt.Errorf("insert flow tag %q: %w", tag, translateError(err, f))
		}
	}

	return f, nil
}

// SelectFlows implements registry.Tx.
// Returns an empty slice (not nil) if no flows match.
func (t *Tx) SelectFlows(ctx context.Context, q queryir.Select) ([]flow.Flow, error) {
	query, args, err := compiler.Compile(q)
	if err != nil {
		return nil, err
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query flows: %w", translateError(err, flow.Flow{}))
	}
	defer rows.Close()

	flows := []flow.Flow{}
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		flows = append(flows, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flows: %w", err)
	}

	return flows, nil
}

// CountFlows implements registry.Tx.
func (t *Tx) CountFlows(ctx context.Context, q queryir.Count) (int, error) {
	query, args, err := compiler.Compile(q)
	if err != nil {
		return 0, err
	}

	var n int
	if err := t.tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count flows: %w", translateError(err, flow.Flow{}))
	}
	return n, nil
}

// DeleteFlow implements registry.Tx. Tag rows go with the flow via
// ON DELETE CASCADE.
func (t *Tx) DeleteFlow(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, id.String())
	if err != nil {
		return false, fmt.Errorf("delete flow: %w", translateError(err, flow.Flow{}))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete flow: rows affected: %w", err)
	}
	return n > 0, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanFlow reads one row in flowsTable column order.
func scanFlow(row scanner) (flow.Flow, error) {
	var (
		f                flow.Flow
		tagsJSON         string
		created, updated string
	)
	if err := row.Scan(&f.ID, &f.Name, &tagsJSON, &created, &updated); err != nil {
		return flow.Flow{}, fmt.Errorf("scan flow: %w", err)
	}

	tags, err := unmarshalTags(tagsJSON)
	if err != nil {
		return flow.Flow{}, fmt.Errorf("flow %s: %w", f.ID, err)
	}
	f.Tags = tags

	if f.Created, err = parseTime(created); err != nil {
		return flow.Flow{}, fmt.Errorf("flow %s: created: %w", f.ID, err)
	}
	if f.Updated, err = parseTime(updated); err != nil {
		return flow.Flow{}, fmt.Errorf("flow %s: updated: %w", f.ID, err)
	}
	return f, nil
}

// errTxDone reports a statement on a finished transaction.
func errTxDone(err error) bool {
	return errors.Is(err, sql.ErrTxDone)
}
