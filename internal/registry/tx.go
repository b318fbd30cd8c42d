package registry

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/queryir"
)

// ErrTxClosed is returned by a Tx used after its scope has committed or
// rolled back.
var ErrTxClosed = errors.New("registry: transaction already closed")

// Tx is the transactional scope a registry operation runs in.
//
// Store adapters implement it. Reads through a Tx observe the writes made
// earlier through the same Tx.
type Tx interface {
	// InsertFlow stores f, which already carries its id. It returns the
	// stored record with timestamps set. A duplicate name fails with a
	// *flow.ConflictError.
	InsertFlow(ctx context.Context, f flow.Flow) (flow.Flow, error)

	// SelectFlows runs a validated select over the flows source.
	// The result is never nil.
	SelectFlows(ctx context.Context, q queryir.Select) ([]flow.Flow, error)

	// CountFlows runs a validated count over the flows source.
	CountFlows(ctx context.Context, q queryir.Count) (int, error)

	// DeleteFlow removes the flow with id and reports whether it existed.
	DeleteFlow(ctx context.Context, id uuid.UUID) (bool, error)
}

// Transactor opens transactional scopes.
//
// WithTx commits when fn returns nil and rolls back when fn returns an error
// or panics. The scope is released on every path; a panic is re-raised after
// rollback.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}
