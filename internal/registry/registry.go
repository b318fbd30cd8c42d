package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/queryir"
)

// ErrNoTx is returned when an operation is called without a transactional scope.
var ErrNoTx = errors.New("registry: nil transaction")

// Registry performs Flow operations inside caller-supplied scopes.
//
// A Registry holds only immutable dependencies and is safe for concurrent
// use. Concurrency control between callers belongs to the store.
type Registry struct {
	ids     IDGenerator
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDGenerator sets the id source for Create.
//
// Default: UUIDv7Generator.
// Use testutil.NewSequenceIDGenerator() for deterministic tests.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Registry) {
		r.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithMetrics enables operation metrics. A nil m disables them.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// New creates a Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ListOptions selects and paginates a List.
type ListOptions struct {
	Filter flow.Filter
	// Limit bounds the number of flows returned. 0 means unbounded.
	Limit int
	// Offset skips that many flows of the ordered result.
	Offset int
}

// Create registers a new flow and returns it as stored.
//
// The name and tags are normalised and validated before the store is
// touched. f must not carry an id; a fresh one is assigned here. A name that
// already exists in the store fails with an error matching
// flow.ErrUniquenessViolation, and the caller's scope should be discarded.
func (r *Registry) Create(ctx context.Context, tx Tx, f flow.Flow) (created flow.Flow, err error) {
	start := time.Now()
	defer func() { r.metrics.observe(opCreate, outcomeOf(err, true), start) }()

	if tx == nil {
		return flow.Flow{}, ErrNoTx
	}
	if f.ID != uuid.Nil {
		return flow.Flow{}, &flow.ValidationError{Field: flow.FieldID, Message: "id is assigned by the registry"}
	}

	f.Name = flow.Normalize(f.Name)
	f.Tags = flow.NewTagSet(f.Tags...)
	if err := f.Validate(); err != nil {
		return flow.Flow{}, err
	}
	f.ID = r.ids.NewID()

	created, err = tx.InsertFlow(ctx, f)
	if err != nil {
		r.logger.Debug("create flow failed",
			"name", f.Name,
			"error", err,
		)
		return flow.Flow{}, fmt.Errorf("create flow: %w", err)
	}

	r.logger.Debug("flow created",
		"id", created.ID,
		"name", created.Name,
		"tags", []string(created.Tags),
	)
	return created, nil
}

// Read returns the flow with id. ok is false when no such flow exists.
func (r *Registry) Read(ctx context.Context, tx Tx, id uuid.UUID) (f flow.Flow, ok bool, err error) {
	start := time.Now()
	defer func() { r.metrics.observe(opRead, outcomeOf(err, ok), start) }()

	f, ok, err = r.readOne(ctx, tx, queryir.Equals{Field: flow.FieldID, Value: id.String()})
	if err != nil {
		return flow.Flow{}, false, fmt.Errorf("read flow %s: %w", id, err)
	}

	r.logger.Debug("flow read", "id", id, "found", ok)
	return f, ok, nil
}

// ReadByName returns the flow named name. ok is false when no such flow
// exists. The name is normalised the same way Create normalises it.
func (r *Registry) ReadByName(ctx context.Context, tx Tx, name string) (f flow.Flow, ok bool, err error) {
	start := time.Now()
	defer func() { r.metrics.observe(opReadByName, outcomeOf(err, ok), start) }()

	name = flow.Normalize(name)
	f, ok, err = r.readOne(ctx, tx, queryir.Equals{Field: flow.FieldName, Value: name})
	if err != nil {
		return flow.Flow{}, false, fmt.Errorf("read flow by name %q: %w", name, err)
	}

	r.logger.Debug("flow read by name", "name", name, "found", ok)
	return f, ok, nil
}

func (r *Registry) readOne(ctx context.Context, tx Tx, pred queryir.Predicate) (flow.Flow, bool, error) {
	if tx == nil {
		return flow.Flow{}, false, ErrNoTx
	}

	q := queryir.Select{
		From:    flow.Source,
		Filter:  pred,
		OrderBy: flow.DefaultOrder,
		Limit:   1,
	}
	flows, err := tx.SelectFlows(ctx, q)
	if err != nil {
		return flow.Flow{}, false, err
	}
	if len(flows) == 0 {
		return flow.Flow{}, false, nil
	}
	return flows[0], true, nil
}

// List returns the flows matching opts.Filter ordered by name then id.
//
// The result is a materialised slice and is never nil. Negative Limit or
// Offset fails with an error matching queryir.ErrInvalidQuery.
func (r *Registry) List(ctx context.Context, tx Tx, opts ListOptions) (flows []flow.Flow, err error) {
	start := time.Now()
	defer func() { r.metrics.observe(opList, outcomeOf(err, true), start) }()

	if tx == nil {
		return nil, ErrNoTx
	}

	q := queryir.Select{
		From:    flow.Source,
		Filter:  opts.Filter.Predicate(),
		OrderBy: flow.DefaultOrder,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	}
	if err := queryir.Validate(q, flow.Schema); err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}

	flows, err = tx.SelectFlows(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	if flows == nil {
		flows = []flow.Flow{}
	}

	r.logger.Debug("flows listed",
		"count", len(flows),
		"limit", opts.Limit,
		"offset", opts.Offset,
	)
	return flows, nil
}

// Count returns the number of flows matching filter.
func (r *Registry) Count(ctx context.Context, tx Tx, filter flow.Filter) (n int, err error) {
	start := time.Now()
	defer func() { r.metrics.observe(opCount, outcomeOf(err, true), start) }()

	if tx == nil {
		return 0, ErrNoTx
	}

	q := queryir.Count{From: flow.Source, Filter: filter.Predicate()}
	if err := queryir.Validate(q, flow.Schema); err != nil {
		return 0, fmt.Errorf("count flows: %w", err)
	}

	n, err = tx.CountFlows(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("count flows: %w", err)
	}

	r.logger.Debug("flows counted", "count", n)
	return n, nil
}

// Delete removes the flow with id. It reports false, with no error, when
// the flow was already absent.
func (r *Registry) Delete(ctx context.Context, tx Tx, id uuid.UUID) (deleted bool, err error) {
	start := time.Now()
	defer func() { r.metrics.observe(opDelete, outcomeOf(err, deleted), start) }()

	if tx == nil {
		return false, ErrNoTx
	}

	deleted, err = tx.DeleteFlow(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete flow %s: %w", id, err)
	}

	r.logger.Debug("flow delete", "id", id, "deleted", deleted)
	return deleted, nil
}
