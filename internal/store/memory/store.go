// Package memory is an in-process Flow store.
//
// Each transaction works on a private copy of the flow table and publishes
// it on commit, so a rolled-back scope leaves no trace. Transactions are
// serialised by a single mutex: a WithTx call blocks until the previous
// scope has been released. Calling WithTx again from inside fn deadlocks.
//
// Intended for unit tests and development.
package memory

import (
	"context"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/queryir"
	"github.com/roach88/flowreg/internal/registry"
)

var _ registry.Transactor = (*Store)(nil)

// Store is an in-memory implementation of registry.Transactor.
// Safe for concurrent access.
type Store struct {
	mu     sync.Mutex
	flows  map[uuid.UUID]flow.Flow
	names  map[string]uuid.UUID
	now    func() time.Time
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithClock sets the source of created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New returns a new empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		flows:  make(map[uuid.UUID]flow.Flow),
		names:  make(map[string]uuid.UUID),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping always succeeds for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// WithTx runs fn in a transaction. The transaction commits when fn returns
// nil and is discarded when fn returns an error or panics.
func (s *Store) WithTx(ctx context.Context, fn func(tx registry.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{
		store: s,
		flows: maps.Clone(s.flows),
		names: maps.Clone(s.names),
	}
	defer func() { tx.closed = true }()

	if err := fn(tx); err != nil {
		s.logger.Debug("memory transaction rolled back", "error", err)
		return err
	}

	s.flows = tx.flows
	s.names = tx.names
	return nil
}

// Tx is a copy-on-write view of the store.
type Tx struct {
	store  *Store
	flows  map[uuid.UUID]flow.Flow
	names  map[string]uuid.UUID
	closed bool
}

// InsertFlow implements registry.Tx.
func (tx *Tx) InsertFlow(ctx context.Context, f flow.Flow) (flow.Flow, error) {
	if err := tx.check(ctx); err != nil {
		return flow.Flow{}, err
	}
	if _, ok := tx.names[f.Name]; ok {
		return flow.Flow{}, &flow.ConflictError{Field: flow.FieldName, Value: f.Name}
	}
	if _, ok := tx.flows[f.ID]; ok {
		return flow.Flow{}, &flow.ConflictError{Field: flow.FieldID, Value: f.ID.String()}
	}

	now := tx.store.now().UTC()
	f.Tags = clone(f.Tags)
	f.Created = now
	f.Updated = now

	tx.flows[f.ID] = f
	tx.names[f.Name] = f.ID
	return copyFlow(f), nil
}

// SelectFlows implements registry.Tx.
func (tx *Tx) SelectFlows(ctx context.Context, q queryir.Select) ([]flow.Flow, error) {
	if err := tx.check(ctx); err != nil {
		return nil, err
	}
	if err := queryir.Validate(q, flow.Schema); err != nil {
		return nil, err
	}

	matched := make([]flow.Flow, 0, len(tx.flows))
	for _, f := range tx.flows {
		if queryir.Eval(q.Filter, f) {
			matched = append(matched, f)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return queryir.Compare(q.OrderBy, matched[i], matched[j]) < 0
	})

	if q.Offset >= len(matched) {
		return []flow.Flow{}, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}

	out := make([]flow.Flow, len(matched))
	for i, f := range matched {
		out[i] = copyFlow(f)
	}
	return out, nil
}

// CountFlows implements registry.Tx.
func (tx *Tx) CountFlows(ctx context.Context, q queryir.Count) (int, error) {
	if err := tx.check(ctx); err != nil {
		return 0, err
	}
	if err := queryir.Validate(q, flow.Schema); err != nil {
		return 0, err
	}

	n := 0
	for _, f := range tx.flows {
		if queryir.Eval(q.Filter, f) {
			n++
		}
	}
	return n, nil
}

// DeleteFlow implements registry.Tx.
func (tx *Tx) DeleteFlow(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := tx.check(ctx); err != nil {
		return false, err
	}
	f, ok := tx.flows[id]
	if !ok {
		return false, nil
	}
	delete(tx.flows, id)
	delete(tx.names, f.Name)
	return true, nil
}

func (tx *Tx) check(ctx context.Context) error {
	if tx.closed {
		return registry.ErrTxClosed
	}
	return ctx.Err()
}

func copyFlow(f flow.Flow) flow.Flow {
	f.Tags = clone(f.Tags)
	return f
}

func clone(tags flow.TagSet) flow.TagSet {
	out := make(flow.TagSet, len(tags))
	copy(out, tags)
	return out
}
