// Package storetest is a conformance suite for registry.Transactor
// implementations.
//
// Every store adapter runs the same suite from its own tests:
//
//	func TestConformance(t *testing.T) {
//	    storetest.Run(t, func(t *testing.T) registry.Transactor {
//	        return openTestStore(t)
//	    })
//	}
//
// The factory must return an empty store that is closed by t.Cleanup.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/registry"
	"github.com/roach88/flowreg/internal/testutil"
)

// Factory opens an empty store for one test.
type Factory func(t *testing.T) registry.Transactor

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, h *harness)
	}{
		{"CreateThenDuplicateConflicts", testCreateThenDuplicateConflicts},
		{"ListByTagsAll", testListByTagsAll},
		{"ListLimitOffset", testListLimitOffset},
		{"ReadUnusedID", testReadUnusedID},
		{"DeleteThenRead", testDeleteThenRead},
		{"ListEmptyStore", testListEmptyStore},
		{"RoundTrip", testRoundTrip},
		{"ReadByName", testReadByName},
		{"FilterEquivalence", testFilterEquivalence},
		{"PaginationCoversAll", testPaginationCoversAll},
		{"Count", testCount},
		{"RollbackOnError", testRollbackOnError},
		{"RollbackOnPanic", testRollbackOnPanic},
		{"ReadYourWritesInTx", testReadYourWritesInTx},
		{"ConflictAbortsOnlyItsScope", testConflictAbortsOnlyItsScope},
		{"ConcurrentDuplicateCreate", testConcurrentDuplicateCreate},
		{"TxClosedAfterScope", testTxClosedAfterScope},
		{"NormalizedNamesCollide", testNormalizedNamesCollide},
		{"InvalidUTF8Rejected", testInvalidUTF8Rejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, &harness{
				db:  newStore(t),
				reg: registry.New(registry.WithIDGenerator(testutil.NewSequenceIDGenerator())),
				ctx: context.Background(),
			})
		})
	}
}

type harness struct {
	db  registry.Transactor
	reg *registry.Registry
	ctx context.Context
}

func (h *harness) create(t *testing.T, name string, tags ...string) flow.Flow {
	t.Helper()
	f, err := flow.New(name, tags...)
	require.NoError(t, err)

	var created flow.Flow
	require.NoError(t, h.db.WithTx(h.ctx, func(tx registry.Tx) error {
		created, err = h.reg.Create(h.ctx, tx, f)
		return err
	}))
	return created
}

func (h *harness) tryCreate(name string, tags ...string) error {
	f, err := flow.New(name, tags...)
	if err != nil {
		return err
	}
	return h.db.WithTx(h.ctx, func(tx registry.Tx) error {
		_, err := h.reg.Create(h.ctx, tx, f)
		return err
	})
}

func (h *harness) read(t *testing.T, id uuid.UUID) (flow.Flow, bool) {
	t.Helper()
	var (
		f  flow.Flow
		ok bool
	)
	require.NoError(t, h.db.WithTx(h.ctx, func(tx registry.Tx) error {
		var err error
		f, ok, err = h.reg.Read(h.ctx, tx, id)
		return err
	}))
	return f, ok
}

func (h *harness) list(t *testing.T, opts registry.ListOptions) []flow.Flow {
	t.Helper()
	var flows []flow.Flow
	require.NoError(t, h.db.WithTx(h.ctx, func(tx registry.Tx) error {
		var err error
		flows, err = h.reg.List(h.ctx, tx, opts)
		return err
	}))
	return flows
}

func (h *harness) delete(t *testing.T, id uuid.UUID) bool {
	t.Helper()
	var deleted bool
	require.NoError(t, h.db.WithTx(h.ctx, func(tx registry.Tx) error {
		var err error
		deleted, err = h.reg.Delete(h.ctx, tx, id)
		return err
	}))
	return deleted
}

func names(flows []flow.Flow) []string {
	out := make([]string, len(flows))
	for i, f := range flows {
		out[i] = f.Name
	}
	return out
}

func testCreateThenDuplicateConflicts(t *testing.T, h *harness) {
	created := h.create(t, "my-flow")
	assert.NotEqual(t, uuid.Nil, created.ID)

	err := h.tryCreate("my-flow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, flow.ErrUniquenessViolation), "got %v", err)

	var conflict *flow.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, flow.FieldName, conflict.Field)

	kept := h.list(t, registry.ListOptions{Filter: flow.Filter{Names: []string{"my-flow"}}})
	require.Len(t, kept, 1)
	assert.Equal(t, created.ID, kept[0].ID)
}

func testListByTagsAll(t *testing.T, h *harness) {
	h.create(t, "f1", "db", "blue")
	h.create(t, "f2", "db")
	h.create(t, "f3")

	got := h.list(t, registry.ListOptions{Filter: flow.Filter{TagsAll: []string{"db"}}})
	assert.Equal(t, []string{"f1", "f2"}, names(got))

	got = h.list(t, registry.ListOptions{Filter: flow.Filter{TagsAll: []string{"db", "blue"}}})
	assert.Equal(t, []string{"f1"}, names(got))

	got = h.list(t, registry.ListOptions{Filter: flow.Filter{TagsAll: []string{"db", "red"}}})
	assert.Empty(t, got)
}

func testListLimitOffset(t *testing.T, h *harness) {
	h.create(t, "b")
	h.create(t, "a")

	got := h.list(t, registry.ListOptions{Limit: 1, Offset: 1})
	assert.Equal(t, []string{"b"}, names(got))

	got = h.list(t, registry.ListOptions{Offset: 1})
	assert.Equal(t, []string{"b"}, names(got))

	got = h.list(t, registry.ListOptions{Offset: 5})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func testReadUnusedID(t *testing.T, h *harness) {
	h.create(t, "present")

	f, ok := h.read(t, uuid.Must(uuid.NewV7()))
	assert.False(t, ok)
	assert.Equal(t, flow.Flow{}, f)
}

func testDeleteThenRead(t *testing.T, h *harness) {
	x := h.create(t, "x")

	assert.True(t, h.delete(t, x.ID))

	_, ok := h.read(t, x.ID)
	assert.False(t, ok)

	assert.False(t, h.delete(t, x.ID))

	// The name is free again, under a new id.
	again := h.create(t, "x")
	assert.NotEqual(t, x.ID, again.ID)
}

func testListEmptyStore(t *testing.T, h *harness) {
	got := h.list(t, registry.ListOptions{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func testRoundTrip(t *testing.T, h *harness) {
	created := h.create(t, "etl-nightly", "db", "nightly")

	assert.False(t, created.Created.IsZero(), "store sets created")
	assert.False(t, created.Updated.IsZero(), "store sets updated")

	got, ok := h.read(t, created.ID)
	require.True(t, ok)
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("read differs from create (-created +read):\n%s", diff)
	}
	assert.Equal(t, flow.TagSet{"db", "nightly"}, got.Tags)
}

func testReadByName(t *testing.T, h *harness) {
	created := h.create(t, "by-name", "x")

	var (
		got flow.Flow
		ok  bool
	)
	require.NoError(t, h.db.WithTx(h.ctx, func(tx registry.Tx) error {
		var err error
		got, ok, err = h.reg.ReadByName(h.ctx, tx, " by-name ")
		return err
	}))
	require.True(t, ok)
	assert.Equal(t, created.ID, got.ID)

	require.NoError(t, h.db.WithTx(h.ctx, func(tx registry.Tx) error {
		var err error
		_, ok, err = h.reg.ReadByName(h.ctx, tx, "missing")
		return err
	}))
	assert.False(t, ok)
}

func testFilterEquivalence(t *testing.T, h *harness) {
	all := []flow.Flow{
		h.create(t, "alpha", "db", "blue"),
		h.create(t, "beta", "db"),
		h.create(t, "gamma"),
		h.create(t, "Delta", "blue", "red"),
		h.create(t, "epsilon", "db", "blue", "red"),
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	filters := []flow.Filter{
		{},
		{TagsAll: []string{"db"}},
		{TagsAll: []string{"blue", "red"}},
		{TagsAll: []string{"missing"}},
		{Names: []string{"alpha", "gamma", "nope"}},
		{IDs: []uuid.UUID{all[0].ID, all[3].ID}},
		{Names: []string{"alpha", "beta", "epsilon"}, TagsAll: []string{"db", "blue"}},
		{IDs: []uuid.UUID{all[1].ID}, Names: []string{"gamma"}},
	}

	for i, filter := range filters {
		t.Run(fmt.Sprintf("filter_%d", i), func(t *testing.T) {
			var want []string
			for _, f := range all {
				if filter.Matches(f) {
					want = append(want, f.Name)
				}
			}
			if want == nil {
				want = []string{}
			}

			got := h.list(t, registry.ListOptions{Filter: filter})
			assert.Equal(t, want, names(got))

			var n int
			require.NoError(t, h.db.WithTx(h.ctx, func(tx registry.Tx) error {
				var err error
				n, err = h.reg.Count(h.ctx, tx, filter)
				return err
			}))
			assert.Equal(t, len(want), n)
		})
	}
}

func testPaginationCoversAll(t *testing.T, h *harness) {
	for _, name := range []string{"e", "B", "a", "d", "c", "b", "ä"} {
		h.create(t, name)
	}

	full := h.list(t, registry.ListOptions{})
	require.Len(t, full, 7)
	// Binary order: uppercase before lowercase, multibyte last.
	assert.Equal(t, []string{"B", "a", "b", "c", "d", "e", "ä"}, names(full))

	var paged []flow.Flow
	for offset := 0; ; offset += 2 {
		page := h.list(t, registry.ListOptions{Limit: 2, Offset: offset})
		if len(page) == 0 {
			break
		}
		assert.LessOrEqual(t, len(page), 2)
		paged = append(paged, page...)
	}
	assert.Equal(t, names(full), names(paged))

	again := h.list(t, registry.ListOptions{})
	assert.Equal(t, names(full), names(again))
}

func testCount(t *testing.T, h *harness) {
	count := func(filter flow.Filter) int {
		var n int
		require.NoError(t, h.db.WithTx(h.ctx, func(tx registry.Tx) error {
			var err error
			n, err = h.reg.Count(h.ctx, tx, filter)
			return err
		}))
		return n
	}

	assert.Equal(t, 0, count(flow.Filter{}))

	h.create(t, "f1", "db")
	h.create(t, "f2", "db")
	h.create(t, "f3")

	assert.Equal(t, 3, count(flow.Filter{}))
	assert.Equal(t, 2, count(flow.Filter{TagsAll: []string{"db"}}))
	assert.Equal(t, 1, count(flow.Filter{Names: []string{"f3"}}))
}

func testRollbackOnError(t *testing.T, h *harness) {
	errAbort := errors.New("abort")

	f, err := flow.New("rolled-back")
	require.NoError(t, err)

	err = h.db.WithTx(h.ctx, func(tx registry.Tx) error {
		if _, err := h.reg.Create(h.ctx, tx, f); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	assert.Empty(t, h.list(t, registry.ListOptions{}))
}

func testRollbackOnPanic(t *testing.T, h *harness) {
	f, err := flow.New("panicked")
	require.NoError(t, err)

	assert.PanicsWithValue(t, "boom", func() {
		_ = h.db.WithTx(h.ctx, func(tx registry.Tx) error {
			if _, err := h.reg.Create(h.ctx, tx, f); err != nil {
				return err
			}
			panic("boom")
		})
	})

	assert.Empty(t, h.list(t, registry.ListOptions{}))

	// The store is still usable after the panic.
	h.create(t, "after-panic")
	assert.Len(t, h.list(t, registry.ListOptions{}), 1)
}

func testReadYourWritesInTx(t *testing.T, h *harness) {
	f, err := flow.New("inside", "t")
	require.NoError(t, err)

	require.NoError(t, h.db.WithTx(h.ctx, func(tx registry.Tx) error {
		created, err := h.reg.Create(h.ctx, tx, f)
		if err != nil {
			return err
		}

		got, ok, err := h.reg.Read(h.ctx, tx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "inside", got.Name)

		flows, err := h.reg.List(h.ctx, tx, registry.ListOptions{Filter: flow.Filter{TagsAll: []string{"t"}}})
		require.NoError(t, err)
		assert.Len(t, flows, 1)

		deleted, err := h.reg.Delete(h.ctx, tx, created.ID)
		require.NoError(t, err)
		assert.True(t, deleted)
		return nil
	}))

	assert.Empty(t, h.list(t, registry.ListOptions{}))
}

func testConflictAbortsOnlyItsScope(t *testing.T, h *harness) {
	original := h.create(t, "taken", "v1")

	f1, err := flow.New("fresh")
	require.NoError(t, err)
	f2, err := flow.New("taken", "v2")
	require.NoError(t, err)

	err = h.db.WithTx(h.ctx, func(tx registry.Tx) error {
		if _, err := h.reg.Create(h.ctx, tx, f1); err != nil {
			return err
		}
		_, err := h.reg.Create(h.ctx, tx, f2)
		return err
	})
	require.True(t, flow.IsConflict(err), "got %v", err)

	// Neither write of the failed scope is visible; the original is intact.
	got := h.list(t, registry.ListOptions{})
	require.Len(t, got, 1)
	assert.Equal(t, original.ID, got[0].ID)
	assert.Equal(t, flow.TagSet{"v1"}, got[0].Tags)
}

func testConcurrentDuplicateCreate(t *testing.T, h *harness) {
	const workers = 8

	results := make([]error, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			results[i] = h.tryCreate("contended")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, flow.IsConflict(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	assert.Len(t, h.list(t, registry.ListOptions{}), 1)
}

func testTxClosedAfterScope(t *testing.T, h *harness) {
	var leaked registry.Tx
	require.NoError(t, h.db.WithTx(h.ctx, func(tx registry.Tx) error {
		leaked = tx
		return nil
	}))

	_, _, err := h.reg.Read(h.ctx, leaked, uuid.Must(uuid.NewV7()))
	require.Error(t, err)
}

func testNormalizedNamesCollide(t *testing.T, h *harness) {
	h.create(t, "caf\u00e9")

	err := h.tryCreate("cafe\u0301")
	assert.True(t, flow.IsConflict(err), "canonically equivalent names must collide, got %v", err)
}

// Invalid UTF-8 must fail validation before reaching the store; SQLite would
// otherwise read the bytes back as U+FFFD.
func testInvalidUTF8Rejected(t *testing.T, h *harness) {
	inputs := []flow.Flow{
		{Name: "bad\xff"},
		{Name: "bad", Tags: flow.TagSet{"\xff"}},
	}

	for _, f := range inputs {
		err := h.db.WithTx(h.ctx, func(tx registry.Tx) error {
			_, err := h.reg.Create(h.ctx, tx, f)
			return err
		})
		require.Error(t, err)
		assert.True(t, flow.IsInvalid(err), "got %v", err)
	}

	assert.Empty(t, h.list(t, registry.ListOptions{}))
}
