package registry_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/queryir"
	"github.com/roach88/flowreg/internal/registry"
	"github.com/roach88/flowreg/internal/store/memory"
	"github.com/roach88/flowreg/internal/testutil"
)

// recordingTx captures the queries the registry builds.
type recordingTx struct {
	selects []queryir.Select
	counts  []queryir.Count
	inserts []flow.Flow
	err     error
}

func (tx *recordingTx) InsertFlow(_ context.Context, f flow.Flow) (flow.Flow, error) {
	tx.inserts = append(tx.inserts, f)
	return f, tx.err
}

func (tx *recordingTx) SelectFlows(_ context.Context, q queryir.Select) ([]flow.Flow, error) {
	tx.selects = append(tx.selects, q)
	return nil, tx.err
}

func (tx *recordingTx) CountFlows(_ context.Context, q queryir.Count) (int, error) {
	tx.counts = append(tx.counts, q)
	return 0, tx.err
}

func (tx *recordingTx) DeleteFlow(_ context.Context, _ uuid.UUID) (bool, error) {
	return false, tx.err
}

func TestCreate_AssignsIDAndNormalizes(t *testing.T) {
	ctx := context.Background()
	reg := registry.New(registry.WithIDGenerator(testutil.NewSequenceIDGenerator()))
	tx := &recordingTx{}

	created, err := reg.Create(ctx, tx, flow.Flow{Name: "  my-flow ", Tags: flow.TagSet{"b", "a", "b"}})
	require.NoError(t, err)

	assert.Equal(t, testutil.SeqID(1), created.ID)
	require.Len(t, tx.inserts, 1)
	assert.Equal(t, "my-flow", tx.inserts[0].Name)
	assert.Equal(t, flow.TagSet{"a", "b"}, tx.inserts[0].Tags)
}

func TestCreate_RejectsBeforeTouchingStore(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()

	testCases := []struct {
		name  string
		input flow.Flow
		field string
	}{
		{name: "empty name", input: flow.Flow{}, field: flow.FieldName},
		{name: "blank name", input: flow.Flow{Name: "  "}, field: flow.FieldName},
		{name: "empty tag", input: flow.Flow{Name: "n", Tags: flow.TagSet{""}}, field: flow.FieldTags},
		{name: "preassigned id", input: flow.Flow{ID: testutil.SeqID(1), Name: "n"}, field: flow.FieldID},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx := &recordingTx{}
			_, err := reg.Create(ctx, tx, tc.input)
			require.Error(t, err)
			assert.True(t, flow.IsInvalid(err))

			var ve *flow.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.field, ve.Field)
			assert.Empty(t, tx.inserts, "store must not be touched")
		})
	}
}

func TestCreate_PropagatesConflict(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	tx := &recordingTx{err: &flow.ConflictError{Field: flow.FieldName, Value: "dup"}}

	_, err := reg.Create(ctx, tx, flow.Flow{Name: "dup"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, flow.ErrUniquenessViolation))
	assert.Contains(t, err.Error(), "create flow")
}

func TestOperations_RequireTx(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()

	_, err := reg.Create(ctx, nil, flow.Flow{Name: "n"})
	assert.ErrorIs(t, err, registry.ErrNoTx)
	_, _, err = reg.Read(ctx, nil, testutil.SeqID(1))
	assert.ErrorIs(t, err, registry.ErrNoTx)
	_, _, err = reg.ReadByName(ctx, nil, "n")
	assert.ErrorIs(t, err, registry.ErrNoTx)
	_, err = reg.List(ctx, nil, registry.ListOptions{})
	assert.ErrorIs(t, err, registry.ErrNoTx)
	_, err = reg.Count(ctx, nil, flow.Filter{})
	assert.ErrorIs(t, err, registry.ErrNoTx)
	_, err = reg.Delete(ctx, nil, testutil.SeqID(1))
	assert.ErrorIs(t, err, registry.ErrNoTx)
}

func TestRead_BuildsPointLookup(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	tx := &recordingTx{}

	_, ok, err := reg.Read(ctx, tx, testutil.SeqID(7))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = reg.ReadByName(ctx, tx, "café")
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, tx.selects, 2)
	assert.Equal(t, queryir.Equals{Field: flow.FieldID, Value: testutil.SeqID(7).String()}, tx.selects[0].Filter)
	assert.Equal(t, queryir.Equals{Field: flow.FieldName, Value: "café"}, tx.selects[1].Filter)
	for _, q := range tx.selects {
		assert.Equal(t, 1, q.Limit)
		assert.NoError(t, queryir.Validate(q, flow.Schema))
	}
}

func TestList_TranslatesFilterOnce(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	tx := &recordingTx{}

	filter := flow.Filter{Names: []string{"a"}, TagsAll: []string{"db"}}
	got, err := reg.List(ctx, tx, registry.ListOptions{Filter: filter, Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.NotNil(t, got, "list never returns nil")

	require.Len(t, tx.selects, 1)
	q := tx.selects[0]
	assert.Equal(t, filter.Predicate(), q.Filter)
	assert.Equal(t, flow.DefaultOrder, q.OrderBy)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 20, q.Offset)
}

func TestList_RejectsNegativePagination(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	tx := &recordingTx{}

	_, err := reg.List(ctx, tx, registry.ListOptions{Limit: -1})
	assert.ErrorIs(t, err, queryir.ErrInvalidQuery)

	_, err = reg.List(ctx, tx, registry.ListOptions{Offset: -3})
	assert.ErrorIs(t, err, queryir.ErrInvalidQuery)

	assert.Empty(t, tx.selects)
}

func TestOperations_WrapStoreErrors(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	boom := errors.New("disk on fire")
	tx := &recordingTx{err: boom}

	_, _, err := reg.Read(ctx, tx, testutil.SeqID(1))
	assert.ErrorIs(t, err, boom)
	_, err = reg.List(ctx, tx, registry.ListOptions{})
	assert.ErrorIs(t, err, boom)
	_, err = reg.Count(ctx, tx, flow.Filter{})
	assert.ErrorIs(t, err, boom)
	_, err = reg.Delete(ctx, tx, testutil.SeqID(1))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "delete flow")
}

func TestRegistry_Metrics(t *testing.T) {
	ctx := context.Background()
	promReg := prometheus.NewRegistry()
	metrics, err := registry.NewMetrics(promReg)
	require.NoError(t, err)

	reg := registry.New(registry.WithMetrics(metrics))
	db := memory.New()

	var id uuid.UUID
	require.NoError(t, db.WithTx(ctx, func(tx registry.Tx) error {
		created, err := reg.Create(ctx, tx, flow.Flow{Name: "m"})
		id = created.ID
		return err
	}))
	_ = db.WithTx(ctx, func(tx registry.Tx) error {
		_, err := reg.Create(ctx, tx, flow.Flow{Name: "m"})
		return err
	})
	require.NoError(t, db.WithTx(ctx, func(tx registry.Tx) error {
		if _, _, err := reg.Read(ctx, tx, id); err != nil {
			return err
		}
		_, _, err := reg.Read(ctx, tx, testutil.SeqID(99))
		return err
	}))

	expected := `
# HELP flowreg_registry_operations_total Total number of registry operations by outcome
# TYPE flowreg_registry_operations_total counter
flowreg_registry_operations_total{op="create",outcome="conflict"} 1
flowreg_registry_operations_total{op="create",outcome="ok"} 1
flowreg_registry_operations_total{op="read",outcome="not_found"} 1
flowreg_registry_operations_total{op="read",outcome="ok"} 1
`
	require.NoError(t, promtestutil.GatherAndCompare(promReg, bytes.NewBufferString(expected),
		"flowreg_registry_operations_total"))

	series, err := promtestutil.GatherAndCount(promReg, "flowreg_registry_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, series, "one histogram per op")
}

func TestNewMetrics_NilRegistererDisables(t *testing.T) {
	metrics, err := registry.NewMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, metrics)

	reg := registry.New(registry.WithMetrics(metrics))
	_, err = reg.Count(context.Background(), &recordingTx{}, flow.Filter{})
	assert.NoError(t, err)
}

func TestNewMetrics_DoubleRegistrationFails(t *testing.T) {
	promReg := prometheus.NewRegistry()
	_, err := registry.NewMetrics(promReg)
	require.NoError(t, err)

	_, err = registry.NewMetrics(promReg)
	assert.Error(t, err)
}

func TestRegistry_LogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := registry.New(registry.WithLogger(logger), registry.WithIDGenerator(testutil.NewSequenceIDGenerator()))

	_, err := reg.Create(context.Background(), &recordingTx{}, flow.Flow{Name: "logged"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, `msg="flow created"`)
	assert.Contains(t, out, "name=logged")
	assert.Contains(t, out, "id="+testutil.SeqID(1).String())
}
