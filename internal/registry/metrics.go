package registry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/queryir"
)

// Operation labels.
const (
	opCreate     = "create"
	opRead       = "read"
	opReadByName = "read_by_name"
	opList       = "list"
	opCount      = "count"
	opDelete     = "delete"
)

// Outcome labels.
const (
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeConflict = "conflict"
	outcomeInvalid  = "invalid"
	outcomeError    = "error"
)

// Metrics holds Prometheus metrics for registry operations.
type Metrics struct {
	operations *prometheus.CounterVec   // By op and outcome
	duration   *prometheus.HistogramVec // By op
}

// NewMetrics creates registry metrics and registers them with reg.
// A nil reg returns nil metrics, which disables collection.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowreg",
			Subsystem: "registry",
			Name:      "operations_total",
			Help:      "Total number of registry operations by outcome",
		}, []string{"op", "outcome"}), // outcome: ok, not_found, conflict, invalid, error

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowreg",
			Subsystem: "registry",
			Name:      "operation_duration_seconds",
			Help:      "Registry operation duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"op"}),
	}

	if err := reg.Register(m.operations); err != nil {
		return nil, err
	}
	if err := reg.Register(m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(op, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// outcomeOf classifies an operation result for the outcome label.
func outcomeOf(err error, found bool) string {
	switch {
	case err == nil && found:
		return outcomeOK
	case err == nil:
		return outcomeNotFound
	case flow.IsConflict(err):
		return outcomeConflict
	case flow.IsInvalid(err), errors.Is(err, queryir.ErrInvalidQuery):
		return outcomeInvalid
	default:
		return outcomeError
	}
}
