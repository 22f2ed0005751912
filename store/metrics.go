package store

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ficoreafrica/ficore/schema"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ficore_store_operations_total",
			Help: "Repository operations by collection, operation and outcome",
		},
		[]string{"collection", "op", "outcome"}, // ok, not_found, invalid, error
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ficore_store_operation_duration_seconds",
			Help:    "Repository operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "op"},
	)
)

func observe(collection, op string, start time.Time, err error) {
	operationDuration.WithLabelValues(collection, op).Observe(time.Since(start).Seconds())
	operationsTotal.WithLabelValues(collection, op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, schema.ErrValidation):
		return "invalid"
	}
	return "error"
}
