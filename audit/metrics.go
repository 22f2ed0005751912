package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ficore_audit_recorded_total",
			Help: "Tool-usage entries written",
		},
		[]string{"tool"},
	)

	dropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ficore_audit_dropped_total",
			Help: "Tool-usage entries lost to sink errors or timeouts",
		},
		[]string{"tool"},
	)
)
