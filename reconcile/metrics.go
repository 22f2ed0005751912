package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var indexActions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ficore_reconcile_index_actions_total",
		Help: "Index actions taken by schema reconciliation",
	},
	[]string{"collection", "action"}, // created, dropped, skipped
)
