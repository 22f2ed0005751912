package reminders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sent = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ficore_reminders_sent_total",
		Help: "Bill reminders by channel and outcome",
	},
	[]string{"channel", "outcome"}, // ok, skipped, error
)
