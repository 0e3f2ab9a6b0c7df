package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menuforge_security_events_total",
		Help: "Security events recorded by type and severity",
	}, []string{"type", "severity"})

	pruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "menuforge_security_events_pruned_total",
		Help: "Security events removed by retention",
	})
)
