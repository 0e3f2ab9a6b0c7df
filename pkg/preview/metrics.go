package preview

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menuforge_preview_requests_total",
		Help: "Preview requests by outcome",
	}, []string{"outcome"})

	derivations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menuforge_preview_derivations_total",
		Help: "Preview stylesheet derivations by result",
	}, []string{"result"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "menuforge_preview_sessions",
		Help: "Preview sessions currently tracked",
	})
)
