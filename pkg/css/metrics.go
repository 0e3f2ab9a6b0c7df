package css

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// generations counts stylesheet derivations by artifact and outcome.
	generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menuforge_css_generations_total",
		Help: "Stylesheet generations by artifact and outcome",
	}, []string{"artifact", "outcome"})

	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "menuforge_css_generation_duration_seconds",
		Help:    "Stylesheet generation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
	}, []string{"artifact"})
)
