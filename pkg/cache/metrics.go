package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheLookups counts Get calls by result (hit, miss).
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menuforge_cache_lookups_total",
		Help: "Artifact cache lookups by result",
	}, []string{"result"})

	// cacheEvictions counts removed entries by reason.
	cacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menuforge_cache_evictions_total",
		Help: "Artifact cache evictions by reason (expired, capacity, invalidated)",
	}, []string{"reason"})

	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "menuforge_cache_entries",
		Help: "Number of entries in the artifact cache",
	})
)
