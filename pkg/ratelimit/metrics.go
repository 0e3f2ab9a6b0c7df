package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var denials = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "menuforge_ratelimit_denials_total",
	Help: "Requests rejected by the rate limiter, by class",
}, []string{"class"})
