package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "inkwell_rate_limited_total",
	Help: "Requests rejected by the rate limiter, by form",
}, []string{"form"})
