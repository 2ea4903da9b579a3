package view

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "restflow",
		Name:      "requests_total",
		Help:      "Dispatched requests by view, method and response status.",
	}, []string{"view", "method", "status"})

	throttledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "restflow",
		Name:      "throttled_total",
		Help:      "Requests rejected by throttling, by view.",
	}, []string{"view"})
)
