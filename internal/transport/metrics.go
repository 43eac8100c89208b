package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_dispatched_total",
		Help: "Payloads handed to a delivery channel",
	}, []string{"channel"})

	metricFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_delivery_failures_total",
		Help: "Delivery attempts that failed and were discarded",
	}, []string{"channel"})

	metricDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beacon_dropped_total",
		Help: "Payloads rejected by a full or closed beacon queue",
	})
)
