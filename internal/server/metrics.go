package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTabsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "beacon_bridge_tabs_active",
		Help: "Pages currently connected to the bridge",
	})

	metricMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beacon_bridge_messages_total",
		Help: "Messages received from connected pages",
	}, []string{"type"})
)
