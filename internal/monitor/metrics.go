package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway-level counters. Registered on the default registry and
// served by the monitor's /metrics endpoint.
var (
	OrdersSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradegate_orders_sent_total",
		Help: "Orders submitted to the exchange.",
	})
	OrdersRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradegate_orders_rejected_total",
		Help: "Orders rejected by the exchange or dropped by conversion.",
	})
	RequestsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradegate_requests_dropped_total",
		Help: "REST requests dropped by the rate limiter.",
	})
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradegate_stream_reconnects_total",
		Help: "Stream disconnections observed.",
	})
	PacketsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradegate_packets_dropped_total",
		Help: "Stream packets dropped as unknown or unattributable.",
	})
)
