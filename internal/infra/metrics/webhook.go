package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(gatewayEventsTotal, deliveriesTotal, deliveryLatency)
}

var (
	gatewayEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_gateway_events_total",
			Help: "Inbound gateway webhooks by event kind and pipeline outcome.",
		},
		[]string{"kind", "outcome"}, // outcome: delivered|filtered|unknown_instance|duplicate|failed|skipped
	)

	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_deliveries_total",
			Help: "Outbound bot-platform sends by message kind, position and result.",
		},
		[]string{"kind", "position", "result"}, // position: primary|supplementary
	)

	deliveryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_delivery_seconds",
			Help:    "Latency of single outbound sends.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

func IncGatewayEvent(kind, outcome string) {
	gatewayEventsTotal.WithLabelValues(norm(kind), norm(outcome)).Inc()
}

func ObserveDelivery(kind, position, result string, d time.Duration) {
	deliveriesTotal.WithLabelValues(norm(kind), norm(position), norm(result)).Inc()
	deliveryLatency.WithLabelValues(norm(kind)).Observe(d.Seconds())
}
