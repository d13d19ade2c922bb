package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_messages_consumed_total",
		Help: "Total number of bus messages fetched, labelled by topic.",
	}, []string{"topic"})

	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_messages_processed_total",
		Help: "Total number of messages successfully applied to the aggregates.",
	}, []string{"topic"})

	DecodeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_decode_failures_total",
		Help: "Total number of malformed payloads dropped, labelled by topic.",
	}, []string{"topic"})

	HandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_handler_failures_total",
		Help: "Total number of messages dropped after exhausting handler retries.",
	}, []string{"topic"})

	HandlerRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "analytics_handler_retries_total",
		Help: "Total number of handler retry attempts on transient store errors.",
	})

	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "analytics_message_processing_duration_ms",
		Help:    "Per-message dispatch latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
)
