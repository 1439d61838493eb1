package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

var (
	producerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_producer_messages_total",
			Help: "Kafka messages handed to the writer, by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)

	producerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_producer_publish_duration_seconds",
			Help:    "Time spent in WriteMessages",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 3},
		},
		[]string{"topic"},
	)
)

// observePublish records one WriteMessages call that started at start.
func observePublish(topic string, start time.Time, err error) {
	producerLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	producerMessages.WithLabelValues(topic, outcome).Inc()
}
