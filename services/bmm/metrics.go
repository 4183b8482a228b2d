package bmm

import (
	"sync"

	"github.com/bitnames/bitnames/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusBMMAttempts    prometheus.Counter
	prometheusBMMTransitions *prometheus.CounterVec
	prometheusBMMConfirm     prometheus.Histogram
	prometheusBMMBlockTxs    prometheus.Histogram
	prometheusBMMEvictedTxs  prometheus.Counter
)

var prometheusMetricsInitOnce sync.Once

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusBMMAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "bmm",
			Name:      "attempts",
			Help:      "Number of accepted BMM attempts",
		},
	)

	prometheusBMMTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "bmm",
			Name:      "transitions",
			Help:      "Number of BMM state transitions by destination state",
		},
		[]string{"state"},
	)

	prometheusBMMConfirm = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "bmm",
			Name:      "confirm",
			Help:      "Histogram of BMM confirmation checks",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusBMMBlockTxs = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "bmm",
			Name:      "block_transactions",
			Help:      "Number of transactions in blocks submitted for BMM",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		},
	)

	prometheusBMMEvictedTxs = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "bmm",
			Name:      "evicted_transactions",
			Help:      "Number of queued transactions evicted because they can never be connected",
		},
	)
}
