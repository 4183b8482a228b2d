package gateway

import (
	"sync"

	"github.com/bitnames/bitnames/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusGatewaySubmitTransaction   prometheus.Histogram
	prometheusGatewayAttemptBmm          prometheus.Histogram
	prometheusGatewayConfirmBmm          prometheus.Histogram
	prometheusGatewayGetUtxosByAddresses prometheus.Histogram
	prometheusGatewayTransactionSize     prometheus.Histogram
	prometheusGatewayRateLimited         prometheus.Counter
)

var prometheusMetricsInitOnce sync.Once

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusGatewaySubmitTransaction = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "gateway",
			Name:      "submit_transaction",
			Help:      "Histogram of SubmitTransaction calls",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
	)

	prometheusGatewayAttemptBmm = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "gateway",
			Name:      "attempt_bmm",
			Help:      "Histogram of AttemptBmm calls",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusGatewayConfirmBmm = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "gateway",
			Name:      "confirm_bmm",
			Help:      "Histogram of ConfirmBmm calls",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusGatewayGetUtxosByAddresses = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "gateway",
			Name:      "get_utxos_by_addresses",
			Help:      "Histogram of GetUtxosByAddresses calls",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusGatewayTransactionSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "gateway",
			Name:      "transaction_size",
			Help:      "Size of submitted transactions in bytes",
			Buckets:   util.MetricsBucketsSize,
		},
	)

	prometheusGatewayRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "gateway",
			Name:      "rate_limited",
			Help:      "Number of SubmitTransaction calls refused by the rate limiter",
		},
	)
}
