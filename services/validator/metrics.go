package validator

import (
	"sync"

	"github.com/bitnames/bitnames/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusValidatorValidate       prometheus.Histogram
	prometheusValidatorSpendUtxos     prometheus.Histogram
	prometheusValidatorSendToBA       prometheus.Histogram
	prometheusValidatorRelay          prometheus.Histogram
	prometheusValidatorTransactionFee prometheus.Histogram
	prometheusValidatorValid          prometheus.Counter
	prometheusValidatorRejected       *prometheus.CounterVec
	prometheusValidatorRejectCacheHit prometheus.Counter
)

var prometheusMetricsInitOnce sync.Once

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusValidatorValidate = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "validator",
			Name:      "validate",
			Help:      "Histogram of transaction validation",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
	)

	prometheusValidatorSpendUtxos = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "validator",
			Name:      "spend_utxos",
			Help:      "Histogram of provisionally spending transaction inputs",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
	)

	prometheusValidatorSendToBA = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "validator",
			Name:      "send_to_blockassembly",
			Help:      "Histogram of queueing transactions in block assembly",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
	)

	prometheusValidatorRelay = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "validator",
			Name:      "relay",
			Help:      "Histogram of relaying accepted transactions to kafka",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusValidatorTransactionFee = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "validator",
			Name:      "transaction_fee",
			Help:      "Fees of accepted transactions",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		},
	)

	prometheusValidatorValid = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "validator",
			Name:      "valid_transactions",
			Help:      "Number of accepted transactions",
		},
	)

	prometheusValidatorRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "validator",
			Name:      "rejected_transactions",
			Help:      "Number of rejected transactions by reason",
		},
		[]string{"reason"},
	)

	prometheusValidatorRejectCacheHit = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "validator",
			Name:      "reject_cache_hit",
			Help:      "Number of submissions answered from the reject cache",
		},
	)
}
