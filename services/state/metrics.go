package state

import (
	"sync"

	"github.com/bitnames/bitnames/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusStateConnectBlock          prometheus.Histogram
	prometheusStateBlocksConnected       prometheus.Counter
	prometheusStateTransactionsConnected prometheus.Counter
	prometheusStateHeight                prometheus.Gauge
	prometheusStateKeyFilterNegatives    prometheus.Counter
	prometheusStateRejectedTxs           prometheus.Counter
)

var prometheusMetricsInitOnce sync.Once

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusStateConnectBlock = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "state",
			Name:      "connect_block",
			Help:      "Histogram of connecting a block",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusStateBlocksConnected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "state",
			Name:      "blocks_connected",
			Help:      "Number of blocks connected",
		},
	)

	prometheusStateTransactionsConnected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "state",
			Name:      "transactions_connected",
			Help:      "Number of transactions confirmed by connected blocks",
		},
	)

	prometheusStateHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bitnames",
			Subsystem: "state",
			Name:      "height",
			Help:      "Height of the sidechain tip",
		},
	)

	prometheusStateKeyFilterNegatives = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "state",
			Name:      "key_filter_negatives",
			Help:      "Number of bitname key lookups answered by the key filter alone",
		},
	)

	prometheusStateRejectedTxs = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "state",
			Name:      "rejected_transactions",
			Help:      "Number of queued transactions rejected because they can never be connected",
		},
	)
}
