package blockassembly

import (
	"sync"

	"github.com/bitnames/bitnames/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusBlockAssemblyAddTx            prometheus.Histogram
	prometheusBlockAssemblyRemoveTx         prometheus.Counter
	prometheusBlockAssemblyGetBlockTemplate prometheus.Histogram
	prometheusBlockAssemblerTransactions    prometheus.Gauge
	prometheusBlockAssemblyBestBlockHeight  prometheus.Gauge
)

var (
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusBlockAssemblyAddTx = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "blockassembly",
			Name:      "add_tx",
			Help:      "Histogram of adding a transaction to block assembly",
			Buckets:   util.MetricsBucketsMicroSeconds,
		},
	)

	prometheusBlockAssemblyRemoveTx = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "blockassembly",
			Name:      "remove_tx",
			Help:      "Number of transactions removed from block assembly",
		},
	)

	prometheusBlockAssemblyGetBlockTemplate = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "blockassembly",
			Name:      "get_block_template",
			Help:      "Histogram of building a block template",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)

	prometheusBlockAssemblerTransactions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bitnames",
			Subsystem: "blockassembly",
			Name:      "transactions",
			Help:      "Number of transactions waiting in block assembly",
		},
	)

	prometheusBlockAssemblyBestBlockHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bitnames",
			Subsystem: "blockassembly",
			Name:      "best_block_height",
			Help:      "Height of the sidechain tip block assembly builds on",
		},
	)
}
