package mainchain

import (
	"sync"

	"github.com/bitnames/bitnames/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusMainchainRPCCall   *prometheus.HistogramVec
	prometheusMainchainRPCErrors *prometheus.CounterVec
)

var prometheusMetricsInitOnce sync.Once

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusMainchainRPCCall = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "mainchain",
			Name:      "rpc_call",
			Help:      "Duration of mainchain rpc calls",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
		[]string{"method"},
	)

	prometheusMainchainRPCErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "mainchain",
			Name:      "rpc_errors",
			Help:      "Number of failed mainchain rpc calls",
		},
		[]string{"method"},
	)
}
