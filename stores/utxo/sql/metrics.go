package sql

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusUtxoCreate  prometheus.Counter
	prometheusUtxoGet     prometheus.Counter
	prometheusUtxoSpend   prometheus.Counter
	prometheusUtxoUnSpend prometheus.Counter
	prometheusUtxoDelete  prometheus.Counter
	prometheusUtxoErrors  *prometheus.CounterVec

	// only init the metrics once
	prometheusMetricsInitOnce sync.Once
)

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusUtxoCreate = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "sql_utxo",
			Name:      "create",
			Help:      "Number of utxos created in sql",
		},
	)
	prometheusUtxoGet = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "sql_utxo",
			Name:      "get",
			Help:      "Number of utxo get calls done to sql",
		},
	)
	prometheusUtxoSpend = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "sql_utxo",
			Name:      "spend",
			Help:      "Number of utxos spent in sql",
		},
	)
	prometheusUtxoUnSpend = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "sql_utxo",
			Name:      "unspend",
			Help:      "Number of utxo unspend calls done to sql",
		},
	)
	prometheusUtxoDelete = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "sql_utxo",
			Name:      "delete",
			Help:      "Number of utxos deleted from sql",
		},
	)
	prometheusUtxoErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bitnames",
			Subsystem: "sql_utxo",
			Name:      "errors",
			Help:      "Number of utxo errors",
		},
		[]string{
			"function", // function raising the error
			"error",    // error returned
		},
	)
}
