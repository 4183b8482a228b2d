package httpimpl

import (
	"sync"

	"github.com/bitnames/bitnames/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusAssetHTTPGetUtxos    *prometheus.CounterVec
	prometheusAssetHTTPGetBitName  *prometheus.CounterVec
	prometheusAssetHTTPListNames   *prometheus.CounterVec
	prometheusAssetHTTPGetTip      *prometheus.CounterVec
	prometheusAssetHTTPRequestTime prometheus.Histogram
)

var prometheusMetricsInitOnce sync.Once

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	newCounter := func(name, help string) *prometheus.CounterVec {
		return promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bitnames",
				Subsystem: "asset",
				Name:      name,
				Help:      help,
			},
			[]string{
				"mode",   // JSON or CSV
				"status", // http status code
			},
		)
	}

	prometheusAssetHTTPGetUtxos = newCounter("http_get_utxos", "Number of GetUtxosByAddress requests")
	prometheusAssetHTTPGetBitName = newCounter("http_get_bitname", "Number of GetBitName requests")
	prometheusAssetHTTPListNames = newCounter("http_list_bitnames", "Number of ListBitNames requests")
	prometheusAssetHTTPGetTip = newCounter("http_get_tip", "Number of GetTip requests")

	prometheusAssetHTTPRequestTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitnames",
			Subsystem: "asset",
			Name:      "http_request",
			Help:      "Histogram of asset API request handling",
			Buckets:   util.MetricsBucketsMilliSeconds,
		},
	)
}
