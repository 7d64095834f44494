// Package monitoring exposes prometheus metrics for the block store and its
// RPC surface.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"blockdb/logx"
)

type storePromMetrics struct {
	processUpUnixSeconds prometheus.Gauge
	topHeight            prometheus.Gauge
	blocksWritten        prometheus.Counter
	blocksTrimmed        prometheus.Counter
	rejectedBlocks       *prometheus.CounterVec
	opDuration           *prometheus.HistogramVec
	rpcRequests          *prometheus.CounterVec
	rateLimitedRequests  prometheus.Counter
	panicCount           prometheus.Counter
}

func newStorePromMetrics() *storePromMetrics {
	return &storePromMetrics{
		processUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "blockdb_up_timestamp_unix_seconds",
				Help: "Unix timestamp at which the process started",
			},
		),
		topHeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "blockdb_top_height",
				Help: "Height of the highest stored block",
			},
		),
		blocksWritten: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "blockdb_blocks_written_total",
				Help: "The total number of block upserts committed",
			},
		),
		blocksTrimmed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "blockdb_blocks_trimmed_total",
				Help: "The total number of entries removed by trim or clear",
			},
		),
		rejectedBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockdb_rejected_blocks_total",
				Help: "The total number of rejected block writes",
			},
			[]string{"reason"},
		),
		opDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "blockdb_op_duration_seconds",
				Help: "Duration of block store operations in seconds",
			},
			[]string{"op"},
		),
		rpcRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blockdb_rpc_requests_total",
				Help: "The total number of JSON-RPC requests served",
			},
			[]string{"method"},
		),
		rateLimitedRequests: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "blockdb_rate_limited_requests_total",
				Help: "The total number of requests refused by the rate limiter",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "blockdb_panic_total",
				Help: "The total number of recovered panics",
			},
		),
	}
}

var storeMetrics *storePromMetrics

// InitMetrics registers the process metrics. Safe to skip in tests; every
// recording helper is a no-op until it is called.
func InitMetrics() {
	storeMetrics = newStorePromMetrics()
	storeMetrics.processUpUnixSeconds.SetToCurrentTime()
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func SetTopHeight(height int64) {
	if storeMetrics == nil {
		return
	}
	storeMetrics.topHeight.Set(float64(height))
}

func AddBlocksWritten(n int) {
	if storeMetrics == nil {
		return
	}
	storeMetrics.blocksWritten.Add(float64(n))
}

func AddBlocksTrimmed(n int) {
	if storeMetrics == nil {
		return
	}
	storeMetrics.blocksTrimmed.Add(float64(n))
}

func RecordRejectedBlock(reason string) {
	if storeMetrics == nil {
		return
	}
	storeMetrics.rejectedBlocks.With(prometheus.Labels{"reason": reason}).Inc()
}

func RecordOpDuration(op string, duration time.Duration) {
	if storeMetrics == nil {
		return
	}
	storeMetrics.opDuration.With(prometheus.Labels{"op": op}).Observe(duration.Seconds())
}

func IncreaseRPCRequestCount(method string) {
	if storeMetrics == nil {
		return
	}
	storeMetrics.rpcRequests.With(prometheus.Labels{"method": method}).Inc()
}

func IncreaseRateLimitedCount() {
	if storeMetrics == nil {
		return
	}
	storeMetrics.rateLimitedRequests.Inc()
}

func IncreasePanicCount() {
	if storeMetrics == nil {
		return
	}
	storeMetrics.panicCount.Inc()
}
