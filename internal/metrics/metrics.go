// Package metrics exposes Prometheus collectors for the frame
// pipeline. Registration is process-global via promauto, so the
// collector set is a singleton shared by every pump and player.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the frame pipeline.
type Metrics struct {
	// Pump metrics
	Ticks           prometheus.Counter
	FramesPresented prometheus.Counter
	RedrawsSkipped  prometheus.Counter
	EmptyPolls      prometheus.Counter
	CopyErrors      prometheus.Counter
	CopyDuration    prometheus.Histogram
	FrameBytes      prometheus.Histogram

	// Player metrics
	PlayersOpen  prometheus.Gauge
	OpenFailures *prometheus.CounterVec
}

var (
	once sync.Once
	def  *Metrics
)

// Default returns the process-wide collector set, registering it on
// first use.
func Default() *Metrics {
	once.Do(func() {
		def = &Metrics{
			Ticks: promauto.NewCounter(prometheus.CounterOpts{
				Name: "framebridge_pump_ticks_total",
				Help: "Total render pump ticks",
			}),
			FramesPresented: promauto.NewCounter(prometheus.CounterOpts{
				Name: "framebridge_frames_presented_total",
				Help: "Frames copied and handed to the present callback",
			}),
			RedrawsSkipped: promauto.NewCounter(prometheus.CounterOpts{
				Name: "framebridge_redraws_skipped_total",
				Help: "Ticks skipped because the frame hash was unchanged",
			}),
			EmptyPolls: promauto.NewCounter(prometheus.CounterOpts{
				Name: "framebridge_empty_polls_total",
				Help: "Ticks where the backend had no new frame",
			}),
			CopyErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "framebridge_copy_errors_total",
				Help: "Frame copies rejected by argument validation",
			}),
			CopyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "framebridge_copy_duration_seconds",
				Help:    "Time spent copying one frame into the display buffer",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10), // 1µs to ~260ms
			}),
			FrameBytes: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "framebridge_frame_bytes",
				Help:    "Size of presented frames in bytes",
				Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8), // 64KiB to ~1GiB
			}),
			PlayersOpen: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "framebridge_players_open",
				Help: "Players created and not yet closed",
			}),
			OpenFailures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "framebridge_open_failures_total",
					Help: "Failed Open calls by error category",
				},
				[]string{"category"},
			),
		}
	})
	return def
}
