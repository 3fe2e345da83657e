// Package metrics exposes Prometheus metrics for the receiver daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for one receiver daemon.
type Metrics struct {
	AcquisitionsTotal   prometheus.Counter
	AcquisitionsAborted prometheus.Counter
	FramesTotal         prometheus.Counter
	FrameBytesTotal     prometheus.Counter
	PacketsTotal        prometheus.Counter
	PacketsDropped      prometheus.Counter
	FramesPerAcq        prometheus.Histogram
	PublishErrors       prometheus.Counter
	AcquisitionActive   prometheus.Gauge
	LastFrameIndex      prometheus.Gauge
}

// New registers a fresh metric set with reg under the given namespace.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AcquisitionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisitions_total",
			Help:      "Total number of acquisitions started",
		}),
		AcquisitionsAborted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisitions_aborted_total",
			Help:      "Acquisitions aborted by the start callback",
		}),
		FramesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Complete frames assembled",
		}),
		FrameBytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_bytes_total",
			Help:      "Pixel bytes delivered through the data callback",
		}),
		PacketsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_total",
			Help:      "Detector packets received and assembled",
		}),
		PacketsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_dropped_total",
			Help:      "Detector packets lost to incomplete frames",
		}),
		FramesPerAcq: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frames_per_acquisition",
			Help:      "Complete frames per finished acquisition",
			Buckets:   []float64{1, 10, 100, 500, 1000, 2000, 5000, 10000},
		}),
		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_publish_errors_total",
			Help:      "Frames that failed to publish on the ZMQ stream",
		}),
		AcquisitionActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "acquisition_active",
			Help:      "1 while an acquisition is in progress",
		}),
		LastFrameIndex: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_frame_index",
			Help:      "Frame index of the most recently assembled frame",
		}),
	}
}
