// Package metrics exports upload telemetry to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kie/assets/internal/upload"
)

// UploadObserver implements upload.Observer.
type UploadObserver struct {
	duration      *prometheus.HistogramVec
	errors        *prometheus.CounterVec
	uploadedBytes prometheus.Counter
}

// NewUploadObserver registers the upload collectors on reg. A nil reg uses
// the default registerer.
func NewUploadObserver(namespace string, reg prometheus.Registerer) (*UploadObserver, error) {
	if namespace == "" {
		namespace = "assets"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &UploadObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Time from request receipt to stored object, by payload shape.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"shape"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_errors_total",
			Help:      "Failed uploads by error kind.",
		}, []string{"kind"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Cumulative payload bytes stored.",
		}),
	}

	if err := register(reg, &o.duration); err != nil {
		return nil, err
	}
	if err := register(reg, &o.errors); err != nil {
		return nil, err
	}
	if err := register(reg, &o.uploadedBytes); err != nil {
		return nil, err
	}
	return o, nil
}

// register adds c to reg, swapping in the already registered collector on
// duplicate registration.
func register[C prometheus.Collector](reg prometheus.Registerer, c *C) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				*c = existing
				return nil
			}
		}
		return fmt.Errorf("register upload metric: %w", err)
	}
	return nil
}

// ObserveUpload records one upload attempt.
func (o *UploadObserver) ObserveUpload(shape upload.Shape, duration time.Duration, size int, err error) {
	if o == nil {
		return
	}
	if err != nil {
		o.errors.WithLabelValues(string(upload.KindOf(err))).Inc()
		return
	}
	o.duration.WithLabelValues(string(shape)).Observe(duration.Seconds())
	o.uploadedBytes.Add(float64(size))
}

// Handler serves the metrics registered on g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
