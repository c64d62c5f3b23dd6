// Package instrument exports heat-board ingest and update activity as
// Prometheus metrics.
package instrument

import (
	"context"
	"net/http"
	"time"

	"codeberg.org/mutker/heatboard/internal/errors"
	"codeberg.org/mutker/heatboard/internal/heatmap"
	"codeberg.org/mutker/heatboard/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace       = "heatboard"
	shutdownTimeout = 5 * time.Second
)

// Metrics implements heatmap.Observer on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	observations   *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	violations     prometheus.Counter
	updateFailures prometheus.Counter
	updateDuration prometheus.Histogram
	groups         prometheus.Gauge
	series         prometheus.Gauge
	cells          prometheus.Gauge
}

var _ heatmap.Observer = (*Metrics)(nil)

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		observations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observations_total",
				Help:      "Observations accepted into the board",
			},
			[]string{"group"},
		),
		rejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejected_observations_total",
				Help:      "Observations rejected by the board",
			},
			[]string{"group", "reason"},
		),
		violations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scale_violations_total",
			Help:      "Scaled values that fell outside [-1, 1]",
		}),
		updateFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_failures_total",
			Help:      "Board updates that returned an error",
		}),
		updateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Time spent in a full board update",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		groups: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "groups",
			Help:      "Groups on the board after the last update",
		}),
		series: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "series",
			Help:      "Series on the board after the last update",
		}),
		cells: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visible_cells",
			Help:      "Visible cells on the board after the last update",
		}),
	}
}

func (m *Metrics) ObserveAdd(group, _ string, err error) {
	if err == nil {
		m.observations.WithLabelValues(group).Inc()
		return
	}

	m.rejected.WithLabelValues(group, string(errors.CodeOf(err))).Inc()
}

func (m *Metrics) ObserveUpdate(stats heatmap.UpdateStats) {
	m.updateDuration.Observe(stats.Seconds)
	m.violations.Add(float64(stats.Violations))
	m.groups.Set(float64(stats.Groups))
	m.series.Set(float64(stats.Series))
	m.cells.Set(float64(stats.Cells))
	if stats.Failed {
		m.updateFailures.Inc()
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log logger.Logger) error {
	errFactory := errors.New()

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	done := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			done <- errFactory.Wrap(errors.ErrServeMetric, err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(errors.ErrServeMetric, err)
	}

	return <-done
}
