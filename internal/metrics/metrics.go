// Package metrics exposes Prometheus collectors and the HTTP endpoint that
// serves them alongside a JSON counter snapshot.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/webarchive-ingest/internal/counters"
	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

// Metrics owns a registry with the pipeline collectors.
type Metrics struct {
	registry      *prometheus.Registry
	counters      ingest.Counters
	filesInFlight prometheus.Gauge
	fileDuration  *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New registers the counter collector (with quota saturation) plus runtime
// and file-level collectors on a fresh registry.
func New(c ingest.Counters, quota int64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		counters: c,
		filesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_files_in_flight",
			Help: "Archive files currently being processed.",
		}),
		fileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingest_file_duration_seconds",
			Help:    "Time to process one archive file, labeled by outcome.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		counters.NewCollector(c, quota),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.filesInFlight,
		m.fileDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// FileStarted marks a file as in flight.
func (m *Metrics) FileStarted() {
	m.filesInFlight.Inc()
}

// FileDone records the outcome ("finished" or "failed") of a file.
func (m *Metrics) FileDone(outcome string, d time.Duration) {
	m.filesInFlight.Dec()
	m.fileDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// Router returns the HTTP handler serving /metrics, /healthz and /counters.
func (m *Metrics) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/counters", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(m.counters.Snapshot()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return r
}

// Middleware is a chi middleware that records HTTP request metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			routePattern = rctx.RoutePattern()
		}
		m.httpRequests.WithLabelValues(r.Method, strconv.Itoa(ww.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, routePattern).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Serve runs an HTTP server on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	}
}
