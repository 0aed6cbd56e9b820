// Package api configures and exposes the HTTP server, routes, metrics and
// related middleware of the typosquatting monitor.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"

	"typowatch/internal/api/handler/v1handler"
	"typowatch/internal/config"
	"typowatch/pkg/controller"
)

// Options holds configuration for the HTTP server and its dependencies.
// It is typically created from a config.Config via NewOptions.
type Options struct {
	// V1 configures the v1 handler.
	V1 v1handler.Options

	// Addr is the TCP address the server listens on, e.g. ":8080".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// RequestTimeout bounds the handling of a single API request.
	RequestTimeout time.Duration
	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values, including the request line.
	MaxHeaderBytes int
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
}

// NewOptions constructs an Options value from the provided application configuration.
func NewOptions(cfg *config.Config) Options {
	return Options{
		V1: v1handler.NewOptions(cfg),

		Addr:              cfg.HTTP.Addr,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
	}
}

// Deps are the collaborators of the HTTP server.
type Deps struct {
	v1handler.Deps

	// Gatherer backs the metrics endpoint.
	Gatherer prometheus.Gatherer
	// Meter records request metrics.
	Meter metric.Meter
}

// NewHandler builds the root handler:
//   - Prometheus metrics endpoint (MetricsPath)
//   - v1 API routes, with request metrics and a request timeout
//   - pprof endpoints for profiling
//
// Everything is wrapped with panic recovery, CORS and access logging.
func NewHandler(deps Deps, opts Options) (http.Handler, error) {
	reqMetrics, err := newRequestMetrics(deps.Meter)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(controller.WithLogger, middleware.Recoverer, controller.WithCORS)

	// prometheus metrics server
	r.Handle(opts.MetricsPath, promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	// v1 api
	v1 := v1handler.New(deps.Deps, opts.V1)
	r.Route("/v1", func(r chi.Router) {
		r.Use(reqMetrics.middleware)
		if opts.RequestTimeout > 0 {
			r.Use(func(next http.Handler) http.Handler {
				return http.TimeoutHandler(next, opts.RequestTimeout, `{"code":"TIMEOUT","message":"request timed out"}`)
			})
		}
		v1.Routes(r)
	})

	// pprof
	r.Mount("/debug/pprof", controller.PprofMux("/debug/pprof"))

	return r, nil
}

// NewServer wires up and returns a configured *http.Server using the provided Options.
func NewServer(deps Deps, opts Options) (*http.Server, error) {
	handler, err := NewHandler(deps, opts)
	if err != nil {
		return nil, fmt.Errorf("could not create handler: %w", err)
	}

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}, nil
}
