// Package server exposes the Runner over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/comalice/tapemachine/internal/core"
	"github.com/comalice/tapemachine/internal/log"
)

// maxBodyBytes bounds request bodies; tables and tapes are small.
const maxBodyBytes = 1 << 20

// Config wires the server's collaborators.
type Config struct {
	Runner     *core.Runner
	Visualizer core.Visualizer
	Gatherer   prometheus.Gatherer // nil disables /metrics

	// RateLimit requests per RateWindow per client IP on /v1; 0 disables limiting.
	RateLimit  int
	RateWindow time.Duration

	Logger *zerolog.Logger
}

type server struct {
	runner     *core.Runner
	visualizer core.Visualizer
	logger     zerolog.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg Config) http.Handler {
	s := &server{
		runner:     cfg.Runner,
		visualizer: cfg.Visualizer,
		logger:     log.WithComponent("server"),
	}
	if cfg.Logger != nil {
		s.logger = *cfg.Logger
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(rateLimit(cfg.RateLimit, cfg.RateWindow))
		}
		r.Post("/runs", s.handleRun)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Post("/batch", s.handleBatch)
		r.Post("/tables/dot", s.handleDOT)
	})

	return r
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return Serve(ctx, ln, h)
}

// Serve is ListenAndServe on an existing listener.
func Serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// rateLimit limits by client IP with a sliding window, answering 429 with a JSON body.
func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Error:  "rate_limit_exceeded",
				Detail: "Too many requests. Please try again later.",
			})
		}),
	)
}

// logRequests logs one line per request with the chi request ID.
func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.ContextWithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		r = r.WithContext(ctx)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logger := log.WithContext(ctx, s.logger)
		logger.Info().
			Str(log.FieldEvent, "request.handled").
			Str("method", r.Method).
			Str(log.FieldPath, r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})
}
