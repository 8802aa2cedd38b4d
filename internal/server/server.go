// Package server exposes the cloud registry over HTTP: the management
// table, the create and edit dialogs' fetch and submit calls, the
// provider catalogue, metrics and health.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/cloudctl/internal/daemon"
	"github.com/yairfalse/cloudctl/payload"
	"github.com/yairfalse/cloudctl/storage"
	"github.com/yairfalse/cloudctl/telemetry"
	"github.com/yairfalse/cloudctl/types"
)

// CloudService runs the submit path: validation, policies, storage, audit
type CloudService interface {
	Get(ctx context.Context, id string) (types.Cloud, error)
	Save(ctx context.Context, p payload.Payload) (types.Cloud, error)
	Delete(ctx context.Context, id string) error
}

// Server serves the HTTP API
type Server struct {
	clouds          CloudService
	reader          storage.CloudReader
	gatherer        prometheus.Gatherer
	daemon          *daemon.Daemon
	logger          *telemetry.Logger
	pageSize        int
	shutdownTimeout time.Duration
	mux             *http.ServeMux
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger
func WithLogger(l *telemetry.Logger) Option {
	return func(s *Server) { s.logger = l.Component("server") }
}

// WithGatherer sets the registry served on /metrics
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithDaemon runs d next to the server and reports its health
func WithDaemon(d *daemon.Daemon) Option {
	return func(s *Server) { s.daemon = d }
}

// WithPageSize sets the page size used when a request does not ask for one
func WithPageSize(n int) Option {
	return func(s *Server) { s.pageSize = n }
}

// WithShutdownTimeout bounds how long in-flight requests may take on shutdown
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// New creates a server over clouds and reader
func New(clouds CloudService, reader storage.CloudReader, opts ...Option) *Server {
	s := &Server{
		clouds:          clouds,
		reader:          reader,
		gatherer:        telemetry.PrometheusRegistry,
		logger:          telemetry.Nop(),
		pageSize:        storage.DefaultPageSize,
		shutdownTimeout: 10 * time.Second,
		mux:             http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/clouds", s.handleList)
	s.mux.HandleFunc("POST /api/clouds", s.handleCreate)
	s.mux.HandleFunc("GET /api/clouds/{id}", s.handleGet)
	s.mux.HandleFunc("PUT /api/clouds/{id}", s.handleUpdate)
	s.mux.HandleFunc("DELETE /api/clouds/{id}", s.handleDelete)
	s.mux.HandleFunc("POST /api/clouds/{id}/verify", s.handleVerify)
	s.mux.HandleFunc("POST /api/validate", s.handleValidate)
	s.mux.HandleFunc("GET /api/providers", s.handleProviders)
	s.mux.HandleFunc("GET /api/providers/{provider}", s.handleProvider)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the instrumented HTTP handler
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := telemetry.Tracer.Start(r.Context(), "http "+r.Method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			))
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		s.logger.WithContext(ctx).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// Run serves on ln until ctx ends, together with the daemon when one is set
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var g run.Group

	g.Add(func() error {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("api listening")
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("server shutdown")
		}
	})

	if s.daemon != nil {
		dctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			return s.daemon.Start(dctx)
		}, func(error) {
			cancel()
		})
	}

	stop := make(chan struct{})
	g.Add(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		}
	}, func(error) {
		close(stop)
	})

	err := g.Run()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Info().Msg("api stopped")
		return nil
	}
	return err
}

// ListenAndRun listens on addr and calls Run
func (s *Server) ListenAndRun(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.Run(ctx, ln)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
