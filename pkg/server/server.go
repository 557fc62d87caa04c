package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const shutdownTimeout = 10 * time.Second

// Config holds listener settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CertFile     string
	KeyFile      string
}

// NewHandler assembles the routed API wrapped with tracing and, when metrics is
// non-nil, Prometheus request metrics and the /metrics endpoint.
func NewHandler(svc Service, metrics *Metrics, logger *slog.Logger, opts ...Option) http.Handler {
	mux := http.NewServeMux()
	NewHandlers(svc, metrics, logger, opts...).Register(mux)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	var handler http.Handler = otelhttp.NewHandler(mux, "omnis.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + getEndpointName(r.URL.Path)
		}),
	)
	if metrics != nil {
		handler = metrics.MetricsMiddleware(handler)
	}
	return handler
}

// Server runs the HTTP listener.
type Server struct {
	cfg    Config
	http   *http.Server
	logger *slog.Logger
}

// New creates a server for handler.
func New(cfg Config, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		cfg: cfg,
		http: &http.Server{
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		logger: logger,
	}
}

// Run binds the configured address and serves until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("bind listener %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	// Log the actual resolved address (useful when addr is :0)
	s.logger.Info("Server listening", "addr", listener.Addr().String(), "tls", s.cfg.CertFile != "")

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.CertFile != "" {
			err = s.http.ServeTLS(listener, s.cfg.CertFile, s.cfg.KeyFile)
		} else {
			err = s.http.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
