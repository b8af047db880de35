// Package server exposes an ImageSolver over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/litescript/ls-platesolve/internal/history"
	"github.com/litescript/ls-platesolve/internal/logging"
	"github.com/litescript/ls-platesolve/internal/observability"
	"github.com/litescript/ls-platesolve/internal/platesolve"
)

// DefaultMaxUploadBytes bounds the multipart request size.
const DefaultMaxUploadBytes = 64 << 20

// Config configures a Server.
type Config struct {
	Addr           string
	MaxUploadBytes int64

	// Defaults fills solve parameters missing from the request.
	Defaults platesolve.PlateSolveParameter

	// SolveTimeout bounds one request; 0 means no limit beyond the client.
	SolveTimeout time.Duration

	History *history.Manager
	Metrics *observability.SolverMetrics
	Logger  *logging.Logger
}

// Server wraps the HTTP server and handlers.
type Server struct {
	cfg    Config
	solver *platesolve.ImageSolver
	log    *logging.Logger
}

// New creates a server for solver.
func New(solver *platesolve.ImageSolver, cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Server{cfg: cfg, solver: solver, log: log.With("component", "http")}
}

// Router returns a gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.POST("/solve", s.handleSolve)
		api.GET("/history", s.handleHistory)
	}

	if gatherer := s.cfg.Metrics.Gatherer(); gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return router
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}
