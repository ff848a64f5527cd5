package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vench/phantom"
)

const shutdownTimeout = 10 * time.Second

// Server HTTP API of the export engine.
type Server struct {
	exporter *phantom.Exporter
	logger   *zap.Logger
	validate *validator.Validate
	engine   *gin.Engine

	maxBodyBytes int64
}

// Option option of Server.
type Option func(*Server)

// WithLogger sets logger of requests and failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxBodyBytes limits size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.maxBodyBytes = n
	}
}

// New returns server with routes registered.
func New(exporter *phantom.Exporter, opts ...Option) *Server {
	s := &Server{
		exporter: exporter,
		logger:   zap.NewNop(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(
		requestIDMiddleware(),
		loggerMiddleware(s.logger),
		recoveryMiddleware(s.logger),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{routeExport, routeDictionary})),
	)
	s.routes()

	return s
}

// Handler returns http handler of the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("start http server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to up http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutdown http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}

	return nil
}
