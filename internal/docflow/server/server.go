// Package server is a small backend speaking the upload/run-driver protocol,
// used for local development and end-to-end tests.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"docflow/internal/docflow/transport"
	"docflow/pkg/config"
	"docflow/pkg/logger"
)

const (
	// multipart overhead on top of the largest accepted file
	bodyLimit       = "11M"
	shutdownTimeout = 10 * time.Second
)

// Server is the reference backend.
type Server struct {
	echo    *echo.Echo
	store   *LocalStore
	pending *pendingRegistry

	address      string
	processDelay time.Duration
	version      string
	debug        bool

	logger *logger.Logger
}

// New builds a server from the server section of the configuration.
func New(cfg config.ServerConfig, debug bool) (*Server, error) {
	store, err := NewLocalStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:        store,
		address:      fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		processDelay: cfg.ProcessDelay,
		version:      cfg.Version,
		debug:        debug,
		logger:       logger.WithField("component", "server"),
	}
	s.pending = newPendingRegistry(cfg.PendingTTL, func(doc *Document) {
		s.logger.Info("pending document expired", "id", doc.ID)
		_ = s.store.Remove(doc)
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(middleware.CORS())
	e.Use(s.requestLogger)

	e.GET("/health", s.handleHealth)
	e.POST(transport.UploadPath, s.handleUpload)
	e.POST(transport.TriggerPath, s.handleRunDriver)

	s.echo = e
	return s, nil
}

// Handler exposes the routes, for embedding in tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.echo.Listener = ln
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server listening", "address", ln.Addr().String(), "version", s.version)
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("server shutting down")
		return s.echo.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		started := time.Now()
		err := next(c)
		s.logger.Debug("request",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status,
			"duration", time.Since(started))
		return err
	}
}
