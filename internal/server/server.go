// Package server exposes the catalog over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/everstacklabs/pricehub/internal/adapter"
	"github.com/everstacklabs/pricehub/internal/catalog"
	"github.com/everstacklabs/pricehub/internal/model"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Catalog is the query surface the HTTP layer serves.
type Catalog interface {
	Refresh(ctx context.Context) (*catalog.RefreshReport, error)
	Report() *catalog.RefreshReport
	ListModels(ctx context.Context, mergeEnabled bool) ([]model.CanonicalModel, error)
	ListBrands(ctx context.Context) ([]string, error)
	ListModelsByBrand(ctx context.Context, brand string) ([]model.CanonicalModel, error)
	GetProvidersForModel(ctx context.Context, name string) ([]model.ProviderOffer, error)
	ListSources() []adapter.SourceStatus
	Source(id string) (adapter.SourceStatus, error)
	ModelsBySource(ctx context.Context, id string) ([]model.CanonicalModel, error)
	SetSourceEnabled(id string, enabled bool) error
	ReloadSource(ctx context.Context, id string) (*catalog.RefreshReport, error)
	CheckSource(ctx context.Context, id string) error
}

// Server serves the catalog API.
type Server struct {
	catalog Catalog
	metrics http.Handler
	ginMode string
	router  *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithGinMode sets the gin mode ("debug", "release" or "test").
func WithGinMode(mode string) Option {
	return func(s *Server) { s.ginMode = mode }
}

// New builds a server and its routes.
func New(c Catalog, opts ...Option) *Server {
	s := &Server{catalog: c, ginMode: gin.ReleaseMode}
	for _, o := range opts {
		o(s)
	}
	s.setupRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
