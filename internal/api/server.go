// Package api serves stored trainings over a read-only JSON API.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/trainingbot/core/logger"
	"github.com/m3rciful/trainingbot/internal/domain"
	"github.com/m3rciful/trainingbot/internal/storage"
)

const component = "api"

// Store is the read side of the training store.
type Store interface {
	FindByID(ctx context.Context, id string) (*domain.Training, error)
	Query(ctx context.Context, q storage.Query) ([]domain.Training, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store  Store
	router chi.Router
}

// New creates a Server with all routes configured.
func New(store Store) *Server {
	s := &Server{store: store, router: chi.NewRouter()}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.Recoverer)
	s.router.Use(RequestLogging)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/v1/trainings", func(r chi.Router) {
		r.Get("/", s.handleQueryTrainings)
		r.Get("/{id}", s.handleGetTraining)
	})
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	logger.Info(ctx, component, "listen",
		slog.String("status", "ok"),
		slog.String("listen", ln.Addr().String()),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info(ctx, component, "shutdown", slog.String("status", "ok"))
	return nil
}
