// Package server exposes the HTTP API: the public gallery reads, the
// admin-gated entry editor, connectivity status and the manual sync trigger.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/betterbench/betterbench/internal/auth"
	"github.com/betterbench/betterbench/internal/logging"
	"github.com/betterbench/betterbench/internal/netmon"
	"github.com/betterbench/betterbench/internal/repository"
	"github.com/betterbench/betterbench/internal/syncer"
)

type Server struct {
	addr    string
	repo    *repository.Repository
	engine  *syncer.Engine
	monitor *netmon.Monitor
	auth    *auth.Service
	log     logging.Logger
}

func New(addr string, repo *repository.Repository, engine *syncer.Engine, monitor *netmon.Monitor, authService *auth.Service, log logging.Logger) *Server {
	return &Server{
		addr:    addr,
		repo:    repo,
		engine:  engine,
		monitor: monitor,
		auth:    authService,
		log:     log.With("component", "http"),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/benches", s.handleListBenches)
		r.Get("/benches/{id}", s.handleGetBench)
		r.Get("/status", s.handleStatus)
		r.Post("/sync", s.handleSync)
		r.Post("/admin/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/benches", s.handleCreateBench)
			r.Put("/benches/{id}", s.handleUpdateBench)
			r.Delete("/benches/{id}", s.handleDeleteBench)
		})
	})

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.Info(ctx, "http server listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
