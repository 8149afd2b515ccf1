package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/betterbench/betterbench/internal/common"
	"github.com/betterbench/betterbench/internal/models"
	"github.com/betterbench/betterbench/internal/remote"
)

// Inline images arrive base64-encoded in the entry body, so the limit is
// generous compared to a plain JSON payload.
const maxBodyBytes = 20 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleListBenches(w http.ResponseWriter, r *http.Request) {
	order := remote.OrderDateVisited
	if r.URL.Query().Get("sort") == "rating" {
		order = remote.OrderRating
	}

	entries, err := s.repo.List(r.Context(), order)
	if err != nil {
		s.log.Error(r.Context(), "list benches", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list benches")
		return
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetBench(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entry, err := s.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bench not found")
			return
		}
		s.log.Error(r.Context(), "get bench", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load bench")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"online":  s.monitor.Current(),
		"pending": s.repo.PendingCount(),
		"syncing": s.engine.Running(),
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if !s.monitor.Online(r.Context()) {
		writeError(w, http.StatusServiceUnavailable, "offline")
		return
	}
	if err := s.engine.Run(r.Context()); err != nil {
		s.log.Error(r.Context(), "manual sync", "error", err)
		writeError(w, http.StatusBadGateway, "sync failed, entries kept for retry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending": s.repo.PendingCount()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "wrong password")
			return
		}
		s.log.Error(r.Context(), "login", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleCreateBench(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var entry models.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if entry.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	saved, err := s.repo.Save(r.Context(), entry)
	if err != nil {
		s.log.Error(r.Context(), "create bench", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save bench")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateBench(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	id := chi.URLParam(r, "id")

	var entry models.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if models.IsTempID(id) {
		entry.TempID = id
		entry.ID = ""
	} else {
		entry.ID = id
	}

	saved, err := s.repo.Save(r.Context(), entry)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bench not found")
			return
		}
		s.log.Error(r.Context(), "update bench", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save bench")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteBench(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bench not found")
			return
		}
		s.log.Error(r.Context(), "delete bench", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete bench")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
