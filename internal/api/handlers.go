package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/m3rciful/trainingbot/core/logger"
	"github.com/m3rciful/trainingbot/internal/domain"
	"github.com/m3rciful/trainingbot/internal/storage"
)

const (
	dateLayout   = "2006-01-02"
	defaultLimit = 50
	maxLimit     = 500
)

type trainingsResponse struct {
	Trainings []domain.Training `json:"trainings"`
	Count     int               `json:"count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQueryTrainings(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ts, err := s.store.Query(r.Context(), q)
	if errors.Is(err, storage.ErrInvalidQuery) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		logger.Error(r.Context(), component, "trainings.query",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if ts == nil {
		ts = []domain.Training{}
	}
	writeJSON(w, http.StatusOK, trainingsResponse{Trainings: ts, Count: len(ts)})
}

func (s *Server) handleGetTraining(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid training id")
		return
	}
	t, err := s.store.FindByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "training not found")
		return
	}
	if err != nil {
		logger.Error(r.Context(), component, "trainings.get",
			slog.String("status", "fail"),
			slog.String("training_id", id),
			slog.String("err", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// parseQuery reads user_id, from, to, include, exclude and limit. Kind
// lists may be comma separated or repeated.
func parseQuery(v url.Values) (storage.Query, error) {
	var q storage.Query
	raw := strings.TrimSpace(v.Get("user_id"))
	if raw == "" {
		return q, errors.New("user_id parameter required")
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return q, fmt.Errorf("invalid user_id %q", raw)
	}
	q.UserID = userID

	if q.From, err = parseDay(v.Get("from")); err != nil {
		return q, fmt.Errorf("invalid from: %w", err)
	}
	if q.To, err = parseDay(v.Get("to")); err != nil {
		return q, fmt.Errorf("invalid to: %w", err)
	}
	q.Filter.Include = kinds(v["include"])
	q.Filter.Exclude = kinds(v["exclude"])

	q.Limit = defaultLimit
	if raw := strings.TrimSpace(v.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			return q, fmt.Errorf("limit must be between 1 and %d", maxLimit)
		}
		q.Limit = n
	}
	return q, nil
}

func parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, raw, time.UTC)
}

func kinds(values []string) []domain.WorkoutKind {
	var out []domain.WorkoutKind
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, domain.WorkoutKind(part))
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
