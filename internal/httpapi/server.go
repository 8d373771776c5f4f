package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"agrisense-backend/internal/analytics"
	"agrisense-backend/internal/apperr"
	"agrisense-backend/internal/auth"
	"agrisense-backend/internal/ingest"
	"agrisense-backend/internal/realtime"
	"agrisense-backend/internal/store"
)

type Server struct {
	repo      *store.Repo
	ingest    *ingest.Service
	analytics *analytics.Service
	hub       *realtime.Hub
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewServer(repo *store.Repo, ing *ingest.Service, an *analytics.Service, hub *realtime.Hub, jwtSecret []byte, tokenTTL time.Duration) *Server {
	return &Server{
		repo:      repo,
		ingest:    ing,
		analytics: an,
		hub:       hub,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

func (s *Server) Register(mux *http.ServeMux) {
	r := chi.NewRouter()

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/auth/register", s.handleRegister)
	r.Post("/api/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(s.jwtSecret))

		r.Get("/api/auth/me", s.handleMe)

		if s.hub != nil {
			r.Get("/ws/readings", s.hub.ServeHTTP)
		}

		r.Route("/api/sensors", func(r chi.Router) {
			r.Post("/data", s.handleSubmitReading)
			r.Get("/data", s.handleListReadings)
			r.Get("/data/{reading_id}", s.handleGetReading)
			r.Delete("/data/{reading_id}", s.handleDeleteReading)
			r.Get("/latest", s.handleLatestReadings)
			r.Get("/device/{device_id}", s.handleDeviceReadings)
		})

		r.Route("/api/dashboard", func(r chi.Router) {
			r.Get("/stats", s.handleStats)
			r.Get("/charts/maturity-distribution", s.handleMaturityChart)
			r.Get("/charts/sucrose-trend", s.handleSucroseTrend)
			r.Get("/charts/environmental", s.handleEnvironmental)
			r.Get("/alerts", s.handleAlerts)
		})

		r.Route("/api/fields", func(r chi.Router) {
			r.Get("/", s.handleFieldsList)
			r.Post("/", s.handleFieldsCreate)
			r.Get("/{field_id}", s.handleFieldsGet)
			r.Patch("/{field_id}", s.handleFieldsPatch)
			r.Delete("/{field_id}", s.handleFieldsDelete)
		})

		r.Route("/api/users", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/", s.handleUsersList)
			r.Get("/{user_id}", s.handleUsersGet)
			r.Patch("/{user_id}", s.handleUsersPatch)
			r.Delete("/{user_id}", s.handleUsersDelete)
		})
	})

	mux.Handle("/", r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{"message": "AgriSense API is running", "timestamp": time.Now().UTC()})
}

// --- response envelope ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"status": "success", "data": data})
}

func writeMessage(w http.ResponseWriter, status int, message string, data any) {
	body := map[string]any{"status": "success", "message": message}
	if data != nil {
		body["data"] = data
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"status": "error", "message": message})
}

// writeFailure translates the error taxonomy into the stable error envelope.
func writeFailure(w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.Validation:
		writeError(w, http.StatusBadRequest, apperr.Message(err))
	case apperr.NotFound:
		writeError(w, http.StatusNotFound, apperr.Message(err))
	case apperr.Forbidden:
		writeError(w, http.StatusForbidden, apperr.Message(err))
	case apperr.Storage:
		slog.Error("storage failure", "error", err)
		writeError(w, http.StatusInternalServerError, apperr.Message(err))
	default:
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		slog.Error("unhandled failure", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, apperr.New(apperr.Validation, "missing id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.Validation, "invalid id")
	}
	return id, nil
}
