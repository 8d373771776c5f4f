package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"agrisense-backend/internal/apperr"
	"agrisense-backend/internal/auth"
	"agrisense-backend/internal/ingest"
	"agrisense-backend/internal/scope"
	"agrisense-backend/internal/store"
)

func (s *Server) handleSubmitReading(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)

	var payload ingest.Payload
	if err := decodeJSON(r, &payload); err != nil {
		writeFailure(w, apperr.New(apperr.Validation, "invalid request body"))
		return
	}

	reading, err := s.ingest.Ingest(r.Context(), caller, payload)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Sensor data submitted successfully", map[string]any{"reading": reading})
}

func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	sc := scope.For(caller)

	filter, err := parseReadingFilter(r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	readings, total, err := s.repo.ListReadings(r.Context(), sc.Rows, filter)
	if err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not query readings", err))
		return
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"readings": readings,
		"pagination": map[string]any{
			"total":    total,
			"limit":    limit,
			"offset":   filter.Offset,
			"has_more": total > int64(filter.Offset+limit),
		},
	})
}

func (s *Server) handleGetReading(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	id, err := parseUUIDParam(r, "reading_id")
	if err != nil {
		writeFailure(w, err)
		return
	}

	reading, err := s.visibleReading(r, caller, id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"reading": reading})
}

func (s *Server) handleDeleteReading(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	id, err := parseUUIDParam(r, "reading_id")
	if err != nil {
		writeFailure(w, err)
		return
	}

	if _, err := s.visibleReading(r, caller, id); err != nil {
		writeFailure(w, err)
		return
	}
	if err := s.repo.DeleteReading(r.Context(), id); err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not delete reading", err))
		return
	}
	writeMessage(w, http.StatusOK, "Sensor data deleted successfully", nil)
}

func (s *Server) handleLatestReadings(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	readings, err := s.repo.LatestReadings(r.Context(), scope.For(caller).Rows, 10)
	if err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not query readings", err))
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"latest_readings": readings})
}

func (s *Server) handleDeviceReadings(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	deviceID := strings.TrimSpace(chi.URLParam(r, "device_id"))
	if deviceID == "" {
		writeFailure(w, apperr.New(apperr.Validation, "device id is required"))
		return
	}

	readings, err := s.repo.DeviceReadings(r.Context(), scope.For(caller).Rows, deviceID, 50)
	if err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not query readings", err))
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"device_data": readings})
}

// visibleReading loads a reading and enforces per-row ownership: NotFound for
// absent ids, Forbidden when the row belongs to someone else.
func (s *Server) visibleReading(r *http.Request, caller scope.Caller, id uuid.UUID) (*store.Reading, error) {
	reading, err := s.repo.GetReading(r.Context(), id)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "Sensor data not found", err)
	}
	if !scope.For(caller).AllowsOwner(reading.OwnerID) {
		return nil, apperr.New(apperr.Forbidden, "Not authorized to access this data")
	}
	return reading, nil
}

func parseReadingFilter(r *http.Request) (store.ReadingFilter, error) {
	q := r.URL.Query()
	var f store.ReadingFilter

	if v := strings.TrimSpace(q.Get("field_id")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, apperr.New(apperr.Validation, "invalid field_id")
		}
		f.FieldID = &id
	}
	f.DeviceID = strings.TrimSpace(q.Get("device_id"))
	if v := strings.TrimSpace(q.Get("maturity_status")); v != "" {
		status := store.MaturityStatus(v)
		f.Status = &status
	}
	if v := strings.TrimSpace(q.Get("start_date")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, apperr.New(apperr.Validation, "invalid start_date")
		}
		f.Start = &t
	}
	if v := strings.TrimSpace(q.Get("end_date")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, apperr.New(apperr.Validation, "invalid end_date")
		}
		f.End = &t
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Limit = n
		}
	}
	if v := strings.TrimSpace(q.Get("offset")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			f.Offset = n
		}
	}
	return f, nil
}
