package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"agrisense-backend/internal/apperr"
	"agrisense-backend/internal/auth"
	"agrisense-backend/internal/scope"
	"agrisense-backend/internal/store"
)

type fieldRequest struct {
	Name                string     `json:"name"`
	Location            string     `json:"location,omitempty"`
	Area                *float64   `json:"area,omitempty"`
	CaneVariety         string     `json:"cane_variety,omitempty"`
	PlantingDate        *time.Time `json:"planting_date,omitempty"`
	ExpectedHarvestDate *time.Time `json:"expected_harvest_date,omitempty"`
	SoilType            string     `json:"soil_type,omitempty"`
	IrrigationType      string     `json:"irrigation_type,omitempty"`
	Status              string     `json:"status,omitempty"`
	Notes               string     `json:"notes,omitempty"`
}

type fieldPatch struct {
	Name                *string    `json:"name,omitempty"`
	Location            *string    `json:"location,omitempty"`
	Area                *float64   `json:"area,omitempty"`
	CaneVariety         *string    `json:"cane_variety,omitempty"`
	PlantingDate        *time.Time `json:"planting_date,omitempty"`
	ExpectedHarvestDate *time.Time `json:"expected_harvest_date,omitempty"`
	SoilType            *string    `json:"soil_type,omitempty"`
	IrrigationType      *string    `json:"irrigation_type,omitempty"`
	Status              *string    `json:"status,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
}

func validFieldStatus(v string) bool {
	switch store.FieldStatus(v) {
	case store.FieldActive, store.FieldHarvested, store.FieldInactive:
		return true
	}
	return false
}

func (s *Server) handleFieldsCreate(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)

	var req fieldRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeFailure(w, apperr.New(apperr.Validation, "field name is required"))
		return
	}
	status := store.FieldActive
	if req.Status != "" {
		if !validFieldStatus(req.Status) {
			writeFailure(w, apperr.New(apperr.Validation, "invalid field status"))
			return
		}
		status = store.FieldStatus(req.Status)
	}

	field := &store.Field{
		OwnerID:             caller.OwnerID(),
		Name:                req.Name,
		Location:            req.Location,
		Area:                req.Area,
		CaneVariety:         req.CaneVariety,
		PlantingDate:        req.PlantingDate,
		ExpectedHarvestDate: req.ExpectedHarvestDate,
		SoilType:            req.SoilType,
		IrrigationType:      req.IrrigationType,
		Status:              status,
		Notes:               req.Notes,
	}
	if err := s.repo.CreateField(r.Context(), field); err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not create field", err))
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"field": field})
}

func (s *Server) handleFieldsList(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	fields, err := s.repo.ListFields(r.Context(), scope.For(caller).Rows)
	if err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not query fields", err))
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"fields": fields})
}

func (s *Server) handleFieldsGet(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	id, err := parseUUIDParam(r, "field_id")
	if err != nil {
		writeFailure(w, err)
		return
	}
	field, err := s.visibleField(r, caller, id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"field": field})
}

func (s *Server) handleFieldsPatch(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	id, err := parseUUIDParam(r, "field_id")
	if err != nil {
		writeFailure(w, err)
		return
	}
	if _, err := s.visibleField(r, caller, id); err != nil {
		writeFailure(w, err)
		return
	}

	var req fieldPatch
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, apperr.New(apperr.Validation, "invalid request body"))
		return
	}

	patch := map[string]any{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			writeFailure(w, apperr.New(apperr.Validation, "field name cannot be empty"))
			return
		}
		patch["name"] = *req.Name
	}
	if req.Location != nil {
		patch["location"] = *req.Location
	}
	if req.Area != nil {
		patch["area"] = *req.Area
	}
	if req.CaneVariety != nil {
		patch["cane_variety"] = *req.CaneVariety
	}
	if req.PlantingDate != nil {
		patch["planting_date"] = *req.PlantingDate
	}
	if req.ExpectedHarvestDate != nil {
		patch["expected_harvest_date"] = *req.ExpectedHarvestDate
	}
	if req.SoilType != nil {
		patch["soil_type"] = *req.SoilType
	}
	if req.IrrigationType != nil {
		patch["irrigation_type"] = *req.IrrigationType
	}
	if req.Status != nil {
		if !validFieldStatus(*req.Status) {
			writeFailure(w, apperr.New(apperr.Validation, "invalid field status"))
			return
		}
		patch["status"] = *req.Status
	}
	if req.Notes != nil {
		patch["notes"] = *req.Notes
	}

	field, err := s.repo.UpdateField(r.Context(), id, patch)
	if err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not update field", err))
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"field": field})
}

func (s *Server) handleFieldsDelete(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	id, err := parseUUIDParam(r, "field_id")
	if err != nil {
		writeFailure(w, err)
		return
	}
	if _, err := s.visibleField(r, caller, id); err != nil {
		writeFailure(w, err)
		return
	}
	if err := s.repo.DeleteField(r.Context(), id); err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not delete field", err))
		return
	}
	writeMessage(w, http.StatusOK, "Field deleted successfully", nil)
}

func (s *Server) visibleField(r *http.Request, caller scope.Caller, id uuid.UUID) (*store.Field, error) {
	field, err := s.repo.GetField(r.Context(), id)
	if err != nil {
		return nil, apperr.Wrap(apperr.NotFound, "Field not found", err)
	}
	if !scope.For(caller).AllowsOwner(field.OwnerID) {
		return nil, apperr.New(apperr.Forbidden, "Not authorized to access this field")
	}
	return field, nil
}
