// Package ingest is the write path: validate the payload, classify it,
// persist the enriched reading, then push it to live subscribers. The push is
// best-effort and strictly after the write; a broadcast failure never rolls
// back or fails an ingestion.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"agrisense-backend/internal/apperr"
	"agrisense-backend/internal/classifier"
	"agrisense-backend/internal/realtime"
	"agrisense-backend/internal/scope"
	"agrisense-backend/internal/store"
)

// Publisher is the fan-out seam. The websocket hub satisfies it; tests plug
// in fakes.
type Publisher interface {
	Publish(topic, eventType string, data any) error
}

type Service struct {
	Repo       *store.Repo
	Classifier classifier.Classifier
	Publisher  Publisher // optional; nil disables fan-out
}

type Payload struct {
	DeviceID       string         `json:"device_id"`
	FieldID        *uuid.UUID     `json:"field_id,omitempty"`
	SucroseLevel   *float64       `json:"sucrose_level,omitempty"`
	Temperature    *float64       `json:"temperature,omitempty"`
	Humidity       *float64       `json:"humidity,omitempty"`
	SoilMoisture   *float64       `json:"soil_moisture,omitempty"`
	Latitude       *float64       `json:"latitude,omitempty"`
	Longitude      *float64       `json:"longitude,omitempty"`
	ImageURL       string         `json:"image_url,omitempty"`
	LeafColorIndex *float64       `json:"leaf_color_index,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	RawData        datatypes.JSON `json:"raw_data,omitempty"`
}

// ReadingEvent is the minimal projection broadcast for each stored reading.
type ReadingEvent struct {
	ID             uuid.UUID            `json:"id"`
	DeviceID       string               `json:"device_id"`
	MaturityStatus store.MaturityStatus `json:"maturity_status"`
	MaturityScore  float64              `json:"maturity_score"`
	SucroseLevel   *float64             `json:"sucrose_level,omitempty"`
	Timestamp      time.Time            `json:"timestamp"`
}

// Ingest stores one reading on behalf of caller. The owner is always the
// caller; a field reference owned by someone else is rejected so a stored
// reading can never point at a field outside its owner's holdings.
func (s *Service) Ingest(ctx context.Context, caller scope.Caller, p Payload) (*store.Reading, error) {
	if p.DeviceID == "" {
		return nil, apperr.New(apperr.Validation, "Device ID is required")
	}

	if p.FieldID != nil {
		field, err := s.Repo.GetField(ctx, *p.FieldID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.Validation, "referenced field does not exist")
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.Storage, "field lookup failed", err)
		}
		if field.OwnerID != caller.OwnerID() {
			return nil, apperr.New(apperr.Validation, "referenced field belongs to another owner")
		}
	}

	verdict := s.Classifier.Classify(classifier.Input{
		SucroseLevel: p.SucroseLevel,
		Temperature:  p.Temperature,
		Humidity:     p.Humidity,
		SoilMoisture: p.SoilMoisture,
	})

	status := verdict.Status
	rec := &store.Reading{
		DeviceID:             p.DeviceID,
		OwnerID:              caller.OwnerID(),
		FieldID:              p.FieldID,
		SucroseLevel:         p.SucroseLevel,
		Temperature:          p.Temperature,
		Humidity:             p.Humidity,
		SoilMoisture:         p.SoilMoisture,
		MaturityScore:        &verdict.Score,
		MaturityStatus:       &status,
		PredictedHarvestDate: &verdict.PredictedHarvestDate,
		Latitude:             p.Latitude,
		Longitude:            p.Longitude,
		ImageURL:             p.ImageURL,
		LeafColorIndex:       p.LeafColorIndex,
		Notes:                p.Notes,
		RawData:              p.RawData,
	}

	if err := s.Repo.InsertReading(ctx, rec); err != nil {
		return nil, apperr.Wrap(apperr.Storage, "could not store reading", err)
	}

	s.broadcast(rec)
	return rec, nil
}

func (s *Service) broadcast(rec *store.Reading) {
	if s.Publisher == nil {
		return
	}
	ev := ReadingEvent{
		ID:           rec.ID,
		DeviceID:     rec.DeviceID,
		SucroseLevel: rec.SucroseLevel,
		Timestamp:    rec.CreatedAt,
	}
	if rec.MaturityStatus != nil {
		ev.MaturityStatus = *rec.MaturityStatus
	}
	if rec.MaturityScore != nil {
		ev.MaturityScore = *rec.MaturityScore
	}
	if err := s.Publisher.Publish(realtime.TopicReadings, "new_reading", ev); err != nil {
		berr := apperr.Wrap(apperr.Broadcast, "reading broadcast failed", err)
		slog.Warn("ingest broadcast dropped", "reading_id", rec.ID, "error", berr)
	}
}
