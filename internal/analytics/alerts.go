package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"agrisense-backend/internal/apperr"
	"agrisense-backend/internal/scope"
	"agrisense-backend/internal/store"
)

// Alert is ephemeral: derived from recent readings on every query, never
// persisted or versioned.
type Alert struct {
	Type      string         `json:"type"`     // success | warning | info
	Priority  string         `json:"priority"` // high | medium
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

const lowSucroseThreshold = 10

// Alerts derives the notification list for the caller's scope: harvest-ready
// readings from the last 24 hours, an aggregate overripe warning, and up to
// five recent low-sucrose observations, newest first.
func (s *Service) Alerts(ctx context.Context, sc scope.Scope) ([]Alert, error) {
	visible := sc.Rows
	now := s.now()
	dayAgo := now.Add(-24 * time.Hour)

	alerts := []Alert{}

	ready, err := s.Repo.ReadingsWithStatusSince(ctx, visible, store.MaturityReady, dayAgo, 10)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "alerts query failed", err)
	}
	for _, r := range ready {
		fieldName := "Field"
		if r.Field != nil && r.Field.Name != "" {
			fieldName = r.Field.Name
		}
		score := 0.0
		if r.MaturityScore != nil {
			score = *r.MaturityScore
		}
		data := map[string]any{}
		if r.FieldID != nil {
			data["field_id"] = *r.FieldID
		}
		if r.SucroseLevel != nil {
			data["sucrose_level"] = *r.SucroseLevel
		}
		alerts = append(alerts, Alert{
			Type:      "success",
			Priority:  "high",
			Title:     "Ready for Harvest",
			Message:   fmt.Sprintf("%s has reached optimal maturity (%.0f%% score)", fieldName, score),
			Timestamp: r.CreatedAt,
			Data:      data,
		})
	}

	overripe, err := s.Repo.CountByStatus(ctx, visible, store.MaturityOverripe)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "alerts query failed", err)
	}
	if overripe > 0 {
		alerts = append(alerts, Alert{
			Type:      "warning",
			Priority:  "high",
			Title:     "Overripe Crops Detected",
			Message:   fmt.Sprintf("%d field(s) showing overripe status. Immediate action recommended.", overripe),
			Timestamp: now,
		})
	}

	lowSucrose, err := s.Repo.LowSucroseSince(ctx, visible, lowSucroseThreshold, dayAgo, 5)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "alerts query failed", err)
	}
	for _, r := range lowSucrose {
		level := 0.0
		if r.SucroseLevel != nil {
			level = *r.SucroseLevel
		}
		alerts = append(alerts, Alert{
			Type:      "info",
			Priority:  "medium",
			Title:     "Low Sucrose Detected",
			Message:   fmt.Sprintf("Sucrose level at %.1f%% - Monitor field conditions", level),
			Timestamp: r.CreatedAt,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Timestamp.After(alerts[j].Timestamp)
	})
	return alerts, nil
}
