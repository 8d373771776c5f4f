// Package analytics builds the role-scoped dashboard statistics. Everything
// here is read-only and recomputed per query from current rows; nothing is
// cached or stored.
package analytics

import (
	"context"
	"math"
	"time"

	"agrisense-backend/internal/apperr"
	"agrisense-backend/internal/scope"
	"agrisense-backend/internal/store"
)

type Service struct {
	Repo *store.Repo
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type Stats struct {
	TotalReadings        int64                          `json:"total_readings"`
	ReadingsToday        int64                          `json:"readings_today"`
	FieldsReady          int64                          `json:"fields_ready"`
	ActiveFields         int64                          `json:"active_fields"`
	RecentActivity       int64                          `json:"recent_activity"`
	AverageSucroseLevel  float64                        `json:"average_sucrose_level"`
	MaturityDistribution map[store.MaturityStatus]int64 `json:"maturity_distribution"`
}

// Stats assembles the dashboard summary for the caller's scope.
func (s *Service) Stats(ctx context.Context, sc scope.Scope) (*Stats, error) {
	visible := sc.Rows

	total, err := s.Repo.CountReadings(ctx, visible, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "stats query failed", err)
	}

	now := s.now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.Repo.CountReadings(ctx, visible, &startOfToday)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "stats query failed", err)
	}

	weekAgo := now.AddDate(0, 0, -7)
	recent, err := s.Repo.CountReadings(ctx, visible, &weekAgo)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "stats query failed", err)
	}

	grouped, err := s.Repo.GroupCountByStatus(ctx, visible)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "stats query failed", err)
	}
	// Fixed keys: unknown or legacy status values are dropped, not added.
	dist := map[store.MaturityStatus]int64{
		store.MaturityImmature: 0,
		store.MaturityMaturing: 0,
		store.MaturityReady:    0,
		store.MaturityOverripe: 0,
	}
	for _, g := range grouped {
		if g.Status == nil {
			continue
		}
		if _, ok := dist[*g.Status]; ok {
			dist[*g.Status] = g.Count
		}
	}

	avg, err := s.Repo.AverageSucrose(ctx, visible)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "stats query failed", err)
	}

	activeFields, err := s.Repo.CountActiveFields(ctx, visible)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "stats query failed", err)
	}

	return &Stats{
		TotalReadings:        total,
		ReadingsToday:        today,
		FieldsReady:          dist[store.MaturityReady],
		ActiveFields:         activeFields,
		RecentActivity:       recent,
		AverageSucroseLevel:  avg,
		MaturityDistribution: dist,
	}, nil
}

type ChartSlice struct {
	Status     string  `json:"status"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// MaturityChart returns grouped status counts annotated with percentages.
// Null statuses land in an "unknown" bucket here, unlike the fixed-key
// distribution in Stats.
func (s *Service) MaturityChart(ctx context.Context, sc scope.Scope) ([]ChartSlice, error) {
	grouped, err := s.Repo.GroupCountByStatus(ctx, sc.Rows)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "maturity chart query failed", err)
	}

	slices := make([]ChartSlice, 0, len(grouped))
	var total int64
	for _, g := range grouped {
		status := "unknown"
		if g.Status != nil {
			status = string(*g.Status)
		}
		slices = append(slices, ChartSlice{Status: status, Count: g.Count})
		total += g.Count
	}
	for i := range slices {
		if total > 0 {
			slices[i].Percentage = round1(float64(slices[i].Count) / float64(total) * 100)
		}
	}
	return slices, nil
}

type TrendPoint struct {
	Date       string  `json:"date"`
	AvgSucrose float64 `json:"avg_sucrose"`
	Count      int64   `json:"count"`
}

// SucroseTrend averages sucrose per calendar date over the last days days
// (default 7). Only dates with readings appear; the series is ascending.
func (s *Service) SucroseTrend(ctx context.Context, sc scope.Scope, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = 7
	}
	since := s.now().AddDate(0, 0, -days)

	rows, err := s.Repo.SucroseTrend(ctx, sc.Rows, since)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "sucrose trend query failed", err)
	}

	points := make([]TrendPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, TrendPoint{
			Date:       row.Date,
			AvgSucrose: round2(row.AvgSucrose),
			Count:      row.Count,
		})
	}
	return points, nil
}

type EnvPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	Temperature  *float64  `json:"temperature"`
	Humidity     *float64  `json:"humidity,omitempty"`
	SoilMoisture *float64  `json:"soil_moisture,omitempty"`
}

// Environmental returns the latest 20 readings carrying a temperature value,
// in chronological order for charting.
func (s *Service) Environmental(ctx context.Context, sc scope.Scope) ([]EnvPoint, error) {
	rows, err := s.Repo.EnvironmentalReadings(ctx, sc.Rows, 20)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, "environmental query failed", err)
	}

	points := make([]EnvPoint, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		points = append(points, EnvPoint{
			Timestamp:    r.CreatedAt,
			Temperature:  r.Temperature,
			Humidity:     r.Humidity,
			SoilMoisture: r.SoilMoisture,
		})
	}
	return points, nil
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
