package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Visibility is the row predicate produced by the access scope resolver,
// applied as a gorm scope to every owner-keyed query.
type Visibility = func(*gorm.DB) *gorm.DB

type ReadingFilter struct {
	FieldID  *uuid.UUID
	DeviceID string
	Status   *MaturityStatus
	Start    *time.Time
	End      *time.Time
	Limit    int
	Offset   int
}

const defaultListLimit = 100

func (r *Repo) InsertReading(ctx context.Context, rec *Reading) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *Repo) GetReading(ctx context.Context, id uuid.UUID) (*Reading, error) {
	var rec Reading
	err := r.db.WithContext(ctx).Preload("Field").First(&rec, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) DeleteReading(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&Reading{}, "id = ?", id).Error
}

func (r *Repo) ListReadings(ctx context.Context, visible Visibility, f ReadingFilter) ([]Reading, int64, error) {
	q := r.db.WithContext(ctx).Model(&Reading{}).Scopes(visible)
	if f.FieldID != nil {
		q = q.Where("field_id = ?", *f.FieldID)
	}
	if f.DeviceID != "" {
		q = q.Where("device_id = ?", f.DeviceID)
	}
	if f.Status != nil {
		q = q.Where("maturity_status = ?", *f.Status)
	}
	if f.Start != nil {
		q = q.Where("created_at >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where("created_at <= ?", *f.End)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var rows []Reading
	err := q.Preload("Field").
		Order("created_at DESC").
		Limit(limit).
		Offset(f.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repo) LatestReadings(ctx context.Context, visible Visibility, limit int) ([]Reading, error) {
	var rows []Reading
	err := r.db.WithContext(ctx).Scopes(visible).
		Preload("Field").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repo) DeviceReadings(ctx context.Context, visible Visibility, deviceID string, limit int) ([]Reading, error) {
	var rows []Reading
	err := r.db.WithContext(ctx).Scopes(visible).
		Where("device_id = ?", deviceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// CountReadings counts visible readings, optionally only those at or after
// since.
func (r *Repo) CountReadings(ctx context.Context, visible Visibility, since *time.Time) (int64, error) {
	q := r.db.WithContext(ctx).Model(&Reading{}).Scopes(visible)
	if since != nil {
		q = q.Where("created_at >= ?", *since)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (r *Repo) CountByStatus(ctx context.Context, visible Visibility, status MaturityStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Reading{}).Scopes(visible).
		Where("maturity_status = ?", status).
		Count(&n).Error
	return n, err
}

type StatusCount struct {
	Status *MaturityStatus `gorm:"column:status"`
	Count  int64           `gorm:"column:count"`
}

func (r *Repo) GroupCountByStatus(ctx context.Context, visible Visibility) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).Model(&Reading{}).Scopes(visible).
		Select("maturity_status AS status, COUNT(id) AS count").
		Group("maturity_status").
		Scan(&rows).Error
	return rows, err
}

// AverageSucrose returns the mean of non-null sucrose levels in scope, zero
// when no rows qualify.
func (r *Repo) AverageSucrose(ctx context.Context, visible Visibility) (float64, error) {
	var avg sql.NullFloat64
	err := r.db.WithContext(ctx).Model(&Reading{}).Scopes(visible).
		Where("sucrose_level IS NOT NULL").
		Select("AVG(sucrose_level)").
		Scan(&avg).Error
	if err != nil || !avg.Valid {
		return 0, err
	}
	return avg.Float64, nil
}

type TrendRow struct {
	Date       string  `gorm:"column:date"` // YYYY-MM-DD
	AvgSucrose float64 `gorm:"column:avg_sucrose"`
	Count      int64   `gorm:"column:count"`
}

// SucroseTrend groups non-null sucrose readings since the cutoff by calendar
// date, ascending. Dates with no readings simply do not appear. The date is
// cast to text so sqlite and postgres scan identically.
func (r *Repo) SucroseTrend(ctx context.Context, visible Visibility, since time.Time) ([]TrendRow, error) {
	var rows []TrendRow
	err := r.db.WithContext(ctx).Model(&Reading{}).Scopes(visible).
		Where("created_at >= ? AND sucrose_level IS NOT NULL", since).
		Select("CAST(DATE(created_at) AS TEXT) AS date, AVG(sucrose_level) AS avg_sucrose, COUNT(id) AS count").
		Group("DATE(created_at)").
		Order("DATE(created_at) ASC").
		Scan(&rows).Error
	return rows, err
}

// EnvironmentalReadings returns the newest readings carrying a temperature
// value, newest first.
func (r *Repo) EnvironmentalReadings(ctx context.Context, visible Visibility, limit int) ([]Reading, error) {
	var rows []Reading
	err := r.db.WithContext(ctx).Scopes(visible).
		Where("temperature IS NOT NULL").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repo) ReadingsWithStatusSince(ctx context.Context, visible Visibility, status MaturityStatus, since time.Time, limit int) ([]Reading, error) {
	var rows []Reading
	err := r.db.WithContext(ctx).Scopes(visible).
		Where("maturity_status = ? AND created_at >= ?", status, since).
		Preload("Field").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repo) LowSucroseSince(ctx context.Context, visible Visibility, threshold float64, since time.Time, limit int) ([]Reading, error) {
	var rows []Reading
	err := r.db.WithContext(ctx).Scopes(visible).
		Where("sucrose_level < ? AND created_at >= ?", threshold, since).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
