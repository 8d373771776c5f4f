package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

func (r *Repo) CreateField(ctx context.Context, f *Field) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return errors.New("field.name is required")
	}
	if f.Status == "" {
		f.Status = FieldActive
	}
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *Repo) GetField(ctx context.Context, id uuid.UUID) (*Field, error) {
	var f Field
	if err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Repo) ListFields(ctx context.Context, visible Visibility) ([]Field, error) {
	var rows []Field
	err := r.db.WithContext(ctx).Scopes(visible).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repo) UpdateField(ctx context.Context, id uuid.UUID, patch map[string]any) (*Field, error) {
	if len(patch) == 0 {
		return r.GetField(ctx, id)
	}
	if v, ok := patch["name"].(string); ok {
		patch["name"] = strings.TrimSpace(v)
	}
	res := r.db.WithContext(ctx).Model(&Field{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return nil, res.Error
	}
	return r.GetField(ctx, id)
}

func (r *Repo) DeleteField(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&Field{}, "id = ?", id).Error
}

// CountActiveFields counts visible fields still marked active.
func (r *Repo) CountActiveFields(ctx context.Context, visible Visibility) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Field{}).Scopes(visible).
		Where("status = ?", FieldActive).
		Count(&n).Error
	return n, err
}
