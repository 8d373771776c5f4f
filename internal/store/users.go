package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

func (r *Repo) CreateUser(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	u.Name = strings.TrimSpace(u.Name)
	if u.Email == "" || u.Name == "" {
		return errors.New("user.email and user.name are required")
	}
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repo) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	email = strings.TrimSpace(strings.ToLower(email))
	if err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) ListUsers(ctx context.Context) ([]User, error) {
	var rows []User
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *Repo) UpdateUser(ctx context.Context, id uuid.UUID, patch map[string]any) (*User, error) {
	if len(patch) == 0 {
		return r.GetUser(ctx, id)
	}
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return nil, res.Error
	}
	return r.GetUser(ctx, id)
}

func (r *Repo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&User{}, "id = ?", id).Error
}
