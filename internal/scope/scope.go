// Package scope derives the row-visibility predicate from the caller
// identity. Ingestion and every aggregation query go through the same
// resolver so the ownership rule lives in exactly one place.
package scope

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"agrisense-backend/internal/roles"
)

// Caller is the already-verified identity supplied by the auth layer.
type Caller struct {
	ID   uuid.UUID
	Role string
}

// Scope is an immutable predicate over owner-keyed rows. Admins see every
// row; any other role value, recognized or not, is restricted to its own.
type Scope struct {
	caller Caller
	all    bool
}

func For(c Caller) Scope {
	return Scope{caller: c, all: c.Role == roles.Admin}
}

// Rows is a gorm scope restricting a query to the caller's visible rows.
// It applies to any table with an owner_id column.
func (s Scope) Rows(db *gorm.DB) *gorm.DB {
	if s.all {
		return db
	}
	return db.Where("owner_id = ?", s.caller.OwnerID())
}

// AllowsOwner reports whether the caller may touch a row owned by owner.
func (s Scope) AllowsOwner(owner uuid.UUID) bool {
	return s.all || owner == s.caller.ID
}

func (s Scope) Admin() bool { return s.all }

// OwnerID is the id rows created by this caller are stamped with.
func (c Caller) OwnerID() uuid.UUID { return c.ID }
