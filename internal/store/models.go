package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MaturityStatus is the categorical crop-readiness label assigned at ingest
// time. It is never recomputed after a reading has been written.
type MaturityStatus string

const (
	MaturityImmature MaturityStatus = "immature"
	MaturityMaturing MaturityStatus = "maturing"
	MaturityReady    MaturityStatus = "ready"
	MaturityOverripe MaturityStatus = "overripe"
)

type FieldStatus string

const (
	FieldActive    FieldStatus = "active"
	FieldHarvested FieldStatus = "harvested"
	FieldInactive  FieldStatus = "inactive"
)

// Reading is one sensor observation. Raw measurements are pointers: nil means
// the sensor did not report that value this cycle, not zero.
type Reading struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID string     `gorm:"index:idx_readings_device" json:"device_id"`
	OwnerID  uuid.UUID  `gorm:"type:uuid;index:idx_readings_owner" json:"owner_id"`
	FieldID  *uuid.UUID `gorm:"type:uuid;index:idx_readings_field" json:"field_id,omitempty"`

	SucroseLevel *float64 `json:"sucrose_level,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	SoilMoisture *float64 `json:"soil_moisture,omitempty"`

	// Written once by the classifier at creation, immutable afterwards.
	MaturityScore        *float64        `json:"maturity_score,omitempty"`
	MaturityStatus       *MaturityStatus `gorm:"index:idx_readings_status" json:"maturity_status,omitempty"`
	PredictedHarvestDate *time.Time      `json:"predicted_harvest_date,omitempty"`

	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
	LeafColorIndex *float64 `json:"leaf_color_index,omitempty"`

	Notes   string         `json:"notes,omitempty"`
	RawData datatypes.JSON `json:"raw_data,omitempty"`

	Field *Field `gorm:"foreignKey:FieldID" json:"field,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_readings_created" json:"created_at"`
}

// Field is a cultivated plot owned by exactly one user.
type Field struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;index:idx_fields_owner" json:"owner_id"`

	Name                string      `json:"name"`
	Location            string      `json:"location,omitempty"`
	Area                *float64    `json:"area,omitempty"`
	CaneVariety         string      `json:"cane_variety,omitempty"`
	PlantingDate        *time.Time  `json:"planting_date,omitempty"`
	ExpectedHarvestDate *time.Time  `json:"expected_harvest_date,omitempty"`
	SoilType            string      `json:"soil_type,omitempty"`
	IrrigationType      string      `json:"irrigation_type,omitempty"`
	Status              FieldStatus `gorm:"index:idx_fields_status" json:"status"`
	Notes               string      `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `json:"name"`
	Email        string    `gorm:"uniqueIndex:idx_users_email" json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
