package model

import (
	"time"

	"github.com/google/uuid"
)

// PregnancyCase tracks an expected delivery. UserID is nullable: a health
// worker may register a case for an offline household with no profile.
type PregnancyCase struct {
	Syncable
	UserID               *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	SubjectName          string     `json:"subject_name" db:"subject_name" validate:"required"`
	ExpectedDeliveryDate time.Time  `json:"expected_delivery_date" db:"expected_delivery_date" validate:"required"`
	RegisteredBy         string     `json:"registered_by" db:"registered_by"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
}

// ChildRecord tracks a child's vaccination schedule. UserID is nullable
// for the same reason as PregnancyCase.
type ChildRecord struct {
	Syncable
	UserID       *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	ChildName    string     `json:"child_name" db:"child_name" validate:"required"`
	BirthDate    time.Time  `json:"birth_date" db:"birth_date" validate:"required"`
	RegisteredBy string     `json:"registered_by" db:"registered_by"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
