package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityType names a syncable table. The sync protocol and the outbox key
// every payload by this value.
type EntityType string

const (
	EntityHealthcareCenter  EntityType = "healthcare_center"
	EntityEmergencyContact  EntityType = "emergency_contact"
	EntityHealthScheme      EntityType = "health_scheme"
	EntityUserProfile       EntityType = "user_profile"
	EntityPregnancyCase     EntityType = "pregnancy_case"
	EntityChildRecord       EntityType = "child_record"
	EntityReminder          EntityType = "reminder"
	EntityVaccinationRecord EntityType = "vaccination_record"
)

// ReferenceTypes are owned by the remote authority and only ever
// overwritten locally by the download pass.
var ReferenceTypes = []EntityType{
	EntityHealthcareCenter,
	EntityEmergencyContact,
	EntityHealthScheme,
}

// IsReference reports whether the type has no local mutation path.
func (t EntityType) IsReference() bool {
	for _, rt := range ReferenceTypes {
		if t == rt {
			return true
		}
	}
	return false
}

// Syncable contains common fields for every entity that crosses the wire.
// LastUpdated is a logical timestamp in Unix milliseconds: server-assigned
// on download, device clock on local mutation.
type Syncable struct {
	ID          uuid.UUID `json:"id" db:"id"`
	LastUpdated int64     `json:"last_updated" db:"last_updated"`
}

// Touch stamps the entity with the device clock.
func (s *Syncable) Touch(now time.Time) {
	s.LastUpdated = now.UTC().UnixMilli()
}
