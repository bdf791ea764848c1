package model

import (
	"time"

	"github.com/google/uuid"
)

type ReminderType string

const (
	ReminderMaternalCheckup     ReminderType = "maternal_checkup"
	ReminderMaternalVaccination ReminderType = "maternal_vaccination"
	ReminderMaternalNutrition   ReminderType = "maternal_nutrition"
	ReminderChildVaccination    ReminderType = "child_vaccination"
	ReminderChildCheckup        ReminderType = "child_checkup"
)

// Reminder is a single date-driven event owned by a pregnancy case or a
// child record. DueDate is fixed at creation; a reschedule logs the prior
// date into PreviousDueDate and clears completion state.
type Reminder struct {
	Syncable
	Type            ReminderType `json:"type" db:"type"`
	CaseID          uuid.UUID    `json:"case_id" db:"case_id"`
	Title           string       `json:"title" db:"title"`
	Description     string       `json:"description" db:"description"`
	DueDate         time.Time    `json:"due_date" db:"due_date"`
	Completed       bool         `json:"completed" db:"completed"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
	PreviousDueDate *time.Time   `json:"previous_due_date,omitempty" db:"previous_due_date"`
	// VaccinationID links a child-vaccination reminder to its record so
	// completion marks the dose administered.
	VaccinationID *uuid.UUID `json:"vaccination_id,omitempty" db:"vaccination_id"`
}

// VaccinationRecord tracks one scheduled dose for a child.
type VaccinationRecord struct {
	Syncable
	ChildID          uuid.UUID  `json:"child_id" db:"child_id"`
	VaccineName      string     `json:"vaccine_name" db:"vaccine_name" validate:"required"`
	ScheduledDate    time.Time  `json:"scheduled_date" db:"scheduled_date"`
	Administered     bool       `json:"administered" db:"administered"`
	AdministeredDate *time.Time `json:"administered_date,omitempty" db:"administered_date"`
}
