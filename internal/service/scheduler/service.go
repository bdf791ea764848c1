// Package scheduler generates and maintains the date-driven reminder
// schedules attached to pregnancy cases and child records.
//
// Reminder lifecycle: scheduled -> due -> completed, or scheduled -> due
// -> rescheduled -> due with a new date. A reschedule produces a fresh
// scheduled reminder with the prior due date logged for audit; completed
// reminders are immutable history.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
	"github.com/gramseva/swasthya-sahayak/pkg/validator"
)

type Service struct {
	cases        repository.CaseRepository
	reminders    repository.ReminderRepository
	vaccinations repository.VaccinationRepository
	validate     validator.Validator
	logger       *logger.Logger
	now          func() time.Time
}

func NewService(
	cases repository.CaseRepository,
	reminders repository.ReminderRepository,
	vaccinations repository.VaccinationRepository,
	validate validator.Validator,
	log *logger.Logger,
) *Service {
	return &Service{
		cases:        cases,
		reminders:    reminders,
		vaccinations: vaccinations,
		validate:     validate,
		logger:       log.WithComponent("scheduler"),
		now:          time.Now,
	}
}

// RegisterPregnancy persists the case and generates its one reminder
// schedule. The case write and the schedule write each carry their own
// outbox entries, enqueued in the same transaction as the entities.
func (s *Service) RegisterPregnancy(ctx context.Context, c *model.PregnancyCase) ([]*model.Reminder, error) {
	if c.ExpectedDeliveryDate.IsZero() {
		return nil, apperrors.Validation("expected delivery date is required", nil)
	}
	if err := s.validate.Validate(c); err != nil {
		return nil, err
	}

	now := s.now()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now.UTC()
	}
	c.Touch(now)

	entry, err := model.NewOutboxEntry(model.EntityPregnancyCase, c.ID, model.OpCreate, c, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot pregnancy case: %w", err)
	}
	if err := s.cases.PutPregnancy(ctx, c, entry); err != nil {
		return nil, fmt.Errorf("failed to store pregnancy case: %w", err)
	}

	reminders := BuildPregnancySchedule(c.ID, c.ExpectedDeliveryDate, now)
	entries, err := outboxForReminders(reminders)
	if err != nil {
		return nil, err
	}
	if err := s.reminders.PutBatch(ctx, reminders, entries); err != nil {
		return nil, fmt.Errorf("failed to store pregnancy schedule: %w", err)
	}

	s.logger.Info("registered pregnancy case",
		"case_id", c.ID.String(), "reminders", len(reminders))
	return reminders, nil
}

// RegisterChild persists the record and generates its one vaccination
// schedule: a VaccinationRecord plus linked Reminder per scheduled dose.
func (s *Service) RegisterChild(ctx context.Context, c *model.ChildRecord) ([]*model.Reminder, []*model.VaccinationRecord, error) {
	if c.BirthDate.IsZero() {
		return nil, nil, apperrors.Validation("birth date is required", nil)
	}
	now := s.now()
	if c.BirthDate.After(now) {
		return nil, nil, apperrors.Validation("birth date cannot be in the future", nil)
	}
	if err := s.validate.Validate(c); err != nil {
		return nil, nil, err
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now.UTC()
	}
	c.Touch(now)

	entry, err := model.NewOutboxEntry(model.EntityChildRecord, c.ID, model.OpCreate, c, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to snapshot child record: %w", err)
	}
	if err := s.cases.PutChild(ctx, c, entry); err != nil {
		return nil, nil, fmt.Errorf("failed to store child record: %w", err)
	}

	reminders, records := BuildChildSchedule(c.ID, c.BirthDate, now)

	recordEntries := make([]*model.OutboxEntry, 0, len(records))
	for _, record := range records {
		e, err := model.NewOutboxEntry(model.EntityVaccinationRecord, record.ID, model.OpCreate, record, 0)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to snapshot vaccination record: %w", err)
		}
		recordEntries = append(recordEntries, e)
	}
	if err := s.vaccinations.PutBatch(ctx, records, recordEntries); err != nil {
		return nil, nil, fmt.Errorf("failed to store vaccination schedule: %w", err)
	}

	reminderEntries, err := outboxForReminders(reminders)
	if err != nil {
		return nil, nil, err
	}
	if err := s.reminders.PutBatch(ctx, reminders, reminderEntries); err != nil {
		return nil, nil, fmt.Errorf("failed to store child schedule: %w", err)
	}

	s.logger.Info("registered child record",
		"child_id", c.ID.String(), "doses", len(records))
	return reminders, records, nil
}

// MarkComplete completes a reminder and, for vaccination reminders, marks
// the linked dose administered. A second call returns AlreadyCompleted
// with no state change: callers can detect the duplicate, and the effect
// stays idempotent.
func (s *Service) MarkComplete(ctx context.Context, reminderID uuid.UUID, completedAt time.Time) error {
	reminder, err := s.reminders.Get(ctx, reminderID)
	if err != nil {
		return err
	}
	if reminder.Completed {
		return apperrors.AlreadyCompleted("reminder")
	}

	base := reminder.LastUpdated
	completed := completedAt.UTC()
	reminder.Completed = true
	reminder.CompletedAt = &completed
	reminder.Touch(s.now())

	entry, err := model.NewOutboxEntry(model.EntityReminder, reminder.ID, model.OpUpdate, reminder, base)
	if err != nil {
		return fmt.Errorf("failed to snapshot reminder: %w", err)
	}
	if err := s.reminders.Put(ctx, reminder, entry); err != nil {
		return fmt.Errorf("failed to complete reminder: %w", err)
	}

	if reminder.VaccinationID != nil {
		if err := s.markAdministered(ctx, *reminder.VaccinationID, completed); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) markAdministered(ctx context.Context, vaccinationID uuid.UUID, administeredAt time.Time) error {
	record, err := s.vaccinations.Get(ctx, vaccinationID)
	if err != nil {
		return err
	}
	if record.Administered {
		return nil
	}

	base := record.LastUpdated
	record.Administered = true
	record.AdministeredDate = &administeredAt
	record.Touch(s.now())

	entry, err := model.NewOutboxEntry(model.EntityVaccinationRecord, record.ID, model.OpUpdate, record, base)
	if err != nil {
		return fmt.Errorf("failed to snapshot vaccination record: %w", err)
	}
	if err := s.vaccinations.Put(ctx, record, entry); err != nil {
		return fmt.Errorf("failed to mark dose administered: %w", err)
	}
	return nil
}

// Reschedule moves a reminder to a new due date, logging the prior date
// and clearing completion state. Completed reminders are immutable
// history and always fail.
func (s *Service) Reschedule(ctx context.Context, reminderID uuid.UUID, newDueDate time.Time) error {
	reminder, err := s.reminders.Get(ctx, reminderID)
	if err != nil {
		return err
	}
	if reminder.Completed {
		return apperrors.AlreadyCompleted("reminder")
	}

	base := reminder.LastUpdated
	prior := reminder.DueDate
	reminder.PreviousDueDate = &prior
	reminder.DueDate = newDueDate.UTC()
	reminder.Completed = false
	reminder.CompletedAt = nil
	reminder.Touch(s.now())

	entry, err := model.NewOutboxEntry(model.EntityReminder, reminder.ID, model.OpUpdate, reminder, base)
	if err != nil {
		return fmt.Errorf("failed to snapshot reminder: %w", err)
	}
	if err := s.reminders.Put(ctx, reminder, entry); err != nil {
		return fmt.Errorf("failed to reschedule reminder: %w", err)
	}

	s.logger.Info("rescheduled reminder",
		"reminder_id", reminder.ID.String(),
		"previous_due", prior.Format(time.DateOnly),
		"new_due", reminder.DueDate.Format(time.DateOnly))
	return nil
}

// GetUpcoming returns all non-completed reminders for the owner with due
// date at or after from, ordered by due date ascending.
func (s *Service) GetUpcoming(ctx context.Context, ownerID uuid.UUID, from time.Time) ([]*model.Reminder, error) {
	return s.reminders.ListUpcoming(ctx, ownerID, from)
}

func outboxForReminders(reminders []*model.Reminder) ([]*model.OutboxEntry, error) {
	entries := make([]*model.OutboxEntry, 0, len(reminders))
	for _, reminder := range reminders {
		e, err := model.NewOutboxEntry(model.EntityReminder, reminder.ID, model.OpCreate, reminder, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot reminder: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
