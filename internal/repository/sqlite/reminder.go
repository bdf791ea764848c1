package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
)

type reminderRepository struct {
	BaseRepository
}

func NewReminderRepository(base BaseRepository) repository.ReminderRepository {
	return &reminderRepository{base}
}

func upsertReminderTx(ctx context.Context, tx *sqlx.Tx, reminder *model.Reminder) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO reminders (
			id, type, case_id, title, description, due_date,
			completed, completed_at, previous_due_date, vaccination_id, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			case_id = excluded.case_id,
			title = excluded.title,
			description = excluded.description,
			due_date = excluded.due_date,
			completed = excluded.completed,
			completed_at = excluded.completed_at,
			previous_due_date = excluded.previous_due_date,
			vaccination_id = excluded.vaccination_id,
			last_updated = excluded.last_updated`,
		reminder.ID.String(),
		string(reminder.Type),
		reminder.CaseID.String(),
		reminder.Title,
		reminder.Description,
		toMillis(reminder.DueDate),
		reminder.Completed,
		toMillisPtr(reminder.CompletedAt),
		toMillisPtr(reminder.PreviousDueDate),
		uuidPtrToString(reminder.VaccinationID),
		reminder.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to put reminder: %w", err)
	}
	return nil
}

func (r *reminderRepository) Put(ctx context.Context, reminder *model.Reminder, outbox *model.OutboxEntry) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := upsertReminderTx(ctx, tx, reminder); err != nil {
			return err
		}
		return insertOutboxTx(ctx, tx, outbox)
	})
}

func (r *reminderRepository) PutBatch(ctx context.Context, reminders []*model.Reminder, entries []*model.OutboxEntry) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, reminder := range reminders {
			if err := upsertReminderTx(ctx, tx, reminder); err != nil {
				return err
			}
		}
		for _, entry := range entries {
			if err := insertOutboxTx(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

const reminderColumns = `id, type, case_id, title, description, due_date,
	completed, completed_at, previous_due_date, vaccination_id, last_updated`

func (r *reminderRepository) Get(ctx context.Context, id uuid.UUID) (*model.Reminder, error) {
	row := r.db.QueryRowxContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id.String())

	reminder, err := scanReminder(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("reminder", err)
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return reminder, nil
}

func (r *reminderRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*model.Reminder, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE case_id = ? ORDER BY due_date ASC`,
		caseID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()
	return collectReminders(rows)
}

func (r *reminderRepository) ListUpcoming(ctx context.Context, caseID uuid.UUID, from time.Time) ([]*model.Reminder, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE case_id = ? AND completed = 0 AND due_date >= ?
		 ORDER BY due_date ASC`,
		caseID.String(), toMillis(from))
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming reminders: %w", err)
	}
	defer rows.Close()
	return collectReminders(rows)
}

func collectReminders(rows *sqlx.Rows) ([]*model.Reminder, error) {
	var reminders []*model.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}

func scanReminder(row rowScanner) (*model.Reminder, error) {
	var (
		reminder    model.Reminder
		idStr       string
		typeStr     string
		caseIDStr   string
		dueMs       int64
		completedMs *int64
		prevMs      *int64
		vaccIDStr   *string
	)
	err := row.Scan(
		&idStr, &typeStr, &caseIDStr, &reminder.Title, &reminder.Description,
		&dueMs, &reminder.Completed, &completedMs, &prevMs, &vaccIDStr,
		&reminder.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	if reminder.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if reminder.CaseID, err = uuid.Parse(caseIDStr); err != nil {
		return nil, err
	}
	if reminder.VaccinationID, err = uuidPtrFromString(vaccIDStr); err != nil {
		return nil, err
	}
	reminder.Type = model.ReminderType(typeStr)
	reminder.DueDate = fromMillis(dueMs)
	reminder.CompletedAt = fromMillisPtr(completedMs)
	reminder.PreviousDueDate = fromMillisPtr(prevMs)
	return &reminder, nil
}
