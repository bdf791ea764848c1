package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
)

type caseRepository struct {
	BaseRepository
}

func NewCaseRepository(base BaseRepository) repository.CaseRepository {
	return &caseRepository{base}
}

func (r *caseRepository) PutPregnancy(ctx context.Context, c *model.PregnancyCase, outbox *model.OutboxEntry) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pregnancy_cases (
				id, user_id, subject_name, expected_delivery_date,
				registered_by, created_at, last_updated
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				user_id = excluded.user_id,
				subject_name = excluded.subject_name,
				expected_delivery_date = excluded.expected_delivery_date,
				registered_by = excluded.registered_by,
				last_updated = excluded.last_updated`,
			c.ID.String(),
			uuidPtrToString(c.UserID),
			c.SubjectName,
			toMillis(c.ExpectedDeliveryDate),
			c.RegisteredBy,
			toMillis(c.CreatedAt),
			c.LastUpdated,
		)
		if err != nil {
			return fmt.Errorf("failed to put pregnancy case: %w", err)
		}
		return insertOutboxTx(ctx, tx, outbox)
	})
}

func (r *caseRepository) GetPregnancy(ctx context.Context, id uuid.UUID) (*model.PregnancyCase, error) {
	row := r.db.QueryRowxContext(ctx, `
		SELECT id, user_id, subject_name, expected_delivery_date,
			registered_by, created_at, last_updated
		FROM pregnancy_cases WHERE id = ?`, id.String())

	c, err := scanPregnancy(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("pregnancy case", err)
		}
		return nil, fmt.Errorf("failed to get pregnancy case: %w", err)
	}
	return c, nil
}

func (r *caseRepository) ListPregnancies(ctx context.Context, userID *uuid.UUID) ([]*model.PregnancyCase, error) {
	query := `
		SELECT id, user_id, subject_name, expected_delivery_date,
			registered_by, created_at, last_updated
		FROM pregnancy_cases`
	args := []interface{}{}
	if userID != nil {
		query += ` WHERE user_id = ?`
		args = append(args, userID.String())
	}
	query += ` ORDER BY expected_delivery_date ASC`

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pregnancy cases: %w", err)
	}
	defer rows.Close()

	var cases []*model.PregnancyCase
	for rows.Next() {
		c, err := scanPregnancy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pregnancy case: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// DeletePregnancy removes the case and its reminders in one transaction.
// Reminders are owned by the case, so they go with it.
func (r *caseRepository) DeletePregnancy(ctx context.Context, id uuid.UUID, outbox *model.OutboxEntry) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE case_id = ?`, id.String()); err != nil {
			return fmt.Errorf("failed to delete case reminders: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM pregnancy_cases WHERE id = ?`, id.String()); err != nil {
			return fmt.Errorf("failed to delete pregnancy case: %w", err)
		}
		return insertOutboxTx(ctx, tx, outbox)
	})
}

func (r *caseRepository) PutChild(ctx context.Context, c *model.ChildRecord, outbox *model.OutboxEntry) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO child_records (
				id, user_id, child_name, birth_date,
				registered_by, created_at, last_updated
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				user_id = excluded.user_id,
				child_name = excluded.child_name,
				birth_date = excluded.birth_date,
				registered_by = excluded.registered_by,
				last_updated = excluded.last_updated`,
			c.ID.String(),
			uuidPtrToString(c.UserID),
			c.ChildName,
			toMillis(c.BirthDate),
			c.RegisteredBy,
			toMillis(c.CreatedAt),
			c.LastUpdated,
		)
		if err != nil {
			return fmt.Errorf("failed to put child record: %w", err)
		}
		return insertOutboxTx(ctx, tx, outbox)
	})
}

func (r *caseRepository) GetChild(ctx context.Context, id uuid.UUID) (*model.ChildRecord, error) {
	row := r.db.QueryRowxContext(ctx, `
		SELECT id, user_id, child_name, birth_date,
			registered_by, created_at, last_updated
		FROM child_records WHERE id = ?`, id.String())

	c, err := scanChild(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("child record", err)
		}
		return nil, fmt.Errorf("failed to get child record: %w", err)
	}
	return c, nil
}

func (r *caseRepository) ListChildren(ctx context.Context, userID *uuid.UUID) ([]*model.ChildRecord, error) {
	query := `
		SELECT id, user_id, child_name, birth_date,
			registered_by, created_at, last_updated
		FROM child_records`
	args := []interface{}{}
	if userID != nil {
		query += ` WHERE user_id = ?`
		args = append(args, userID.String())
	}
	query += ` ORDER BY birth_date ASC`

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list child records: %w", err)
	}
	defer rows.Close()

	var records []*model.ChildRecord
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child record: %w", err)
		}
		records = append(records, c)
	}
	return records, rows.Err()
}

// DeleteChild removes the record plus its reminders and vaccination
// records in one transaction.
func (r *caseRepository) DeleteChild(ctx context.Context, id uuid.UUID, outbox *model.OutboxEntry) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE case_id = ?`, id.String()); err != nil {
			return fmt.Errorf("failed to delete child reminders: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vaccination_records WHERE child_id = ?`, id.String()); err != nil {
			return fmt.Errorf("failed to delete vaccination records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM child_records WHERE id = ?`, id.String()); err != nil {
			return fmt.Errorf("failed to delete child record: %w", err)
		}
		return insertOutboxTx(ctx, tx, outbox)
	})
}

func scanPregnancy(row rowScanner) (*model.PregnancyCase, error) {
	var (
		c         model.PregnancyCase
		idStr     string
		userIDStr *string
		eddMs     int64
		createdMs int64
	)
	err := row.Scan(&idStr, &userIDStr, &c.SubjectName, &eddMs, &c.RegisteredBy, &createdMs, &c.LastUpdated)
	if err != nil {
		return nil, err
	}
	if c.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if c.UserID, err = uuidPtrFromString(userIDStr); err != nil {
		return nil, err
	}
	c.ExpectedDeliveryDate = fromMillis(eddMs)
	c.CreatedAt = fromMillis(createdMs)
	return &c, nil
}

func scanChild(row rowScanner) (*model.ChildRecord, error) {
	var (
		c         model.ChildRecord
		idStr     string
		userIDStr *string
		birthMs   int64
		createdMs int64
	)
	err := row.Scan(&idStr, &userIDStr, &c.ChildName, &birthMs, &c.RegisteredBy, &createdMs, &c.LastUpdated)
	if err != nil {
		return nil, err
	}
	if c.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if c.UserID, err = uuidPtrFromString(userIDStr); err != nil {
		return nil, err
	}
	c.BirthDate = fromMillis(birthMs)
	c.CreatedAt = fromMillis(createdMs)
	return &c, nil
}
