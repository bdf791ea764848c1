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

type vaccinationRepository struct {
	BaseRepository
}

func NewVaccinationRepository(base BaseRepository) repository.VaccinationRepository {
	return &vaccinationRepository{base}
}

func upsertVaccinationTx(ctx context.Context, tx *sqlx.Tx, record *model.VaccinationRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO vaccination_records (
			id, child_id, vaccine_name, scheduled_date,
			administered, administered_date, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			child_id = excluded.child_id,
			vaccine_name = excluded.vaccine_name,
			scheduled_date = excluded.scheduled_date,
			administered = excluded.administered,
			administered_date = excluded.administered_date,
			last_updated = excluded.last_updated`,
		record.ID.String(),
		record.ChildID.String(),
		record.VaccineName,
		toMillis(record.ScheduledDate),
		record.Administered,
		toMillisPtr(record.AdministeredDate),
		record.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to put vaccination record: %w", err)
	}
	return nil
}

func (r *vaccinationRepository) Put(ctx context.Context, record *model.VaccinationRecord, outbox *model.OutboxEntry) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := upsertVaccinationTx(ctx, tx, record); err != nil {
			return err
		}
		return insertOutboxTx(ctx, tx, outbox)
	})
}

func (r *vaccinationRepository) PutBatch(ctx context.Context, records []*model.VaccinationRecord, entries []*model.OutboxEntry) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, record := range records {
			if err := upsertVaccinationTx(ctx, tx, record); err != nil {
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

const vaccinationColumns = `id, child_id, vaccine_name, scheduled_date,
	administered, administered_date, last_updated`

func (r *vaccinationRepository) Get(ctx context.Context, id uuid.UUID) (*model.VaccinationRecord, error) {
	row := r.db.QueryRowxContext(ctx,
		`SELECT `+vaccinationColumns+` FROM vaccination_records WHERE id = ?`, id.String())

	record, err := scanVaccination(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("vaccination record", err)
		}
		return nil, fmt.Errorf("failed to get vaccination record: %w", err)
	}
	return record, nil
}

func (r *vaccinationRepository) ListByChild(ctx context.Context, childID uuid.UUID) ([]*model.VaccinationRecord, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT `+vaccinationColumns+` FROM vaccination_records
		 WHERE child_id = ? ORDER BY scheduled_date ASC`,
		childID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list vaccination records: %w", err)
	}
	defer rows.Close()

	var records []*model.VaccinationRecord
	for rows.Next() {
		record, err := scanVaccination(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vaccination record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanVaccination(row rowScanner) (*model.VaccinationRecord, error) {
	var (
		record     model.VaccinationRecord
		idStr      string
		childIDStr string
		schedMs    int64
		adminMs    *int64
	)
	err := row.Scan(
		&idStr, &childIDStr, &record.VaccineName, &schedMs,
		&record.Administered, &adminMs, &record.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	if record.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if record.ChildID, err = uuid.Parse(childIDStr); err != nil {
		return nil, err
	}
	record.ScheduledDate = fromMillis(schedMs)
	record.AdministeredDate = fromMillisPtr(adminMs)
	return &record, nil
}
