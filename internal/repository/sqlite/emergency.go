package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
)

type emergencyRepository struct {
	BaseRepository
}

func NewEmergencyRepository(base BaseRepository) repository.EmergencyRepository {
	return &emergencyRepository{base}
}

func (r *emergencyRepository) Upsert(ctx context.Context, contact *model.EmergencyContact) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO emergency_contacts (
			id, service_name, phone, service_type, district, service_area, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			service_name = excluded.service_name,
			phone = excluded.phone,
			service_type = excluded.service_type,
			district = excluded.district,
			service_area = excluded.service_area,
			last_updated = excluded.last_updated`,
		contact.ID.String(),
		contact.ServiceName,
		contact.Phone,
		string(contact.ServiceType),
		contact.District,
		contact.ServiceArea,
		contact.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert emergency contact: %w", err)
	}
	return nil
}

func (r *emergencyRepository) Get(ctx context.Context, id uuid.UUID) (*model.EmergencyContact, error) {
	row := r.db.QueryRowxContext(ctx, `
		SELECT id, service_name, phone, service_type, district, service_area, last_updated
		FROM emergency_contacts WHERE id = ?`, id.String())

	contact, err := scanEmergency(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("emergency contact", err)
		}
		return nil, fmt.Errorf("failed to get emergency contact: %w", err)
	}
	return contact, nil
}

func (r *emergencyRepository) List(ctx context.Context, district string, serviceType model.EmergencyServiceType) ([]*model.EmergencyContact, error) {
	query := `
		SELECT id, service_name, phone, service_type, district, service_area, last_updated
		FROM emergency_contacts WHERE 1=1`
	args := []interface{}{}

	if district != "" {
		query += ` AND (district = ? OR district = '')`
		args = append(args, district)
	}
	if serviceType != "" {
		query += ` AND service_type = ?`
		args = append(args, string(serviceType))
	}
	query += ` ORDER BY service_name ASC`

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list emergency contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*model.EmergencyContact
	for rows.Next() {
		contact, err := scanEmergency(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan emergency contact: %w", err)
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

func (r *emergencyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM emergency_contacts WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete emergency contact: %w", err)
	}
	return nil
}

func scanEmergency(row rowScanner) (*model.EmergencyContact, error) {
	var (
		contact model.EmergencyContact
		idStr   string
		typeStr string
	)
	err := row.Scan(
		&idStr, &contact.ServiceName, &contact.Phone, &typeStr,
		&contact.District, &contact.ServiceArea, &contact.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	contact.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	contact.ServiceType = model.EmergencyServiceType(typeStr)
	return &contact, nil
}
