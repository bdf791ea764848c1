package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
	"github.com/gramseva/swasthya-sahayak/pkg/geo"
)

type facilityRepository struct {
	BaseRepository
}

func NewFacilityRepository(base BaseRepository) repository.FacilityRepository {
	return &facilityRepository{base}
}

// Upsert unconditionally overwrites the local record: reference data is
// server-wins, the download pass is its only writer.
func (r *facilityRepository) Upsert(ctx context.Context, center *model.HealthcareCenter) error {
	services, err := marshalList(center.Services)
	if err != nil {
		return fmt.Errorf("failed to marshal services: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO healthcare_centers (
			id, name, type, latitude, longitude, address, phone,
			services, district, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			address = excluded.address,
			phone = excluded.phone,
			services = excluded.services,
			district = excluded.district,
			last_updated = excluded.last_updated`,
		center.ID.String(),
		center.Name,
		string(center.Type),
		center.Location.Latitude,
		center.Location.Longitude,
		center.Address,
		center.Phone,
		services,
		center.District,
		center.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert healthcare center: %w", err)
	}
	return nil
}

const facilityColumns = `id, name, type, latitude, longitude, address, phone, services, district, last_updated`

func (r *facilityRepository) Get(ctx context.Context, id uuid.UUID) (*model.HealthcareCenter, error) {
	row := r.db.QueryRowxContext(ctx,
		`SELECT `+facilityColumns+` FROM healthcare_centers WHERE id = ?`, id.String())

	center, err := scanFacility(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("healthcare center", err)
		}
		return nil, fmt.Errorf("failed to get healthcare center: %w", err)
	}
	return center, nil
}

func (r *facilityRepository) List(ctx context.Context, filters *model.FacilityFilters) ([]*model.HealthcareCenter, error) {
	query := `SELECT ` + facilityColumns + ` FROM healthcare_centers WHERE 1=1`
	args := []interface{}{}

	if filters != nil {
		if filters.District != "" {
			query += ` AND district = ?`
			args = append(args, filters.District)
		}
		if filters.Type != "" {
			query += ` AND type = ?`
			args = append(args, string(filters.Type))
		}
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list healthcare centers: %w", err)
	}
	defer rows.Close()

	var centers []*model.HealthcareCenter
	for rows.Next() {
		center, err := scanFacility(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan healthcare center: %w", err)
		}
		centers = append(centers, center)
	}
	return centers, rows.Err()
}

func (r *facilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM healthcare_centers WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete healthcare center: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFacility(row rowScanner) (*model.HealthcareCenter, error) {
	var (
		center      model.HealthcareCenter
		idStr       string
		typeStr     string
		servicesRaw string
	)
	err := row.Scan(
		&idStr, &center.Name, &typeStr,
		&center.Location.Latitude, &center.Location.Longitude,
		&center.Address, &center.Phone, &servicesRaw,
		&center.District, &center.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	center.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	center.Type = model.FacilityType(typeStr)
	center.Services, err = unmarshalList(servicesRaw)
	if err != nil {
		return nil, err
	}
	if !center.Location.Valid() {
		center.Location = geo.Point{}
	}
	return &center, nil
}
