package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
)

type schemeRepository struct {
	BaseRepository
}

func NewSchemeRepository(base BaseRepository) repository.SchemeRepository {
	return &schemeRepository{base}
}

func (r *schemeRepository) Upsert(ctx context.Context, scheme *model.HealthScheme) error {
	benefits, err := marshalList(scheme.Benefits)
	if err != nil {
		return fmt.Errorf("failed to marshal benefits: %w", err)
	}
	documents, err := marshalList(scheme.Documents)
	if err != nil {
		return fmt.Errorf("failed to marshal documents: %w", err)
	}
	criteria, err := json.Marshal(scheme.Criteria)
	if err != nil {
		return fmt.Errorf("failed to marshal criteria: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO health_schemes (
			id, name, localized_name, description, benefits, criteria,
			documents, application_process, contact_info, position, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			localized_name = excluded.localized_name,
			description = excluded.description,
			benefits = excluded.benefits,
			criteria = excluded.criteria,
			documents = excluded.documents,
			application_process = excluded.application_process,
			contact_info = excluded.contact_info,
			position = excluded.position,
			last_updated = excluded.last_updated`,
		scheme.ID.String(),
		scheme.Name,
		scheme.LocalizedName,
		scheme.Description,
		benefits,
		string(criteria),
		documents,
		scheme.ApplicationProcess,
		scheme.ContactInfo,
		scheme.Position,
		scheme.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert health scheme: %w", err)
	}
	return nil
}

const schemeColumns = `id, name, localized_name, description, benefits, criteria,
	documents, application_process, contact_info, position, last_updated`

func (r *schemeRepository) Get(ctx context.Context, id uuid.UUID) (*model.HealthScheme, error) {
	row := r.db.QueryRowxContext(ctx,
		`SELECT `+schemeColumns+` FROM health_schemes WHERE id = ?`, id.String())

	scheme, err := scanScheme(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("health scheme", err)
		}
		return nil, fmt.Errorf("failed to get health scheme: %w", err)
	}
	return scheme, nil
}

// List returns schemes in position order. Evaluation output preserves
// this order; no significance ranking is applied.
func (r *schemeRepository) List(ctx context.Context) ([]*model.HealthScheme, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT `+schemeColumns+` FROM health_schemes ORDER BY position ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list health schemes: %w", err)
	}
	defer rows.Close()

	var schemes []*model.HealthScheme
	for rows.Next() {
		scheme, err := scanScheme(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan health scheme: %w", err)
		}
		schemes = append(schemes, scheme)
	}
	return schemes, rows.Err()
}

func (r *schemeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM health_schemes WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete health scheme: %w", err)
	}
	return nil
}

func scanScheme(row rowScanner) (*model.HealthScheme, error) {
	var (
		scheme      model.HealthScheme
		idStr       string
		benefitsRaw string
		criteriaRaw string
		docsRaw     string
	)
	err := row.Scan(
		&idStr, &scheme.Name, &scheme.LocalizedName, &scheme.Description,
		&benefitsRaw, &criteriaRaw, &docsRaw,
		&scheme.ApplicationProcess, &scheme.ContactInfo,
		&scheme.Position, &scheme.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	scheme.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	if scheme.Benefits, err = unmarshalList(benefitsRaw); err != nil {
		return nil, err
	}
	if scheme.Documents, err = unmarshalList(docsRaw); err != nil {
		return nil, err
	}
	if err = json.Unmarshal([]byte(criteriaRaw), &scheme.Criteria); err != nil {
		return nil, err
	}
	return &scheme, nil
}
