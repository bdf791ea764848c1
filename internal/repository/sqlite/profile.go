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

type profileRepository struct {
	BaseRepository
}

func NewProfileRepository(base BaseRepository) repository.ProfileRepository {
	return &profileRepository{base}
}

func (r *profileRepository) Put(ctx context.Context, profile *model.UserProfile, outbox *model.OutboxEntry) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_profiles (
				id, age, gender, income_category, has_ration_card,
				ration_card_type, is_pregnant, has_children, district,
				village, preferred_language, last_updated
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				age = excluded.age,
				gender = excluded.gender,
				income_category = excluded.income_category,
				has_ration_card = excluded.has_ration_card,
				ration_card_type = excluded.ration_card_type,
				is_pregnant = excluded.is_pregnant,
				has_children = excluded.has_children,
				district = excluded.district,
				village = excluded.village,
				preferred_language = excluded.preferred_language,
				last_updated = excluded.last_updated`,
			profile.ID.String(),
			profile.Age,
			string(profile.Gender),
			string(profile.IncomeCategory),
			profile.HasRationCard,
			string(profile.RationCardType),
			profile.IsPregnant,
			profile.HasChildren,
			profile.District,
			profile.Village,
			profile.PreferredLanguage,
			profile.LastUpdated,
		)
		if err != nil {
			return fmt.Errorf("failed to put user profile: %w", err)
		}
		return insertOutboxTx(ctx, tx, outbox)
	})
}

func (r *profileRepository) Get(ctx context.Context, id uuid.UUID) (*model.UserProfile, error) {
	row := r.db.QueryRowxContext(ctx, `
		SELECT id, age, gender, income_category, has_ration_card,
			ration_card_type, is_pregnant, has_children, district,
			village, preferred_language, last_updated
		FROM user_profiles WHERE id = ?`, id.String())

	var (
		profile  model.UserProfile
		idStr    string
		gender   string
		income   string
		cardType string
	)
	err := row.Scan(
		&idStr, &profile.Age, &gender, &income, &profile.HasRationCard,
		&cardType, &profile.IsPregnant, &profile.HasChildren,
		&profile.District, &profile.Village, &profile.PreferredLanguage,
		&profile.LastUpdated,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("user profile", err)
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	profile.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile id: %w", err)
	}
	profile.Gender = model.Gender(gender)
	profile.IncomeCategory = model.IncomeCategory(income)
	profile.RationCardType = model.RationCardType(cardType)
	return &profile, nil
}

func (r *profileRepository) Delete(ctx context.Context, id uuid.UUID, outbox *model.OutboxEntry) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_profiles WHERE id = ?`, id.String()); err != nil {
			return fmt.Errorf("failed to delete user profile: %w", err)
		}
		return insertOutboxTx(ctx, tx, outbox)
	})
}
