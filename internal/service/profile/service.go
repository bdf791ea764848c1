// Package profile manages the on-device user profile, the record the
// eligibility engine evaluates.
package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
	"github.com/gramseva/swasthya-sahayak/pkg/validator"
)

type Service struct {
	profiles repository.ProfileRepository
	validate validator.Validator
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(profiles repository.ProfileRepository, validate validator.Validator, log *logger.Logger) *Service {
	return &Service{
		profiles: profiles,
		validate: validate,
		logger:   log.WithComponent("profile"),
		now:      time.Now,
	}
}

// Save validates and stores the profile, snapshotting it into the outbox
// in the same transaction.
func (s *Service) Save(ctx context.Context, p *model.UserProfile) error {
	if err := s.validate.Validate(p); err != nil {
		return err
	}

	op := model.OpUpdate
	base := int64(0)
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
		op = model.OpCreate
	} else if existing, err := s.profiles.Get(ctx, p.ID); err == nil {
		base = existing.LastUpdated
	} else {
		op = model.OpCreate
	}
	p.Touch(s.now())

	entry, err := model.NewOutboxEntry(model.EntityUserProfile, p.ID, op, p, base)
	if err != nil {
		return fmt.Errorf("failed to snapshot profile: %w", err)
	}
	if err := s.profiles.Put(ctx, p, entry); err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}

	s.logger.Debug("saved user profile", "profile_id", p.ID.String())
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.UserProfile, error) {
	return s.profiles.Get(ctx, id)
}
