// Package eligibility evaluates user profiles against scheme criteria.
// Evaluation is pure: it reads schemes from the store and never writes.
package eligibility

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
)

const schemeCacheKey = "schemes"

type Service struct {
	schemes repository.SchemeRepository
	cache   *gocache.Cache
	logger  *logger.Logger
}

func NewService(schemes repository.SchemeRepository, cacheTTL time.Duration, log *logger.Logger) *Service {
	return &Service{
		schemes: schemes,
		cache:   gocache.New(cacheTTL, 2*cacheTTL),
		logger:  log.WithComponent("eligibility"),
	}
}

// Evaluate returns one result per scheme, in scheme insertion order.
// Unmatched schemes are returned with their failure reasons, never
// omitted; downstream filters as needed.
func (s *Service) Evaluate(ctx context.Context, profile *model.UserProfile) ([]model.EligibilityResult, error) {
	schemes, err := s.listSchemes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load schemes: %w", err)
	}

	results := make([]model.EligibilityResult, 0, len(schemes))
	for _, scheme := range schemes {
		matched, reasons := s.evaluateCriteria(scheme.Criteria, profile)
		results = append(results, model.EligibilityResult{
			Scheme:  *scheme,
			Matched: matched,
			Reasons: reasons,
		})
	}
	return results, nil
}

// InvalidateCache drops the cached scheme list. The sync download pass
// calls this after applying scheme updates.
func (s *Service) InvalidateCache() {
	s.cache.Delete(schemeCacheKey)
}

func (s *Service) listSchemes(ctx context.Context) ([]*model.HealthScheme, error) {
	if cached, ok := s.cache.Get(schemeCacheKey); ok {
		return cached.([]*model.HealthScheme), nil
	}
	schemes, err := s.schemes.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(schemeCacheKey, schemes, gocache.DefaultExpiration)
	return schemes, nil
}

// evaluateCriteria applies every defined criterion as a logical AND.
// Undefined criteria never block; every defined criterion that fails
// contributes a reason.
func (s *Service) evaluateCriteria(c model.EligibilityCriteria, p *model.UserProfile) (bool, []string) {
	var reasons []string

	if !c.Consistent() {
		// A scheme with min age above max age can match nobody; report it
		// rather than matching by accident.
		return false, []string{"scheme criteria are inconsistent (min age exceeds max age)"}
	}

	if c.MinAge != nil && p.Age < *c.MinAge {
		reasons = append(reasons, fmt.Sprintf("age %d is below the minimum of %d", p.Age, *c.MinAge))
	}
	if c.MaxAge != nil && p.Age > *c.MaxAge {
		reasons = append(reasons, fmt.Sprintf("age %d exceeds the maximum of %d", p.Age, *c.MaxAge))
	}

	if c.Gender != nil && p.Gender != *c.Gender {
		reasons = append(reasons, fmt.Sprintf("scheme is restricted to %s applicants", *c.Gender))
	}

	if c.MaxIncome != nil {
		ceiling, known := model.IncomeCeilings[p.IncomeCategory]
		switch {
		case !known:
			reasons = append(reasons, "income category is not set on the profile")
		case ceiling > *c.MaxIncome:
			reasons = append(reasons, fmt.Sprintf("income category %s is above the scheme ceiling", p.IncomeCategory))
		}
	}

	if c.RequiresRationCard {
		if !p.HasRationCard {
			reasons = append(reasons, "a ration card is required")
		} else if len(c.AllowedCardTypes) > 0 && !containsCard(c.AllowedCardTypes, p.RationCardType) {
			reasons = append(reasons, fmt.Sprintf("ration card type %s is not accepted", p.RationCardType))
		}
	}

	if c.ForPregnantWomen && !p.IsPregnant {
		reasons = append(reasons, "scheme is for pregnant women")
	}
	if c.ForChildren && !p.HasChildren {
		reasons = append(reasons, "scheme is for households with children")
	}

	// additionalConditions is an open extension point: keys the profile
	// does not define fail open (forward compatible); defined keys that
	// do not match fail closed.
	for key, want := range c.AdditionalConditions {
		got, ok := p.Attribute(key)
		if !ok {
			s.logger.Debug("skipping unrecognized eligibility condition", "key", key)
			continue
		}
		if got != want {
			reasons = append(reasons, fmt.Sprintf("condition %q does not match", key))
		}
	}

	return len(reasons) == 0, reasons
}

func containsCard(allowed []model.RationCardType, card model.RationCardType) bool {
	for _, t := range allowed {
		if t == card {
			return true
		}
	}
	return false
}
