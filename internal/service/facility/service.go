// Package facility answers healthcare center and emergency contact
// lookups, ranking centers by straight-line distance when the location
// capability supplies a position.
package facility

import (
	"context"
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
	"github.com/gramseva/swasthya-sahayak/pkg/geo"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
)

type Service struct {
	facilities repository.FacilityRepository
	emergency  repository.EmergencyRepository
	cache      *gocache.Cache
	logger     *logger.Logger
}

func NewService(
	facilities repository.FacilityRepository,
	emergency repository.EmergencyRepository,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return &Service{
		facilities: facilities,
		emergency:  emergency,
		cache:      gocache.New(cacheTTL, 2*cacheTTL),
		logger:     log.WithComponent("facility"),
	}
}

// FindCenters lists healthcare centers for the filters. With a position,
// results come back nearest-first; without one, alphabetical, with
// DistanceKm set to -1. Position acquisition itself is external.
func (s *Service) FindCenters(ctx context.Context, filters *model.FacilityFilters) ([]model.RankedFacility, error) {
	key := cacheKey(filters)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]model.RankedFacility), nil
	}

	centers, err := s.facilities.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to look up healthcare centers: %w", err)
	}

	ranked := make([]model.RankedFacility, 0, len(centers))
	for _, center := range centers {
		distance := -1.0
		if filters != nil && filters.Near != nil && filters.Near.Valid() {
			distance = geo.DistanceKm(*filters.Near, center.Location)
		}
		ranked = append(ranked, model.RankedFacility{Center: *center, DistanceKm: distance})
	}

	if filters != nil && filters.Near != nil && filters.Near.Valid() {
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].DistanceKm < ranked[j].DistanceKm
		})
	}
	if filters != nil && filters.Limit > 0 && len(ranked) > filters.Limit {
		ranked = ranked[:filters.Limit]
	}

	s.cache.Set(key, ranked, gocache.DefaultExpiration)
	return ranked, nil
}

// FindEmergencyContacts lists contacts serving the district, optionally
// narrowed to one service type.
func (s *Service) FindEmergencyContacts(ctx context.Context, district string, serviceType model.EmergencyServiceType) ([]*model.EmergencyContact, error) {
	contacts, err := s.emergency.List(ctx, district, serviceType)
	if err != nil {
		return nil, fmt.Errorf("failed to look up emergency contacts: %w", err)
	}
	return contacts, nil
}

// InvalidateCache drops cached rankings after a reference-data download.
func (s *Service) InvalidateCache() {
	s.cache.Flush()
}

func cacheKey(filters *model.FacilityFilters) string {
	if filters == nil {
		return "all"
	}
	key := fmt.Sprintf("%s|%s|%d", filters.District, filters.Type, filters.Limit)
	if filters.Near != nil {
		key += fmt.Sprintf("|%.4f,%.4f", filters.Near.Latitude, filters.Near.Longitude)
	}
	return key
}
