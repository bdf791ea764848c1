package facility

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
	"github.com/gramseva/swasthya-sahayak/internal/repository/sqlite"
	"github.com/gramseva/swasthya-sahayak/pkg/geo"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
)

type fixture struct {
	svc        *Service
	facilities repository.FacilityRepository
	emergency  repository.EmergencyRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	base := sqlite.NewBaseRepository(db)
	facilities := sqlite.NewFacilityRepository(base)
	emergency := sqlite.NewEmergencyRepository(base)
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	return &fixture{
		svc:        NewService(facilities, emergency, time.Minute, log),
		facilities: facilities,
		emergency:  emergency,
	}
}

func seedCenter(t *testing.T, f *fixture, name string, lat, lng float64) *model.HealthcareCenter {
	t.Helper()
	center := &model.HealthcareCenter{
		Name:     name,
		Type:     model.FacilityPHC,
		Location: geo.Point{Latitude: lat, Longitude: lng},
		District: "Gaya",
	}
	center.ID = uuid.New()
	center.LastUpdated = 1
	require.NoError(t, f.facilities.Upsert(context.Background(), center))
	return center
}

func TestFindCentersRanksByDistance(t *testing.T) {
	f := newFixture(t)

	// Caller stands in Gaya town; seed one nearby, one mid, one far.
	seedCenter(t, f, "Far PHC", 25.60, 85.15)
	seedCenter(t, f, "Near PHC", 24.80, 85.00)
	seedCenter(t, f, "Mid PHC", 25.10, 85.05)

	caller := &geo.Point{Latitude: 24.78, Longitude: 85.00}
	ranked, err := f.svc.FindCenters(context.Background(), &model.FacilityFilters{District: "Gaya", Near: caller})
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, "Near PHC", ranked[0].Center.Name)
	assert.Equal(t, "Mid PHC", ranked[1].Center.Name)
	assert.Equal(t, "Far PHC", ranked[2].Center.Name)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i].DistanceKm, ranked[i-1].DistanceKm)
	}
}

func TestFindCentersWithoutPosition(t *testing.T) {
	f := newFixture(t)
	seedCenter(t, f, "Barachatti PHC", 24.65, 85.05)

	ranked, err := f.svc.FindCenters(context.Background(), &model.FacilityFilters{District: "Gaya"})
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, -1.0, ranked[0].DistanceKm, "no position means no distance")
}

func TestFindCentersHonorsLimit(t *testing.T) {
	f := newFixture(t)
	seedCenter(t, f, "A", 24.80, 85.00)
	seedCenter(t, f, "B", 25.10, 85.05)
	seedCenter(t, f, "C", 25.60, 85.15)

	caller := &geo.Point{Latitude: 24.78, Longitude: 85.00}
	ranked, err := f.svc.FindCenters(context.Background(), &model.FacilityFilters{
		District: "Gaya",
		Near:     caller,
		Limit:    2,
	})
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "A", ranked[0].Center.Name, "limit keeps the nearest results")
}

func TestFindCentersCachesUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	seedCenter(t, f, "Barachatti PHC", 24.65, 85.05)
	filters := &model.FacilityFilters{District: "Gaya"}

	ranked, err := f.svc.FindCenters(context.Background(), filters)
	require.NoError(t, err)
	require.Len(t, ranked, 1)

	seedCenter(t, f, "New PHC", 24.70, 85.10)

	ranked, err = f.svc.FindCenters(context.Background(), filters)
	require.NoError(t, err)
	assert.Len(t, ranked, 1, "cached ranking is served until invalidation")

	f.svc.InvalidateCache()
	ranked, err = f.svc.FindCenters(context.Background(), filters)
	require.NoError(t, err)
	assert.Len(t, ranked, 2)
}

func TestFindEmergencyContactsFiltersByType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, seed := range []struct {
		name  string
		stype model.EmergencyServiceType
	}{
		{"108 Ambulance", model.ServiceAmbulance},
		{"Gaya Police Control", model.ServicePolice},
	} {
		contact := &model.EmergencyContact{
			ServiceName: seed.name,
			ServiceType: seed.stype,
			Phone:       "108",
			District:    "Gaya",
		}
		contact.ID = uuid.New()
		contact.LastUpdated = 1
		require.NoError(t, f.emergency.Upsert(ctx, contact))
	}

	contacts, err := f.svc.FindEmergencyContacts(ctx, "Gaya", model.ServiceAmbulance)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "108 Ambulance", contacts[0].ServiceName)

	contacts, err = f.svc.FindEmergencyContacts(ctx, "Gaya", "")
	require.NoError(t, err)
	assert.Len(t, contacts, 2)
}
