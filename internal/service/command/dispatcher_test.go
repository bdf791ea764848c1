package command

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
	"github.com/gramseva/swasthya-sahayak/internal/service/eligibility"
	"github.com/gramseva/swasthya-sahayak/internal/service/facility"
	"github.com/gramseva/swasthya-sahayak/internal/service/profile"
	"github.com/gramseva/swasthya-sahayak/internal/service/scheduler"
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
	"github.com/gramseva/swasthya-sahayak/pkg/geo"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
	"github.com/gramseva/swasthya-sahayak/pkg/validator"
)

type fixture struct {
	dispatcher *Dispatcher
	facilities repository.FacilityRepository
	schemes    repository.SchemeRepository
	profiles   *profile.Service
	scheduler  *scheduler.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	base := sqlite.NewBaseRepository(db)
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	validate := validator.New()

	facilities := sqlite.NewFacilityRepository(base)
	schemes := sqlite.NewSchemeRepository(base)

	facilitySvc := facility.NewService(facilities, sqlite.NewEmergencyRepository(base), time.Minute, log)
	eligSvc := eligibility.NewService(schemes, time.Minute, log)
	profileSvc := profile.NewService(sqlite.NewProfileRepository(base), validate, log)
	schedSvc := scheduler.NewService(
		sqlite.NewCaseRepository(base),
		sqlite.NewReminderRepository(base),
		sqlite.NewVaccinationRepository(base),
		validate,
		log,
	)

	return &fixture{
		dispatcher: NewDispatcher(facilitySvc, eligSvc, schedSvc, profileSvc, log),
		facilities: facilities,
		schemes:    schemes,
		profiles:   profileSvc,
		scheduler:  schedSvc,
	}
}

func TestDispatchFindHealthcare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	center := &model.HealthcareCenter{
		Name:     "Barachatti PHC",
		Type:     model.FacilityPHC,
		Location: geo.Point{Latitude: 24.65, Longitude: 85.05},
		District: "Gaya",
	}
	center.ID = uuid.New()
	center.LastUpdated = 1
	require.NoError(t, f.facilities.Upsert(ctx, center))

	result, err := f.dispatcher.Dispatch(ctx, Command{
		Token:    TokenFindHealthcare,
		District: "Gaya",
		Position: &geo.Point{Latitude: 24.78, Longitude: 85.00},
	})
	require.NoError(t, err)
	require.Len(t, result.Facilities, 1)
	assert.Equal(t, "Barachatti PHC", result.Facilities[0].Center.Name)
	assert.Greater(t, result.Facilities[0].DistanceKm, 0.0)
}

func TestDispatchCheckScheme(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	minAge := 60
	scheme := &model.HealthScheme{Name: "Old Age Pension", Position: 1}
	scheme.Criteria.MinAge = &minAge
	scheme.ID = uuid.New()
	scheme.LastUpdated = 1
	require.NoError(t, f.schemes.Upsert(ctx, scheme))

	p := &model.UserProfile{
		Age:               62,
		Gender:            model.GenderFemale,
		District:          "Gaya",
		PreferredLanguage: "hi",
	}
	require.NoError(t, f.profiles.Save(ctx, p))

	result, err := f.dispatcher.Dispatch(ctx, Command{Token: TokenCheckScheme, ProfileID: &p.ID})
	require.NoError(t, err)
	require.Len(t, result.Eligibility, 1)
	assert.True(t, result.Eligibility[0].Matched)
}

func TestDispatchCheckSchemeRequiresProfile(t *testing.T) {
	f := newFixture(t)

	_, err := f.dispatcher.Dispatch(context.Background(), Command{Token: TokenCheckScheme})
	assert.True(t, apperrors.IsValidation(err))

	missing := uuid.New()
	_, err = f.dispatcher.Dispatch(context.Background(), Command{Token: TokenCheckScheme, ProfileID: &missing})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDispatchShowReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := &model.PregnancyCase{
		SubjectName:          "Sita Devi",
		ExpectedDeliveryDate: time.Now().AddDate(0, 7, 0),
	}
	_, err := f.scheduler.RegisterPregnancy(ctx, c)
	require.NoError(t, err)

	result, err := f.dispatcher.Dispatch(ctx, Command{Token: TokenShowReminders, OwnerID: &c.ID})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Reminders)
}

func TestDispatchUnknownPassesRawTextThrough(t *testing.T) {
	f := newFixture(t)

	result, err := f.dispatcher.Dispatch(context.Background(), Command{
		Token:   TokenUnknown,
		RawText: "mujhe dawai chahiye",
	})
	require.NoError(t, err)
	assert.Equal(t, "mujhe dawai chahiye", result.Unrecognized)
	assert.Empty(t, result.Facilities)
}

func TestDispatchUnsupportedToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.dispatcher.Dispatch(context.Background(), Command{Token: Token("sing-a-song")})
	assert.True(t, apperrors.IsValidation(err))
}
