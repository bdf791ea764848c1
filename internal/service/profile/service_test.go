package profile

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
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
	"github.com/gramseva/swasthya-sahayak/pkg/validator"
)

func newTestService(t *testing.T) (*Service, repository.OutboxRepository) {
	t.Helper()
	db, err := sqlite.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	base := sqlite.NewBaseRepository(db)
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	svc := NewService(sqlite.NewProfileRepository(base), validator.New(), log)
	return svc, sqlite.NewOutboxRepository(base)
}

func validProfile() *model.UserProfile {
	return &model.UserProfile{
		Age:               34,
		Gender:            model.GenderFemale,
		IncomeCategory:    model.IncomeBPL,
		District:          "Gaya",
		PreferredLanguage: "hi",
	}
}

func TestSaveAssignsIDAndEnqueues(t *testing.T) {
	svc, outbox := newTestService(t)
	ctx := context.Background()

	p := validProfile()
	require.NoError(t, svc.Save(ctx, p))
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.NotZero(t, p.LastUpdated)

	batch, err := outbox.PeekBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, model.OpCreate, batch[0].Operation)
	assert.Zero(t, batch[0].BaseTimestamp)
}

func TestSaveUpdateCarriesPriorTimestampAsBase(t *testing.T) {
	svc, outbox := newTestService(t)
	ctx := context.Background()

	p := validProfile()
	require.NoError(t, svc.Save(ctx, p))
	firstStamp := p.LastUpdated

	time.Sleep(2 * time.Millisecond)
	p.Age = 35
	require.NoError(t, svc.Save(ctx, p))
	assert.Greater(t, p.LastUpdated, firstStamp)

	batch, err := outbox.PeekBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, model.OpUpdate, batch[1].Operation)
	assert.Equal(t, firstStamp, batch[1].BaseTimestamp,
		"the update's base is the timestamp the device last knew")
}

func TestSaveRejectsInvalidProfile(t *testing.T) {
	svc, _ := newTestService(t)

	p := validProfile()
	p.PreferredLanguage = "xx"
	err := svc.Save(context.Background(), p)
	assert.True(t, apperrors.IsValidation(err))

	p = validProfile()
	p.Age = -1
	err = svc.Save(context.Background(), p)
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetMissingProfile(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}
