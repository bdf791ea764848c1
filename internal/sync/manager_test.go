package sync

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
	"github.com/gramseva/swasthya-sahayak/internal/repository/sqlite"
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
	"github.com/gramseva/swasthya-sahayak/pkg/geo"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
	"github.com/gramseva/swasthya-sahayak/pkg/metrics"
	"github.com/gramseva/swasthya-sahayak/pkg/validator"
)

// fakeRemote scripts the remote authority: canned download records, a
// per-entity accept/reject table for uploads, and an optional transport
// failure. It records every submitted batch for assertions.
type fakeRemote struct {
	changes     []RemoteRecord
	fetchErr    error
	submitErr   error
	rejections  map[uuid.UUID]UploadResult
	submissions [][]MutationUpload
}

func (f *fakeRemote) FetchChanges(ctx context.Context, req *ChangesRequest) (*ChangesResponse, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []RemoteRecord
	for _, record := range f.changes {
		if record.Timestamp > req.Since {
			out = append(out, record)
		}
	}
	return &ChangesResponse{Records: out}, nil
}

func (f *fakeRemote) SubmitBatch(ctx context.Context, uploads []MutationUpload) (*UploadResponse, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submissions = append(f.submissions, uploads)
	resp := &UploadResponse{}
	for _, u := range uploads {
		if verdict, ok := f.rejections[u.EntityID]; ok {
			resp.Results = append(resp.Results, verdict)
			continue
		}
		resp.Results = append(resp.Results, UploadResult{
			EntityID:  u.EntityID,
			Accepted:  true,
			Timestamp: u.BaseTimestamp + 1,
		})
	}
	return resp, nil
}

type syncFixture struct {
	manager    *Manager
	remote     *fakeRemote
	outbox     repository.OutboxRepository
	state      repository.SyncStateRepository
	profiles   repository.ProfileRepository
	schemes    repository.SchemeRepository
	facilities repository.FacilityRepository
}

func newFixture(t *testing.T, config Config) *syncFixture {
	t.Helper()
	db, err := sqlite.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	base := sqlite.NewBaseRepository(db)
	facilities := sqlite.NewFacilityRepository(base)
	emergency := sqlite.NewEmergencyRepository(base)
	schemes := sqlite.NewSchemeRepository(base)
	profiles := sqlite.NewProfileRepository(base)
	cases := sqlite.NewCaseRepository(base)
	reminders := sqlite.NewReminderRepository(base)
	vaccinations := sqlite.NewVaccinationRepository(base)

	applier := NewApplier(facilities, emergency, schemes, profiles, cases, reminders, vaccinations, validator.New())
	remote := &fakeRemote{rejections: map[uuid.UUID]UploadResult{}}
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	m := metrics.NewMetricsWith("sahayak", "sync_test", prometheus.NewRegistry())

	outbox := sqlite.NewOutboxRepository(base)
	state := sqlite.NewSyncStateRepository(base)
	return &syncFixture{
		manager:    NewManager(outbox, state, applier, remote, config, log, m),
		remote:     remote,
		outbox:     outbox,
		state:      state,
		profiles:   profiles,
		schemes:    schemes,
		facilities: facilities,
	}
}

func testProfile(age int) *model.UserProfile {
	p := &model.UserProfile{
		Age:               age,
		Gender:            model.GenderFemale,
		District:          "Gaya",
		PreferredLanguage: "hi",
	}
	p.ID = uuid.New()
	return p
}

// enqueueProfile writes the profile and its outbox snapshot the way the
// profile service does, returning the enqueued entry.
func enqueueProfile(t *testing.T, f *syncFixture, p *model.UserProfile, base int64) *model.OutboxEntry {
	t.Helper()
	op := model.OpCreate
	if base > 0 {
		op = model.OpUpdate
	}
	p.LastUpdated = base + 1
	entry, err := model.NewOutboxEntry(model.EntityUserProfile, p.ID, op, p, base)
	require.NoError(t, err)
	require.NoError(t, f.profiles.Put(context.Background(), p, entry))
	return entry
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestRunPassDownloadAppliesServerWins(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	scheme := &model.HealthScheme{Name: "Old Age Pension", Position: 1}
	scheme.ID = uuid.New()
	center := &model.HealthcareCenter{
		Name:     "Barachatti PHC",
		Type:     model.FacilityPHC,
		Location: geo.Point{Latitude: 24.65, Longitude: 85.05},
		District: "Gaya",
	}
	center.ID = uuid.New()

	f.remote.changes = []RemoteRecord{
		{EntityType: model.EntityHealthScheme, EntityID: scheme.ID, Timestamp: 1000, Payload: mustJSON(t, scheme)},
		{EntityType: model.EntityHealthcareCenter, EntityID: center.ID, Timestamp: 2000, Payload: mustJSON(t, center)},
	}

	report, err := f.manager.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PassStatusOK, report.Status)
	assert.Equal(t, 2, report.Downloaded)

	got, err := f.schemes.Get(ctx, scheme.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.LastUpdated, "server timestamp is stamped on apply")

	state, err := f.state.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), state.LastDownloadTimestamp, "checkpoint advances to the max applied timestamp")

	// Second pass: nothing newer than the checkpoint, nothing re-applied.
	report, err = f.manager.RunPass(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Downloaded)
}

func TestRunPassDownloadFiresCacheHooks(t *testing.T) {
	f := newFixture(t, Config{})

	fired := 0
	f.manager.OnReferenceApplied(func() { fired++ })

	scheme := &model.HealthScheme{Name: "Old Age Pension", Position: 1}
	scheme.ID = uuid.New()
	f.remote.changes = []RemoteRecord{
		{EntityType: model.EntityHealthScheme, EntityID: scheme.ID, Timestamp: 1000, Payload: mustJSON(t, scheme)},
	}

	_, err := f.manager.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	// An empty download must not invalidate caches.
	_, err = f.manager.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
}

func TestRunPassUploadsAndAcks(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	p := testProfile(62)
	enqueueProfile(t, f, p, 0)

	report, err := f.manager.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PassStatusOK, report.Status)
	assert.Equal(t, 1, report.Uploaded)
	assert.Zero(t, report.Conflicts)

	pending, err := f.outbox.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	require.Len(t, f.remote.submissions, 1)
	assert.Equal(t, p.ID, f.remote.submissions[0][0].EntityID)
	assert.Equal(t, model.OpCreate, f.remote.submissions[0][0].Operation)
}

func TestRunPassCoalescesPerEntity(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	p := testProfile(60)
	enqueueProfile(t, f, p, 0)
	p.Age = 61
	enqueueProfile(t, f, p, 1)
	p.Age = 62
	enqueueProfile(t, f, p, 2)

	other := testProfile(30)
	enqueueProfile(t, f, other, 0)

	report, err := f.manager.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Uploaded, "one upload per entity, not per log entry")

	require.Len(t, f.remote.submissions, 1)
	uploads := f.remote.submissions[0]
	require.Len(t, uploads, 2)

	var coalescedUpload *MutationUpload
	for i := range uploads {
		if uploads[i].EntityID == p.ID {
			coalescedUpload = &uploads[i]
		}
	}
	require.NotNil(t, coalescedUpload)

	var sent model.UserProfile
	require.NoError(t, json.Unmarshal(coalescedUpload.Payload, &sent))
	assert.Equal(t, 62, sent.Age, "latest snapshot wins")
	assert.Zero(t, coalescedUpload.BaseTimestamp, "base is the earliest coalesced entry's base")

	// Winner and superseded entries are acked together.
	pending, err := f.outbox.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestRunPassRejectedUploadAdoptsServerCopy(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	p := testProfile(62)
	enqueueProfile(t, f, p, 0)

	serverCopy := *p
	serverCopy.Age = 70
	f.remote.rejections[p.ID] = UploadResult{
		EntityID:   p.ID,
		Accepted:   false,
		Timestamp:  9000,
		ServerCopy: mustJSON(t, &serverCopy),
	}

	report, err := f.manager.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PassStatusOK, report.Status)
	assert.Equal(t, 1, report.Conflicts)
	assert.Zero(t, report.Uploaded)

	got, err := f.profiles.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 70, got.Age, "local copy is replaced by the server's")
	assert.Equal(t, int64(9000), got.LastUpdated)

	// The rejected entry is acked, not retried: the conflict is resolved.
	pending, err := f.outbox.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestRunPassTransportFailureFlagsRetry(t *testing.T) {
	f := newFixture(t, Config{RetryCeiling: 3})
	ctx := context.Background()

	enqueueProfile(t, f, testProfile(62), 0)
	f.remote.submitErr = apperrors.Transient("tower unreachable", nil)

	report, err := f.manager.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PassStatusPartial, report.Status)
	assert.Equal(t, 1, report.Retried)

	// Entry stays pending with the failure recorded.
	batch, err := f.outbox.PeekBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, 1, batch[0].RetryCount)
	require.NotNil(t, batch[0].LastError)
	assert.Contains(t, *batch[0].LastError, "tower unreachable")
}

func TestRunPassEscalatesAtRetryCeiling(t *testing.T) {
	f := newFixture(t, Config{RetryCeiling: 2})
	ctx := context.Background()

	enqueueProfile(t, f, testProfile(62), 0)
	f.remote.submitErr = apperrors.Transient("tower unreachable", nil)

	report, err := f.manager.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Retried)

	report, err = f.manager.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Escalated)
	assert.Zero(t, report.Retried)

	// Escalated entries leave the pending queue but are never dropped.
	pending, err := f.outbox.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	escalated, err := f.outbox.ListEscalated(ctx)
	require.NoError(t, err)
	require.Len(t, escalated, 1)
	assert.Equal(t, model.OutboxStatusEscalated, escalated[0].Status)
}

func TestRunPassDownloadFailureDoesNotBlockUpload(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	enqueueProfile(t, f, testProfile(62), 0)
	f.remote.fetchErr = apperrors.Transient("tower unreachable", nil)

	report, err := f.manager.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PassStatusPartial, report.Status)
	assert.Equal(t, 1, report.Uploaded)

	state, err := f.state.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PassStatusPartial, state.LastPassStatus)
	require.NotNil(t, state.LastPassError)
	assert.Contains(t, *state.LastPassError, "tower unreachable")
}

func TestRunPassDrainsBacklogInBatches(t *testing.T) {
	f := newFixture(t, Config{BatchSize: 2})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		enqueueProfile(t, f, testProfile(30+i), 0)
	}

	report, err := f.manager.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Uploaded)
	assert.Len(t, f.remote.submissions, 3, "batch size caps each submission")

	pending, err := f.outbox.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestRunPassSkipsNonReferenceDownloads(t *testing.T) {
	f := newFixture(t, Config{})

	p := testProfile(62)
	f.remote.changes = []RemoteRecord{
		{EntityType: model.EntityUserProfile, EntityID: p.ID, Timestamp: 1000, Payload: mustJSON(t, p)},
	}

	report, err := f.manager.RunPass(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Downloaded, "user data never arrives through the reference download")

	_, err = f.profiles.Get(context.Background(), p.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStatusReportsQueueCounts(t *testing.T) {
	f := newFixture(t, Config{RetryCeiling: 1})
	ctx := context.Background()

	enqueueProfile(t, f, testProfile(62), 0)
	enqueueProfile(t, f, testProfile(45), 0)

	state, pending, escalated, err := f.manager.Status(ctx)
	require.NoError(t, err)
	assert.NotNil(t, state)
	assert.Equal(t, 2, pending)
	assert.Zero(t, escalated)

	// Ceiling of one escalates on the first failure.
	f.remote.submitErr = apperrors.Transient("tower unreachable", nil)
	_, err = f.manager.RunPass(ctx)
	require.NoError(t, err)

	_, pending, escalated, err = f.manager.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Equal(t, 2, escalated)
}

func TestCoalesceKeepsEarliestBase(t *testing.T) {
	entityID := uuid.New()
	now := time.Now()

	mk := func(base int64, age int) *model.OutboxEntry {
		entry, err := model.NewOutboxEntry(model.EntityUserProfile, entityID, model.OpUpdate,
			map[string]int{"age": age}, base)
		if err != nil {
			panic(err)
		}
		entry.ID = uuid.New()
		entry.CreatedAt = now
		return entry
	}

	first := mk(100, 60)
	second := mk(200, 61)
	third := mk(300, 62)

	winners, superseded := coalesce([]*model.OutboxEntry{first, second, third})
	require.Len(t, winners, 1)
	assert.Equal(t, third.ID, winners[0].entry.ID)
	assert.Equal(t, int64(100), winners[0].baseTimestamp)
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID},
		superseded[entityKey{model.EntityUserProfile, entityID}])
}

func TestCoalesceKeysByEntityTypeAndID(t *testing.T) {
	sharedID := uuid.New()

	profileEntry, err := model.NewOutboxEntry(model.EntityUserProfile, sharedID, model.OpUpdate,
		map[string]int{"age": 60}, 100)
	require.NoError(t, err)
	profileEntry.ID = uuid.New()
	reminderEntry, err := model.NewOutboxEntry(model.EntityReminder, sharedID, model.OpUpdate,
		map[string]bool{"completed": true}, 200)
	require.NoError(t, err)
	reminderEntry.ID = uuid.New()

	// Same uuid under two entity types: distinct entities, nothing
	// superseded.
	winners, superseded := coalesce([]*model.OutboxEntry{profileEntry, reminderEntry})
	require.Len(t, winners, 2)
	assert.Equal(t, profileEntry.ID, winners[0].entry.ID)
	assert.Equal(t, reminderEntry.ID, winners[1].entry.ID)
	assert.Empty(t, superseded)
}

// cancellingOutbox cancels the pass after the first successful ack, the
// way a shutdown lands between batches.
type cancellingOutbox struct {
	repository.OutboxRepository
	cancel    context.CancelFunc
	cancelled bool
}

func (c *cancellingOutbox) Ack(ctx context.Context, ids []uuid.UUID) error {
	if err := c.OutboxRepository.Ack(ctx, ids); err != nil {
		return err
	}
	if !c.cancelled {
		c.cancelled = true
		c.cancel()
	}
	return nil
}

func TestUploadCancelStopsAtBatchBoundary(t *testing.T) {
	f := newFixture(t, Config{BatchSize: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 3; i++ {
		enqueueProfile(t, f, testProfile(30+i), 0)
	}
	f.manager.outbox = &cancellingOutbox{OutboxRepository: f.outbox, cancel: cancel}

	report := &PassReport{}
	err := f.manager.upload(ctx, report)
	assert.True(t, apperrors.IsTransient(err))
	assert.Equal(t, 1, report.Uploaded)

	// Acked work stays acked; the rest is untouched, still pending and
	// not retry-flagged.
	pending, err := f.outbox.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, pending)

	batch, err := f.outbox.PeekBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	for _, entry := range batch {
		assert.Equal(t, model.OutboxStatusPending, entry.Status)
		assert.Zero(t, entry.RetryCount)
	}
}

func TestRunPassDownloadSkipsInvalidRecords(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	good := &model.HealthScheme{Name: "Old Age Pension", Position: 1}
	good.ID = uuid.New()
	bad := &model.HealthcareCenter{
		Name:     "Ghost Clinic",
		Type:     model.FacilityPHC,
		Location: geo.Point{Latitude: 200, Longitude: 85.05},
		District: "Gaya",
	}
	bad.ID = uuid.New()

	f.remote.changes = []RemoteRecord{
		{EntityType: model.EntityHealthScheme, EntityID: good.ID, Timestamp: 1000, Payload: mustJSON(t, good)},
		{EntityType: model.EntityHealthcareCenter, EntityID: bad.ID, Timestamp: 3000, Payload: mustJSON(t, bad)},
	}

	report, err := f.manager.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PassStatusOK, report.Status)
	assert.Equal(t, 1, report.Downloaded)

	// The out-of-range coordinates never reach the store.
	_, err = f.facilities.Get(ctx, bad.ID)
	assert.True(t, apperrors.IsNotFound(err))

	got, err := f.schemes.Get(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old Age Pension", got.Name)

	// A deterministic reject moves the checkpoint past itself instead of
	// wedging every later pass on the same record.
	state, err := f.state.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), state.LastDownloadTimestamp)
}

func TestRunPassExpiresEscalatedAfterLaterWin(t *testing.T) {
	f := newFixture(t, Config{RetryCeiling: 1})
	ctx := context.Background()

	p := testProfile(60)
	enqueueProfile(t, f, p, 0)

	f.remote.submitErr = apperrors.Transient("tower unreachable", nil)
	_, err := f.manager.RunPass(ctx)
	require.NoError(t, err)

	escalated, err := f.outbox.ListEscalated(ctx)
	require.NoError(t, err)
	require.Len(t, escalated, 1)

	// Connectivity returns and the user edits the same profile again.
	f.remote.submitErr = nil
	p.Age = 61
	enqueueProfile(t, f, p, 1)

	report, err := f.manager.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Uploaded)

	// The accepted later edit resolves the stranded escalated snapshot;
	// it would otherwise sit escalated forever.
	escalated, err = f.outbox.ListEscalated(ctx)
	require.NoError(t, err)
	assert.Empty(t, escalated)
}
