// Package sync reconciles the local entity store and outbox with the
// remote authority. Reference data downloads are server-wins; user-data
// uploads are last-write-wins by timestamp. Both passes are idempotent
// and individually retryable, and synchronization never blocks a
// foreground read or mutation.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
	"github.com/gramseva/swasthya-sahayak/pkg/metrics"
)

type Config struct {
	BatchSize    int
	Interval     time.Duration
	BatchTimeout time.Duration
	RetryCeiling int
}

// PassReport is the caller-visible outcome of one sync pass. Every entry
// in every attempted batch reaches a terminal acked/retry-flagged state,
// or it is listed in Unresolved and the pass reports partial failure.
type PassReport struct {
	Status     string      `json:"status"`
	Downloaded int         `json:"downloaded"`
	Uploaded   int         `json:"uploaded"`
	Conflicts  int         `json:"conflicts"`
	Retried    int         `json:"retried"`
	Escalated  int         `json:"escalated"`
	Unresolved []uuid.UUID `json:"unresolved,omitempty"`
}

type Manager struct {
	outbox  repository.OutboxRepository
	state   repository.SyncStateRepository
	applier *Applier
	client  RemoteClient
	config  Config
	logger  *logger.Logger
	metrics *metrics.Metrics
	// onReferenceApplied hooks run after a download pass applied at least
	// one record; services use them to drop stale caches.
	onReferenceApplied []func()
	trigger            chan struct{}
	now                func() time.Time
}

func NewManager(
	outbox repository.OutboxRepository,
	state repository.SyncStateRepository,
	applier *Applier,
	client RemoteClient,
	config Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Manager {
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.Interval <= 0 {
		config.Interval = 15 * time.Minute
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = 30 * time.Second
	}
	if config.RetryCeiling <= 0 {
		config.RetryCeiling = 5
	}

	return &Manager{
		outbox:  outbox,
		state:   state,
		applier: applier,
		client:  client,
		config:  config,
		logger:  log.WithComponent("sync"),
		metrics: m,
		trigger: make(chan struct{}, 1),
		now:     time.Now,
	}
}

// OnReferenceApplied registers a cache-invalidation hook.
func (m *Manager) OnReferenceApplied(hook func()) {
	m.onReferenceApplied = append(m.onReferenceApplied, hook)
}

// Start runs periodic passes until the context is cancelled. TriggerNow
// requests an immediate pass, e.g. on a connectivity change.
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.logger.Info("starting sync manager",
		"interval", m.config.Interval.String(),
		"batch_size", m.config.BatchSize)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("shutting down sync manager")
			return
		case <-ticker.C:
		case <-m.trigger:
		}

		report, err := m.RunPass(ctx)
		if err != nil {
			m.logger.Error(err, "sync pass failed")
			continue
		}
		m.logger.Info("sync pass finished",
			"status", report.Status,
			"downloaded", report.Downloaded,
			"uploaded", report.Uploaded,
			"conflicts", report.Conflicts,
			"retried", report.Retried)
	}
}

// TriggerNow schedules an immediate pass without blocking the caller.
func (m *Manager) TriggerNow() {
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

// RunPass executes one download pass and one upload pass, persisting the
// checkpoint and pass outcome. The two passes are independent: a failed
// download never blocks the upload, and vice versa.
func (m *Manager) RunPass(ctx context.Context) (*PassReport, error) {
	timer := time.Now()
	defer func() {
		m.metrics.SyncPassLatency.Observe(time.Since(timer).Seconds())
	}()

	state, err := m.state.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}
	started := m.now().UTC()
	state.LastPassStartedAt = &started

	report := &PassReport{}

	downloadErr := m.download(ctx, state, report)
	uploadErr := m.upload(ctx, report)

	switch {
	case downloadErr == nil && uploadErr == nil && len(report.Unresolved) == 0:
		report.Status = model.PassStatusOK
	case downloadErr != nil && uploadErr != nil:
		report.Status = model.PassStatusFailed
	default:
		report.Status = model.PassStatusPartial
	}

	finished := m.now().UTC()
	state.LastPassFinishedAt = &finished
	state.LastPassStatus = report.Status
	state.LastPassError = passError(downloadErr, uploadErr)

	if err := m.state.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to persist sync state: %w", err)
	}

	if pending, err := m.outbox.PendingCount(ctx); err == nil {
		m.metrics.OutboxQueueSize.Set(float64(pending))
	}
	return report, nil
}

// Status reports the persisted checkpoint plus live queue counts. Local
// operations never depend on it; failures are confined to this surface.
func (m *Manager) Status(ctx context.Context) (*model.SyncState, int, int, error) {
	state, err := m.state.Get(ctx)
	if err != nil {
		return nil, 0, 0, err
	}
	pending, err := m.outbox.PendingCount(ctx)
	if err != nil {
		return nil, 0, 0, err
	}
	escalated, err := m.outbox.ListEscalated(ctx)
	if err != nil {
		return nil, 0, 0, err
	}
	return state, pending, len(escalated), nil
}

// download pulls reference records changed since the checkpoint and
// applies them server-wins. The checkpoint only advances when every
// record in the response applied cleanly, so a failed apply is retried
// on the next pass.
func (m *Manager) download(ctx context.Context, state *model.SyncState, report *PassReport) error {
	dctx, cancel := context.WithTimeout(ctx, m.config.BatchTimeout)
	defer cancel()

	resp, err := m.client.FetchChanges(dctx, &ChangesRequest{
		Since: state.LastDownloadTimestamp,
		Types: model.ReferenceTypes,
	})
	if err != nil {
		return err
	}

	maxTimestamp := state.LastDownloadTimestamp
	for _, record := range resp.Records {
		if !record.EntityType.IsReference() {
			m.logger.Warn("download returned non-reference record, skipping",
				"entity_type", string(record.EntityType))
			continue
		}
		if err := m.applier.Apply(ctx, record); err != nil {
			// A record that fails validation will fail it on every pass;
			// skip it and move the checkpoint past it rather than wedge
			// the download on one bad server row.
			if apperrors.IsValidation(err) {
				m.logger.Warn("download returned invalid record, skipping",
					"entity_type", string(record.EntityType),
					"entity_id", record.EntityID.String(),
					"error", err.Error())
				if record.Timestamp > maxTimestamp {
					maxTimestamp = record.Timestamp
				}
				continue
			}
			return fmt.Errorf("failed to apply %s %s: %w", record.EntityType, record.EntityID, err)
		}
		m.metrics.DownloadedRecords.WithLabelValues(string(record.EntityType)).Inc()
		report.Downloaded++
		if record.Timestamp > maxTimestamp {
			maxTimestamp = record.Timestamp
		}
	}
	state.LastDownloadTimestamp = maxTimestamp

	if report.Downloaded > 0 {
		for _, hook := range m.onReferenceApplied {
			hook()
		}
	}
	return nil
}

// upload drains the outbox in batches. Entries coalesce logically per
// entity id: only the latest snapshot is transmitted, and every
// superseded entry is acked together with its winner. A transport
// failure flags the whole batch for retry and aborts the pass at the
// batch boundary; earlier batches stand.
func (m *Manager) upload(ctx context.Context, report *PassReport) error {
	for {
		if err := ctx.Err(); err != nil {
			return apperrors.Transient("sync pass cancelled", err)
		}

		batch, err := m.outbox.PeekBatch(ctx, m.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to peek outbox: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		winners, supersededBy := coalesce(batch)
		uploads := make([]MutationUpload, 0, len(winners))
		for _, w := range winners {
			uploads = append(uploads, MutationUpload{
				EntityType:    w.entry.EntityType,
				EntityID:      w.entry.EntityID,
				Operation:     w.entry.Operation,
				Payload:       w.entry.Payload,
				BaseTimestamp: w.baseTimestamp,
			})
		}

		bctx, cancel := context.WithTimeout(ctx, m.config.BatchTimeout)
		resp, err := m.client.SubmitBatch(bctx, uploads)
		cancel()
		if err != nil {
			m.flagBatchForRetry(ctx, batch, err, report)
			return err
		}

		verdicts := make(map[uuid.UUID]UploadResult, len(resp.Results))
		for _, result := range resp.Results {
			verdicts[result.EntityID] = result
		}

		acked := 0
		for _, w := range winners {
			result, ok := verdicts[w.entry.EntityID]
			if !ok {
				report.Unresolved = append(report.Unresolved, w.entry.ID)
				continue
			}

			if !result.Accepted {
				// The server copy is strictly newer: adopt it and discard
				// the local edit. This is the documented multi-device
				// tradeoff, not an error.
				if err := m.applier.Apply(ctx, RemoteRecord{
					EntityType: w.entry.EntityType,
					EntityID:   w.entry.EntityID,
					Timestamp:  result.Timestamp,
					Payload:    result.ServerCopy,
				}); err != nil {
					report.Unresolved = append(report.Unresolved, w.entry.ID)
					m.logger.Error(err, "failed to adopt server copy",
						"entity_id", w.entry.EntityID.String())
					continue
				}
				report.Conflicts++
				m.metrics.UploadsRejected.Inc()
			} else {
				report.Uploaded++
				m.metrics.UploadsAccepted.Inc()
			}

			key := entityKey{w.entry.EntityType, w.entry.EntityID}
			ackIDs := append([]uuid.UUID{w.entry.ID}, supersededBy[key]...)
			if err := m.outbox.Ack(ctx, ackIDs); err != nil {
				report.Unresolved = append(report.Unresolved, w.entry.ID)
				m.logger.Error(err, "failed to ack outbox entries",
					"entity_id", w.entry.EntityID.String())
				continue
			}
			// An accepted win also resolves any escalated older snapshot
			// of the same entity: the server now holds something newer.
			if err := m.outbox.ExpireSuperseded(ctx, w.entry.EntityType, w.entry.EntityID, w.entry.CreatedAt); err != nil {
				m.logger.Warn("failed to expire escalated duplicates",
					"entity_id", w.entry.EntityID.String(),
					"error", err.Error())
			}
			acked += len(ackIDs)
			m.metrics.OutboxEntriesAcked.Inc()
		}

		// No forward progress means the server returned no usable
		// verdicts; stop instead of spinning on the same batch.
		if acked == 0 {
			return nil
		}
	}
}

// flagBatchForRetry moves every entry of a failed batch to a terminal
// retry or escalated state. Entries that cannot be flagged are reported
// as unresolved.
func (m *Manager) flagBatchForRetry(ctx context.Context, batch []*model.OutboxEntry, cause error, report *PassReport) {
	for _, entry := range batch {
		if entry.RetryCount+1 >= m.config.RetryCeiling {
			if err := m.outbox.Escalate(ctx, entry.ID); err != nil {
				report.Unresolved = append(report.Unresolved, entry.ID)
				continue
			}
			report.Escalated++
			m.metrics.OutboxEntriesEscalated.Inc()
			m.logger.Warn("outbox entry escalated past retry ceiling",
				"entry_id", entry.ID.String(),
				"entity_type", string(entry.EntityType))
			continue
		}
		if err := m.outbox.BumpRetry(ctx, entry.ID, cause.Error()); err != nil {
			report.Unresolved = append(report.Unresolved, entry.ID)
			continue
		}
		report.Retried++
		m.metrics.OutboxEntriesRetried.Inc()
	}
}

type coalesced struct {
	entry *model.OutboxEntry
	// baseTimestamp is the earliest base among the coalesced entries:
	// the remote-known timestamp before any of the local edits.
	baseTimestamp int64
}

// entityKey identifies an entity across the outbox. The id alone is not
// enough: distinct entity types may carry the same uuid.
type entityKey struct {
	entityType model.EntityType
	entityID   uuid.UUID
}

// coalesce picks the newest snapshot per entity from a batch in enqueue
// order. The log itself is never compacted; superseded entry ids are
// returned so they can be acked with their winner.
func coalesce(batch []*model.OutboxEntry) ([]coalesced, map[entityKey][]uuid.UUID) {
	order := make([]entityKey, 0, len(batch))
	latest := make(map[entityKey]coalesced, len(batch))
	superseded := make(map[entityKey][]uuid.UUID)

	for _, entry := range batch {
		key := entityKey{entry.EntityType, entry.EntityID}
		existing, seen := latest[key]
		if !seen {
			order = append(order, key)
			latest[key] = coalesced{entry: entry, baseTimestamp: entry.BaseTimestamp}
			continue
		}
		superseded[key] = append(superseded[key], existing.entry.ID)
		latest[key] = coalesced{entry: entry, baseTimestamp: existing.baseTimestamp}
	}

	winners := make([]coalesced, 0, len(order))
	for _, key := range order {
		winners = append(winners, latest[key])
	}
	return winners, superseded
}

func passError(downloadErr, uploadErr error) *string {
	var msg string
	switch {
	case downloadErr != nil && uploadErr != nil:
		msg = fmt.Sprintf("download: %v; upload: %v", downloadErr, uploadErr)
	case downloadErr != nil:
		msg = downloadErr.Error()
	case uploadErr != nil:
		msg = uploadErr.Error()
	default:
		return nil
	}
	return &msg
}
