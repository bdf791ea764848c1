package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

type OutboxStatus string

const (
	// OutboxStatusPending entries await a sync cycle.
	OutboxStatusPending OutboxStatus = "pending"
	// OutboxStatusEscalated entries exceeded the retry ceiling. They stay
	// in the log for background escalation, never silently dropped.
	OutboxStatusEscalated OutboxStatus = "escalated"
)

// OutboxEntry is one pending local mutation awaiting transmission.
// Payload is a snapshot taken at enqueue time and immutable afterwards:
// the upload always transmits this snapshot even if the live entity
// changes before the sync cycle runs.
type OutboxEntry struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	EntityType EntityType      `db:"entity_type" json:"entity_type"`
	EntityID   uuid.UUID       `db:"entity_id" json:"entity_id"`
	Operation  Operation       `db:"operation" json:"operation"`
	Payload    json.RawMessage `db:"payload" json:"payload"`
	// BaseTimestamp is the remote-known last_updated at enqueue time,
	// zero when the entity has never synced. The upload pass compares it
	// against the server copy for last-write-wins.
	BaseTimestamp int64        `db:"base_timestamp" json:"base_timestamp"`
	Status        OutboxStatus `db:"status" json:"status"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	RetryCount    int          `db:"retry_count" json:"retry_count"`
	LastError     *string      `db:"last_error" json:"last_error,omitempty"`
}

// NewOutboxEntry snapshots a mutation for upload. baseTimestamp is the
// remote-known last_updated before this mutation, zero for entities the
// server has never seen.
func NewOutboxEntry(entityType EntityType, entityID uuid.UUID, op Operation, payload interface{}, baseTimestamp int64) (*OutboxEntry, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return &OutboxEntry{
		ID:            uuid.New(),
		EntityType:    entityType,
		EntityID:      entityID,
		Operation:     op,
		Payload:       raw,
		BaseTimestamp: baseTimestamp,
		Status:        OutboxStatusPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// SyncState is the single persisted row of sync bookkeeping. It is read
// and written explicitly by each sync pass, never held as ambient state.
type SyncState struct {
	// LastDownloadTimestamp is the server timestamp of the newest
	// reference record applied locally.
	LastDownloadTimestamp int64      `db:"last_download_ts" json:"last_download_timestamp"`
	LastPassStartedAt     *time.Time `db:"last_pass_started_at" json:"last_pass_started_at,omitempty"`
	LastPassFinishedAt    *time.Time `db:"last_pass_finished_at" json:"last_pass_finished_at,omitempty"`
	LastPassStatus        string     `db:"last_pass_status" json:"last_pass_status"`
	LastPassError         *string    `db:"last_pass_error" json:"last_pass_error,omitempty"`
}

// Sync pass terminal statuses.
const (
	PassStatusOK      = "ok"
	PassStatusPartial = "partial"
	PassStatusFailed  = "failed"
)
