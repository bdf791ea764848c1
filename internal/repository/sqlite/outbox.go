package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

// Enqueue appends an entry outside any entity transaction. Most writes go
// through the per-entity repositories, which enqueue atomically with the
// entity; this path exists for standalone appends and tests.
func (r *outboxRepository) Enqueue(ctx context.Context, entry *model.OutboxEntry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}
	if entry.Payload == nil && entry.Operation != model.OpDelete {
		return fmt.Errorf("entry payload cannot be nil")
	}
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		return insertOutboxTx(ctx, tx, entry)
	})
}

const outboxColumns = `id, entity_type, entity_id, operation, payload,
	base_timestamp, status, created_at, retry_count, last_error`

// PeekBatch returns pending entries in enqueue order, using the rowid as
// a monotonic sequence. created_at alone cannot break ties when two
// mutations land in the same millisecond, and coalescing depends on the
// later enqueue winning. Escalated entries are excluded; they wait for
// background escalation, not another retry.
func (r *outboxRepository) PeekBatch(ctx context.Context, maxSize int) ([]*model.OutboxEntry, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT `+outboxColumns+` FROM outbox
		WHERE status = ?
		ORDER BY rowid ASC
		LIMIT ?`,
		string(model.OutboxStatusPending), maxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to peek outbox batch: %w", err)
	}
	defer rows.Close()

	var entries []*model.OutboxEntry
	for rows.Next() {
		entry, err := scanOutbox(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Ack removes entries after confirmed remote acceptance. Superseded
// entries for the same entity are acked together with the winner.
func (r *outboxRepository) Ack(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM outbox WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to ack outbox entries: %w", err)
	}
	return nil
}

func (r *outboxRepository) BumpRetry(ctx context.Context, id uuid.UUID, lastError string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outbox SET retry_count = retry_count + 1, last_error = ?
		WHERE id = ?`,
		lastError, id.String())
	if err != nil {
		return fmt.Errorf("failed to bump retry count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("outbox entry", nil)
	}
	return nil
}

// Escalate flags an entry past the retry ceiling. It stays in the log.
func (r *outboxRepository) Escalate(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE outbox SET status = ? WHERE id = ?`,
		string(model.OutboxStatusEscalated), id.String())
	if err != nil {
		return fmt.Errorf("failed to escalate outbox entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("outbox entry", nil)
	}
	return nil
}

// ExpireSuperseded removes escalated entries for an entity that were
// enqueued at or before asOf. Called once a later mutation for the same
// entity has been accepted remotely, at which point the escalated
// snapshot can never be the winner again.
func (r *outboxRepository) ExpireSuperseded(ctx context.Context, entityType model.EntityType, entityID uuid.UUID, asOf time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM outbox
		WHERE status = ? AND entity_type = ? AND entity_id = ? AND created_at <= ?`,
		string(model.OutboxStatusEscalated), string(entityType), entityID.String(), toMillis(asOf))
	if err != nil {
		return fmt.Errorf("failed to expire superseded entries: %w", err)
	}
	return nil
}

func (r *outboxRepository) ListEscalated(ctx context.Context) ([]*model.OutboxEntry, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT `+outboxColumns+` FROM outbox
		WHERE status = ? ORDER BY created_at ASC`,
		string(model.OutboxStatusEscalated))
	if err != nil {
		return nil, fmt.Errorf("failed to list escalated entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.OutboxEntry
	for rows.Next() {
		entry, err := scanOutbox(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *outboxRepository) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowxContext(ctx,
		`SELECT COUNT(*) FROM outbox WHERE status = ?`,
		string(model.OutboxStatusPending)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending entries: %w", err)
	}
	return count, nil
}

func scanOutbox(row rowScanner) (*model.OutboxEntry, error) {
	var (
		entry      model.OutboxEntry
		idStr      string
		typeStr    string
		entityStr  string
		opStr      string
		payloadRaw string
		statusStr  string
		createdMs  int64
	)
	err := row.Scan(
		&idStr, &typeStr, &entityStr, &opStr, &payloadRaw,
		&entry.BaseTimestamp, &statusStr, &createdMs,
		&entry.RetryCount, &entry.LastError,
	)
	if err != nil {
		return nil, err
	}

	if entry.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if entry.EntityID, err = uuid.Parse(entityStr); err != nil {
		return nil, err
	}
	entry.EntityType = model.EntityType(typeStr)
	entry.Operation = model.Operation(opStr)
	entry.Status = model.OutboxStatus(statusStr)
	entry.Payload = json.RawMessage(payloadRaw)
	entry.CreatedAt = fromMillis(createdMs)
	return &entry, nil
}
