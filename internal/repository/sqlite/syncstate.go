package sqlite

import (
	"context"
	"fmt"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/internal/repository"
)

type syncStateRepository struct {
	BaseRepository
}

func NewSyncStateRepository(base BaseRepository) repository.SyncStateRepository {
	return &syncStateRepository{base}
}

// Get reads the single bookkeeping row. The row is seeded by migration,
// so it always exists.
func (r *syncStateRepository) Get(ctx context.Context) (*model.SyncState, error) {
	row := r.db.QueryRowxContext(ctx, `
		SELECT last_download_ts, last_pass_started_at, last_pass_finished_at,
			last_pass_status, last_pass_error
		FROM sync_state WHERE id = 1`)

	var (
		state      model.SyncState
		startedMs  *int64
		finishedMs *int64
	)
	err := row.Scan(
		&state.LastDownloadTimestamp, &startedMs, &finishedMs,
		&state.LastPassStatus, &state.LastPassError,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	state.LastPassStartedAt = fromMillisPtr(startedMs)
	state.LastPassFinishedAt = fromMillisPtr(finishedMs)
	return &state, nil
}

func (r *syncStateRepository) Save(ctx context.Context, state *model.SyncState) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sync_state SET
			last_download_ts = ?,
			last_pass_started_at = ?,
			last_pass_finished_at = ?,
			last_pass_status = ?,
			last_pass_error = ?
		WHERE id = 1`,
		state.LastDownloadTimestamp,
		toMillisPtr(state.LastPassStartedAt),
		toMillisPtr(state.LastPassFinishedAt),
		state.LastPassStatus,
		state.LastPassError,
	)
	if err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}
