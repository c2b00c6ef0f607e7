package db

import (
	"context"
	"time"

	"tripguardian/internal/types"
)

// HistoryArchiveRepository stores compressed batches of monitoring checks
// trimmed from a trip's embedded history. Rows are write-once; restore
// tooling decompresses the payload offline.
type HistoryArchiveRepository struct {
	db DBTX
}

// NewHistoryArchiveRepository creates a repository backed by the given
// connection.
func NewHistoryArchiveRepository(db DBTX) *HistoryArchiveRepository {
	return &HistoryArchiveRepository{db: db}
}

// InsertArchive writes one compressed batch of archived checks.
// payload is gzip-compressed JSONL; from/to bound the check timestamps in
// the batch.
func (r *HistoryArchiveRepository) InsertArchive(ctx context.Context, tripID string, from, to time.Time, checkCount int, payload []byte) error {
	query := `INSERT INTO monitoring_history_archive
			(trip_id, range_start, range_end, check_count, payload, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query, tripID, from, to, checkCount, payload, time.Now().UTC())
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "inserting history archive batch", err)
	}
	return nil
}
