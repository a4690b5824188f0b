package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/letteros/letteros/internal/domain"
)

// DefaultBatchSize matches the document store's per-transaction write limit.
const DefaultBatchSize = 500

// BatchWriter persists one batch of subscribers.
type BatchWriter interface {
	PutBatch(ctx context.Context, subs []domain.Subscriber) error
}

// ProgressFunc is called after each committed batch.
type ProgressFunc func(imported, total int)

// Commit writes candidates for userID in sequential batches of batchSize.
// It returns how many subscribers were committed; on error that count covers
// only the batches that succeeded before the failing one.
func Commit(ctx context.Context, userID string, candidates []Candidate, w BatchWriter, batchSize int, progress ProgressFunc) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	total := len(candidates)
	now := time.Now().UTC()
	imported := 0

	for start := 0; start < total; start += batchSize {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		end := start + batchSize
		if end > total {
			end = total
		}

		batch := make([]domain.Subscriber, 0, end-start)
		for _, c := range candidates[start:end] {
			batch = append(batch, domain.Subscriber{
				ID:        uuid.New().String(),
				UserID:    userID,
				Email:     c.Email,
				Name:      c.Name,
				Tags:      c.Tags,
				CreatedAt: now,
			})
		}

		if err := w.PutBatch(ctx, batch); err != nil {
			return imported, fmt.Errorf("batch %d of %d: %w", start/batchSize+1, (total+batchSize-1)/batchSize, err)
		}
		imported += len(batch)
		if progress != nil {
			progress(imported, total)
		}
	}
	return imported, nil
}
