package outbox

import (
	"context"
	"log"
	"time"

	"github.com/letteros/letteros/internal/pkg/logger"
)

// ApplyFunc performs the remote write for an entry.
type ApplyFunc func(ctx context.Context, e Entry) error

// Log is the subset of RedisOutbox the reconciler needs.
type Log interface {
	Claim(ctx context.Context) (*Entry, error)
	Ack(ctx context.Context, e *Entry) error
	Nack(ctx context.Context, e *Entry, cause error) (bool, error)
	Recover(ctx context.Context) (int, error)
}

// Reconciler drains the outbox into the remote store.
type Reconciler struct {
	log           Log
	apply         ApplyFunc
	remoteTimeout time.Duration
	pollInterval  time.Duration
	logger        *logger.Logger
}

// NewReconciler creates a reconciler. Each remote write gets remoteTimeout.
func NewReconciler(l Log, apply ApplyFunc, remoteTimeout, pollInterval time.Duration) *Reconciler {
	if remoteTimeout <= 0 {
		remoteTimeout = 3 * time.Second
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Reconciler{
		log:           l,
		apply:         apply,
		remoteTimeout: remoteTimeout,
		pollInterval:  pollInterval,
		logger:        logger.Default().With("component", "outbox"),
	}
}

// Run recovers abandoned entries, then drains on every tick until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	if n, err := r.log.Recover(ctx); err != nil {
		r.logger.Error("recover failed", "error", err)
	} else if n > 0 {
		log.Printf("[outbox] recovered %d in-flight entries", n)
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		if _, err := r.Drain(ctx); err != nil && ctx.Err() == nil {
			r.logger.Warn("drain stopped", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Drain applies pending entries in order until the log is empty or an entry
// fails. A failed entry stays at the head so later writes for the same
// entity are not applied before it.
func (r *Reconciler) Drain(ctx context.Context) (int, error) {
	applied := 0
	for ctx.Err() == nil {
		e, err := r.log.Claim(ctx)
		if err != nil {
			return applied, err
		}
		if e == nil {
			return applied, nil
		}

		applyCtx, cancel := context.WithTimeout(ctx, r.remoteTimeout)
		err = r.apply(applyCtx, *e)
		cancel()

		if err != nil {
			dead, nackErr := r.log.Nack(ctx, e, err)
			if nackErr != nil {
				return applied, nackErr
			}
			if dead {
				r.logger.Error("entry dead-lettered", "entry", e.ID, "entity", e.EntityID, "attempts", e.Attempts, "error", err)
				continue
			}
			return applied, err
		}
		if err := r.log.Ack(ctx, e); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, ctx.Err()
}
