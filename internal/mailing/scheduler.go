package mailing

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/pkg/distlock"
	"github.com/letteros/letteros/internal/pkg/logger"
)

// Newsletters is the part of the newsletter service the scheduler drives.
type Newsletters interface {
	ListDue(ctx context.Context, now time.Time) ([]domain.Newsletter, error)
	Claim(ctx context.Context, id string, now time.Time) (bool, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// Subscribers lists a user's subscribers, narrowed to any of tags.
type Subscribers interface {
	List(ctx context.Context, userID string, tags []string) ([]domain.Subscriber, error)
}

const (
	schedulerLockKey = "mailing:scheduler"
	defaultInterval  = 30 * time.Second
)

// Scheduler sends due newsletters.
type Scheduler struct {
	newsletters Newsletters
	subscribers Subscribers
	renderer    *Renderer
	sender      Sender
	senderName  string
	locks       distlock.Factory
	interval    time.Duration
	lockTTL     time.Duration
	now         func() time.Time
	logger      *logger.Logger
}

func NewScheduler(newsletters Newsletters, subscribers Subscribers, renderer *Renderer, sender Sender, senderName string, locks distlock.Factory, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		newsletters: newsletters,
		subscribers: subscribers,
		renderer:    renderer,
		sender:      sender,
		senderName:  senderName,
		locks:       locks,
		interval:    interval,
		lockTTL:     5 * time.Minute,
		now:         time.Now,
		logger:      logger.Default().With("component", "scheduler"),
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("[scheduler] started, polling every %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Tick(ctx); err != nil {
			s.logger.Error("scheduler tick failed", "error", err)
		}
		select {
		case <-ctx.Done():
			log.Printf("[scheduler] stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick sends every newsletter due now and returns how many were processed.
// It does nothing when another instance holds the lock. Each newsletter is
// claimed before its first message goes out, so a tick that outlives the
// lock cannot hand the same newsletter to a second instance.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	lock := s.locks.NewLock(schedulerLockKey, s.lockTTL)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire scheduler lock: %w", err)
	}
	if !ok {
		return 0, nil
	}
	defer lock.Release(context.Background())

	now := s.now()
	due, err := s.newsletters.ListDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due newsletters: %w", err)
	}
	processed := 0
	for i := range due {
		claimed, err := s.newsletters.Claim(ctx, due[i].ID, now)
		if err != nil {
			s.logger.Error("claim newsletter failed", "newsletter", due[i].ID, "error", err)
			continue
		}
		if !claimed {
			continue
		}
		s.deliver(ctx, &due[i], lock)
		processed++
	}
	return processed, nil
}

// deliver sends n to every matching subscriber. Any failed recipient marks
// the newsletter FAILED with a count of what did go out; it is not retried.
func (s *Scheduler) deliver(ctx context.Context, n *domain.Newsletter, lock distlock.DistLock) {
	subs, err := s.subscribers.List(ctx, n.UserID, n.SegmentTags)
	if err != nil {
		s.fail(ctx, n, fmt.Sprintf("loading subscribers: %v", err))
		return
	}
	if len(subs) == 0 {
		s.fail(ctx, n, "no subscribers match this newsletter")
		return
	}

	sent, lockLost := 0, false
	var firstErr error
	for i := range subs {
		if held, err := lock.Extend(ctx); (err != nil || !held) && !lockLost {
			lockLost = true
			s.logger.Warn("scheduler lock lost", "newsletter", n.ID, "sent", sent, "error", err)
		}
		msg, err := s.renderer.Render(n, &subs[i], s.senderName)
		if err == nil {
			_, err = s.sender.Send(ctx, msg)
		}
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Warn("newsletter delivery failed", "newsletter", n.ID, "email", subs[i].Email, "error", err)
			continue
		}
		sent++
	}

	if firstErr != nil {
		s.fail(ctx, n, fmt.Sprintf("delivered %d of %d: %v", sent, len(subs), firstErr))
		return
	}
	if err := s.newsletters.MarkSent(ctx, n.ID, s.now()); err != nil {
		s.logger.Error("mark sent failed", "newsletter", n.ID, "error", err)
		return
	}
	s.logger.Info("newsletter sent", "newsletter", n.ID, "recipients", sent)
}

func (s *Scheduler) fail(ctx context.Context, n *domain.Newsletter, reason string) {
	s.logger.Warn("newsletter failed", "newsletter", n.ID, "reason", reason)
	if err := s.newsletters.MarkFailed(ctx, n.ID, reason); err != nil {
		s.logger.Error("mark failed failed", "newsletter", n.ID, "error", err)
	}
}
