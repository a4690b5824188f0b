package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/letteros/letteros/internal/domain"
)

// NewsletterRepo stores newsletters in a map keyed by id.
type NewsletterRepo struct {
	mu    sync.RWMutex
	items map[string]domain.Newsletter
}

func NewNewsletterRepo() *NewsletterRepo {
	return &NewsletterRepo{items: make(map[string]domain.Newsletter)}
}

func (r *NewsletterRepo) Get(_ context.Context, id string) (*domain.Newsletter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &n, nil
}

func (r *NewsletterRepo) ListByUser(_ context.Context, userID string) ([]domain.Newsletter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Newsletter{}
	for _, n := range r.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListDue returns scheduled newsletters whose scheduledAt is at or before now,
// oldest first.
func (r *NewsletterRepo) ListDue(_ context.Context, now time.Time) ([]domain.Newsletter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Newsletter
	for _, n := range r.items {
		if n.IsDue(now) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(*out[j].ScheduledAt) })
	return out, nil
}

func (r *NewsletterRepo) Claim(_ context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !n.IsDue(now) {
		return false, nil
	}
	n.ScheduledAt = nil
	n.UpdatedAt = now.UTC()
	r.items[id] = n
	return true, nil
}

func (r *NewsletterRepo) Put(_ context.Context, n *domain.Newsletter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[n.ID] = *n
	return nil
}

func (r *NewsletterRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}
