package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/letteros/letteros/internal/domain"
)

// SubscriberRepo stores subscribers in a map keyed by id.
type SubscriberRepo struct {
	mu    sync.RWMutex
	items map[string]domain.Subscriber
}

func NewSubscriberRepo() *SubscriberRepo {
	return &SubscriberRepo{items: make(map[string]domain.Subscriber)}
}

func (r *SubscriberRepo) Get(_ context.Context, id string) (*domain.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *SubscriberRepo) ListByUser(_ context.Context, userID string) ([]domain.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Subscriber{}
	for _, s := range r.items {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Email < out[j].Email
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *SubscriberRepo) Put(_ context.Context, s *domain.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID] = *s
	return nil
}

// PutBatch stores all subscribers under one lock, so a batch is visible
// all at once or not at all.
func (r *SubscriberRepo) PutBatch(_ context.Context, subs []domain.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range subs {
		r.items[s.ID] = s
	}
	return nil
}

func (r *SubscriberRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// Count returns the number of stored subscribers across all users.
func (r *SubscriberRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
