package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/letteros/letteros/internal/domain"
)

// LaunchContentRepo stores LaunchContent entities in a map keyed by id.
type LaunchContentRepo struct {
	mu    sync.RWMutex
	items map[string]domain.LaunchContent
}

func NewLaunchContentRepo() *LaunchContentRepo {
	return &LaunchContentRepo{items: make(map[string]domain.LaunchContent)}
}

func (r *LaunchContentRepo) Get(_ context.Context, id string) (*domain.LaunchContent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lc, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &lc, nil
}

func (r *LaunchContentRepo) ListByUser(_ context.Context, userID string) ([]domain.LaunchContent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.LaunchContent{}
	for _, lc := range r.items {
		if lc.UserID == userID {
			out = append(out, lc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *LaunchContentRepo) Put(_ context.Context, lc *domain.LaunchContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[lc.ID] = *lc
	return nil
}

func (r *LaunchContentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}
