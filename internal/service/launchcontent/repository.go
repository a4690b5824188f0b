package launchcontent

import (
	"context"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/outbox"
)

// Repository is the remote store of record.
type Repository interface {
	// Get returns domain.ErrNotFound when no entity has the id.
	Get(ctx context.Context, id string) (*domain.LaunchContent, error)

	// ListByUser returns the user's entities, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.LaunchContent, error)

	// Put creates or replaces an entity.
	Put(ctx context.Context, lc *domain.LaunchContent) error

	// Delete returns domain.ErrNotFound when no entity has the id.
	Delete(ctx context.Context, id string) error
}

// Cache is the instant-read copy of a user's entities.
//
// A user's entities are loaded into the cache as a whole (Warm) before the
// first write, so once a user is warm the cache is complete for them.
type Cache interface {
	IsWarm(ctx context.Context, userID string) (bool, error)
	Warm(ctx context.Context, userID string, items []domain.LaunchContent) error

	// Get returns nil, nil on a miss and domain.ErrNotFound for an entity
	// deleted locally but not yet removed remotely.
	Get(ctx context.Context, id string) (*domain.LaunchContent, error)
	ListByUser(ctx context.Context, userID string) ([]domain.LaunchContent, error)
	Put(ctx context.Context, lc *domain.LaunchContent) error
	Delete(ctx context.Context, lc *domain.LaunchContent) error

	// Invalidate drops the user's warm marker so the next access reloads
	// from the repository.
	Invalidate(ctx context.Context, userID string) error
}

// Outbox is the durable write log.
type Outbox interface {
	Append(ctx context.Context, e outbox.Entry) error
}
