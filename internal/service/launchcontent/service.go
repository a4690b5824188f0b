package launchcontent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/outbox"
	"github.com/letteros/letteros/internal/pkg/logger"
)

// EntryKind tags outbox entries written by this service.
const EntryKind = "launch_content"

// Service implements LaunchContent business logic. It is safe for concurrent
// use if its dependencies are.
type Service struct {
	repo   Repository
	cache  Cache
	outbox Outbox
	now    func() time.Time
	log    *logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithWriteBehind routes writes through cache and ob instead of writing the
// repository directly.
func WithWriteBehind(cache Cache, ob Outbox) Option {
	return func(s *Service) {
		s.cache = cache
		s.outbox = ob
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a launch content service backed by repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
		log:  logger.Default().With("component", "launchcontent"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) writeBehind() bool { return s.cache != nil && s.outbox != nil }

// Create validates and stores a new entity owned by userID. generatedBy
// defaults to manual.
func (s *Service) Create(ctx context.Context, userID string, in *domain.LaunchContent) (*domain.LaunchContent, error) {
	lc := *in
	if err := lc.Validate(); err != nil {
		return nil, err
	}
	if lc.Launch.GeneratedBy == "" {
		lc.Launch.GeneratedBy = domain.GeneratedManual
	}
	now := s.now().UTC()
	lc.ID = uuid.New().String()
	lc.UserID = userID
	lc.CreatedAt = now
	lc.UpdatedAt = now

	if err := s.put(ctx, &lc); err != nil {
		return nil, err
	}
	return &lc, nil
}

// Get returns one entity owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.LaunchContent, error) {
	if s.writeBehind() {
		lc, err := s.cache.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if lc != nil {
			return owned(lc, userID)
		}
	}
	lc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return owned(lc, userID)
}

// List returns the user's entities, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]domain.LaunchContent, error) {
	if !s.writeBehind() {
		return s.repo.ListByUser(ctx, userID)
	}
	if err := s.ensureWarm(ctx, userID); err != nil {
		return nil, err
	}
	return s.cache.ListByUser(ctx, userID)
}

// Update replaces the mutable fields of an entity owned by userID.
func (s *Service) Update(ctx context.Context, userID, id string, in *domain.LaunchContent) (*domain.LaunchContent, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	lc := *in
	lc.ID = existing.ID
	lc.UserID = existing.UserID
	lc.CreatedAt = existing.CreatedAt
	lc.UpdatedAt = s.now().UTC()
	if lc.Launch.GeneratedBy == "" {
		lc.Launch.GeneratedBy = existing.Launch.GeneratedBy
	}

	if err := s.put(ctx, &lc); err != nil {
		return nil, err
	}
	return &lc, nil
}

// Delete removes an entity owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	lc, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if !s.writeBehind() {
		return s.repo.Delete(ctx, id)
	}

	if err := s.ensureWarm(ctx, userID); err != nil {
		return err
	}
	if err := s.outbox.Append(ctx, outbox.Entry{
		Kind:     EntryKind,
		Op:       outbox.OpDelete,
		EntityID: lc.ID,
		UserID:   userID,
	}); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, lc); err != nil {
		s.log.Warn("cache delete failed", "id", lc.ID, "error", err)
		_ = s.cache.Invalidate(ctx, userID)
	}
	return nil
}

// Apply persists one outbox entry to the repository. It is the reconciler's
// ApplyFunc for this service.
func (s *Service) Apply(ctx context.Context, e outbox.Entry) error {
	switch e.Op {
	case outbox.OpPut:
		var lc domain.LaunchContent
		if err := json.Unmarshal(e.Payload, &lc); err != nil {
			return fmt.Errorf("decode launch content %s: %w", e.EntityID, err)
		}
		return s.repo.Put(ctx, &lc)
	case outbox.OpDelete:
		err := s.repo.Delete(ctx, e.EntityID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownOp, e.Op)
}

func (s *Service) put(ctx context.Context, lc *domain.LaunchContent) error {
	if !s.writeBehind() {
		return s.repo.Put(ctx, lc)
	}

	if err := s.ensureWarm(ctx, lc.UserID); err != nil {
		return err
	}
	payload, err := json.Marshal(lc)
	if err != nil {
		return fmt.Errorf("encode launch content: %w", err)
	}
	if err := s.outbox.Append(ctx, outbox.Entry{
		Kind:     EntryKind,
		Op:       outbox.OpPut,
		EntityID: lc.ID,
		UserID:   lc.UserID,
		Payload:  payload,
	}); err != nil {
		return err
	}
	if err := s.cache.Put(ctx, lc); err != nil {
		s.log.Warn("cache write failed", "id", lc.ID, "error", err)
		_ = s.cache.Invalidate(ctx, lc.UserID)
	}
	return nil
}

// ensureWarm loads the user's entities from the repository into the cache
// the first time they are needed.
func (s *Service) ensureWarm(ctx context.Context, userID string) error {
	warm, err := s.cache.IsWarm(ctx, userID)
	if err != nil {
		return err
	}
	if warm {
		return nil
	}
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load launch content for cache: %w", err)
	}
	return s.cache.Warm(ctx, userID, items)
}

func owned(lc *domain.LaunchContent, userID string) (*domain.LaunchContent, error) {
	if lc.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return lc, nil
}
