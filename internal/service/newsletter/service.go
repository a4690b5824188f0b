package newsletter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/letteros/letteros/internal/domain"
)

// Service implements newsletter business logic.
type Service struct {
	repo     Repository
	products LaunchContentReader
	now      func() time.Time
}

// NewService creates a newsletter service. products may be nil, in which
// case launchContentId references are stored unchecked.
func NewService(repo Repository, products LaunchContentReader) *Service {
	return &Service{repo: repo, products: products, now: time.Now}
}

// Create stores a new newsletter owned by userID. Status defaults to DRAFT.
func (s *Service) Create(ctx context.Context, userID string, in Input) (*domain.Newsletter, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkProduct(ctx, userID, in.LaunchContentID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	n := &domain.Newsletter{
		ID:              uuid.New().String(),
		UserID:          userID,
		LaunchContentID: in.LaunchContentID,
		Title:           in.Title,
		Content:         in.Content,
		Status:          in.Status,
		SegmentTags:     in.SegmentTags,
		ScheduledAt:     in.ScheduledAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if n.Status == "" {
		n.Status = domain.NewsletterDraft
	}
	if n.Status == domain.NewsletterSent {
		n.SentAt = &now
	}

	if err := s.repo.Put(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Get returns one newsletter owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Newsletter, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return n, nil
}

// List returns the user's newsletters, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Newsletter, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Update replaces the writable fields. An empty status keeps the current one.
func (s *Service) Update(ctx context.Context, userID, id string, in Input) (*domain.Newsletter, error) {
	n, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.LaunchContentID != n.LaunchContentID {
		if err := s.checkProduct(ctx, userID, in.LaunchContentID); err != nil {
			return nil, err
		}
	}

	n.Title = in.Title
	n.Content = in.Content
	n.LaunchContentID = in.LaunchContentID
	n.SegmentTags = in.SegmentTags
	if in.ScheduledAt != nil {
		n.ScheduledAt = in.ScheduledAt
	}
	if in.Status != "" {
		s.applyStatus(n, in.Status)
	}
	n.UpdatedAt = s.now().UTC()

	if err := s.repo.Put(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// SetStatus writes status directly, without transition checks.
func (s *Service) SetStatus(ctx context.Context, userID, id string, status domain.NewsletterStatus) (*domain.Newsletter, error) {
	if !status.Valid() {
		return nil, domain.NewValidationError("status", "must be one of DRAFT, SCHEDULED, SENT, FAILED")
	}
	n, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	s.applyStatus(n, status)
	n.UpdatedAt = s.now().UTC()
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Schedule marks the newsletter SCHEDULED for at.
func (s *Service) Schedule(ctx context.Context, userID, id string, at time.Time) (*domain.Newsletter, error) {
	if at.IsZero() {
		return nil, domain.NewValidationError("scheduledAt", "is required")
	}
	n, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	at = at.UTC()
	n.Status = domain.NewsletterScheduled
	n.ScheduledAt = &at
	n.FailureReason = ""
	n.UpdatedAt = s.now().UTC()
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// SendNow schedules the newsletter for immediate delivery by the scheduler.
func (s *Service) SendNow(ctx context.Context, userID, id string) (*domain.Newsletter, error) {
	return s.Schedule(ctx, userID, id, s.now())
}

// Delete removes a newsletter owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// ListDue returns newsletters whose send time has come.
func (s *Service) ListDue(ctx context.Context, now time.Time) ([]domain.Newsletter, error) {
	return s.repo.ListDue(ctx, now)
}

// Claim takes a due newsletter for delivery. Only one caller gets true for
// a given schedule.
func (s *Service) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	return s.repo.Claim(ctx, id, now)
}

// MarkSent records a successful delivery.
func (s *Service) MarkSent(ctx context.Context, id string, at time.Time) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	at = at.UTC()
	n.Status = domain.NewsletterSent
	n.SentAt = &at
	n.FailureReason = ""
	n.UpdatedAt = at
	return s.repo.Put(ctx, n)
}

// MarkFailed records a failed delivery.
func (s *Service) MarkFailed(ctx context.Context, id, reason string) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	n.Status = domain.NewsletterFailed
	n.FailureReason = reason
	n.UpdatedAt = s.now().UTC()
	return s.repo.Put(ctx, n)
}

func (s *Service) applyStatus(n *domain.Newsletter, status domain.NewsletterStatus) {
	n.Status = status
	if status == domain.NewsletterSent && n.SentAt == nil {
		now := s.now().UTC()
		n.SentAt = &now
	}
}

func (s *Service) checkProduct(ctx context.Context, userID, launchContentID string) error {
	if launchContentID == "" || s.products == nil {
		return nil
	}
	if _, err := s.products.Get(ctx, userID, launchContentID); err != nil {
		return fmt.Errorf("launch content %s: %w", launchContentID, err)
	}
	return nil
}
