package newsletter

import (
	"context"
	"time"

	"github.com/letteros/letteros/internal/domain"
)

// Repository defines the data access contract for newsletters.
type Repository interface {
	// Get returns domain.ErrNotFound when no newsletter has the id.
	Get(ctx context.Context, id string) (*domain.Newsletter, error)

	// ListByUser returns the user's newsletters, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Newsletter, error)

	// ListDue returns SCHEDULED newsletters with scheduledAt <= now, across
	// all users.
	ListDue(ctx context.Context, now time.Time) ([]domain.Newsletter, error)

	// Claim clears scheduledAt on a newsletter that is still due at now, so
	// ListDue stops returning it. It reports false when the newsletter is no
	// longer due, which means another sender got there first.
	Claim(ctx context.Context, id string, now time.Time) (bool, error)

	Put(ctx context.Context, n *domain.Newsletter) error

	// Delete returns domain.ErrNotFound when no newsletter has the id.
	Delete(ctx context.Context, id string) error
}

// LaunchContentReader resolves a LaunchContent owned by a user. It returns
// domain.ErrForbidden or domain.ErrNotFound like the launch content service.
type LaunchContentReader interface {
	Get(ctx context.Context, userID, id string) (*domain.LaunchContent, error)
}

// Input carries the writable fields of a newsletter.
type Input struct {
	Title           string                  `json:"title"`
	Content         string                  `json:"content"`
	LaunchContentID string                  `json:"launchContentId,omitempty"`
	Status          domain.NewsletterStatus `json:"status,omitempty"`
	SegmentTags     []string                `json:"segmentTags,omitempty"`
	ScheduledAt     *time.Time              `json:"scheduledAt,omitempty"`
}

// Validate implements httputil.Validator.
func (in *Input) Validate() error {
	v := &domain.ValidationError{}
	if in.Title == "" {
		v.Add("title", "is required")
	}
	if in.Status != "" && !in.Status.Valid() {
		v.Add("status", "must be one of DRAFT, SCHEDULED, SENT, FAILED")
	}
	if in.Status == domain.NewsletterScheduled && in.ScheduledAt == nil {
		v.Add("scheduledAt", "is required when status is SCHEDULED")
	}
	return v.OrNil()
}
