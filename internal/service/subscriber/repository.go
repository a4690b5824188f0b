package subscriber

import (
	"context"
	"strings"

	"github.com/letteros/letteros/internal/domain"
)

// Repository defines the data access contract for subscribers.
type Repository interface {
	// Get returns domain.ErrNotFound when no subscriber has the id.
	Get(ctx context.Context, id string) (*domain.Subscriber, error)

	// ListByUser returns the user's subscribers, oldest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Subscriber, error)

	Put(ctx context.Context, s *domain.Subscriber) error

	// PutBatch writes up to one import batch. Implementations write the batch
	// as a unit where the backend allows it.
	PutBatch(ctx context.Context, subs []domain.Subscriber) error

	// Delete returns domain.ErrNotFound when no subscriber has the id.
	Delete(ctx context.Context, id string) error
}

// Input carries the writable fields of a subscriber.
type Input struct {
	Email string   `json:"email"`
	Name  string   `json:"name,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// Validate implements httputil.Validator.
func (in *Input) Validate() error {
	if !strings.Contains(in.Email, "@") || hasLineBreak(in.Email) {
		return domain.NewValidationError("email", "must be an email address")
	}
	return validateFields(in.Name, in.Tags)
}

// validateFields rejects line breaks, which the CSV export cannot carry
// through a re-import.
func validateFields(name string, tags []string) error {
	v := &domain.ValidationError{}
	if hasLineBreak(name) {
		v.Add("name", "must be a single line")
	}
	for _, t := range tags {
		if hasLineBreak(t) {
			v.Add("tags", "must be single-line values")
			break
		}
	}
	return v.OrNil()
}

func hasLineBreak(s string) bool { return strings.ContainsAny(s, "\r\n") }
