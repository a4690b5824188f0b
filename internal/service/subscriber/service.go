package subscriber

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/letteros/letteros/internal/domain"
)

// Service implements subscriber list business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a subscriber service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns the user's subscribers, optionally filtered to those carrying
// any of tags.
func (s *Service) List(ctx context.Context, userID string, tags []string) ([]domain.Subscriber, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return subs, nil
	}
	out := make([]domain.Subscriber, 0, len(subs))
	for i := range subs {
		if subs[i].HasAnyTag(tags) {
			out = append(out, subs[i])
		}
	}
	return out, nil
}

// Create adds one subscriber. The email must not already be on the user's
// list, compared case-insensitively.
func (s *Service) Create(ctx context.Context, userID string, in Input) (*domain.Subscriber, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	email := domain.NormalizeEmail(in.Email)

	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if domain.NormalizeEmail(e.Email) == email {
			return nil, errDuplicateEmail()
		}
	}

	sub := &domain.Subscriber{
		ID:        uuid.New().String(),
		UserID:    userID,
		Email:     email,
		Name:      strings.TrimSpace(in.Name),
		Tags:      normalizeTags(in.Tags),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Put(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Update changes the name and tags. The email is the list key and cannot be
// changed.
func (s *Service) Update(ctx context.Context, userID, id string, name string, tags []string) (*domain.Subscriber, error) {
	if err := validateFields(name, tags); err != nil {
		return nil, err
	}
	sub, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	sub.Name = strings.TrimSpace(name)
	sub.Tags = normalizeTags(tags)
	if err := s.repo.Put(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Delete removes a subscriber owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.get(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Tags returns the sorted set of tags in use on the user's list.
func (s *Service) Tags(ctx context.Context, userID string) ([]string, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.DistinctTags(subs), nil
}

// Existing returns the user's current subscribers for import deduplication.
func (s *Service) Existing(ctx context.Context, userID string) ([]domain.Subscriber, error) {
	return s.repo.ListByUser(ctx, userID)
}

// PutBatch writes one import batch.
func (s *Service) PutBatch(ctx context.Context, subs []domain.Subscriber) error {
	return s.repo.PutBatch(ctx, subs)
}

// Export writes the user's list as CSV with the header email,name,tags.
// Every field is double-quoted and tags are joined with ";".
func (s *Service) Export(ctx context.Context, userID string, w io.Writer) (int, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if _, err := io.WriteString(w, "email,name,tags\n"); err != nil {
		return 0, err
	}
	for _, sub := range subs {
		line := fmt.Sprintf("%s,%s,%s\n",
			quote(sub.Email), quote(sub.Name), quote(strings.Join(sub.Tags, ";")))
		if _, err := io.WriteString(w, line); err != nil {
			return 0, err
		}
	}
	return len(subs), nil
}

func (s *Service) get(ctx context.Context, userID, id string) (*domain.Subscriber, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return sub, nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
