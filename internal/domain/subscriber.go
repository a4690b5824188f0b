package domain

import (
	"sort"
	"strings"
	"time"
)

// Subscriber represents a single recipient on a user's mailing list.
// Email is stored lower-cased; uniqueness within a list is enforced by the
// import and create paths, not by the database.
type Subscriber struct {
	ID        string    `json:"id" db:"id" dynamodbav:"id"`
	UserID    string    `json:"userId" db:"user_id" dynamodbav:"userId"`
	Email     string    `json:"email" db:"email" dynamodbav:"email"`
	Name      string    `json:"name,omitempty" db:"name" dynamodbav:"name,omitempty"`
	Tags      []string  `json:"tags" db:"tags" dynamodbav:"tags"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" dynamodbav:"createdAt"`
}

// NormalizeEmail lower-cases and trims an address for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasAnyTag reports whether the subscriber carries at least one of tags.
// An empty filter matches everyone.
func (s *Subscriber) HasAnyTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range s.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// DistinctTags returns the sorted union of all tags across subscribers.
func DistinctTags(subs []Subscriber) []string {
	seen := make(map[string]struct{})
	for _, s := range subs {
		for _, t := range s.Tags {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
