package domain

import "time"

// NewsletterStatus enumerates the lifecycle states of a newsletter.
// Transitions are one-directional in intended use (DRAFT -> SCHEDULED|SENT)
// but any status may be written directly.
type NewsletterStatus string

const (
	NewsletterDraft     NewsletterStatus = "DRAFT"
	NewsletterScheduled NewsletterStatus = "SCHEDULED"
	NewsletterSent      NewsletterStatus = "SENT"
	NewsletterFailed    NewsletterStatus = "FAILED"
)

// Valid reports whether s is one of the known statuses.
func (s NewsletterStatus) Valid() bool {
	switch s {
	case NewsletterDraft, NewsletterScheduled, NewsletterSent, NewsletterFailed:
		return true
	}
	return false
}

// Newsletter is a piece of email content owned by a user, optionally tied to
// one LaunchContent.
type Newsletter struct {
	ID              string           `json:"id" db:"id" dynamodbav:"id"`
	UserID          string           `json:"userId" db:"user_id" dynamodbav:"userId"`
	LaunchContentID string           `json:"launchContentId,omitempty" db:"launch_content_id" dynamodbav:"launchContentId,omitempty"`
	Title           string           `json:"title" db:"title" dynamodbav:"title"`
	Content         string           `json:"content" db:"content" dynamodbav:"content"`
	Status          NewsletterStatus `json:"status" db:"status" dynamodbav:"status"`
	SegmentTags     []string         `json:"segmentTags,omitempty" db:"segment_tags" dynamodbav:"segmentTags,omitempty"`
	FailureReason   string           `json:"failureReason,omitempty" db:"failure_reason" dynamodbav:"failureReason,omitempty"`

	CreatedAt   time.Time  `json:"createdAt" db:"created_at" dynamodbav:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at" dynamodbav:"updatedAt"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty" db:"scheduled_at" dynamodbav:"scheduledAt,omitempty"`
	SentAt      *time.Time `json:"sentAt,omitempty" db:"sent_at" dynamodbav:"sentAt,omitempty"`
}

// IsDue returns true if the newsletter is scheduled at or before now.
func (n *Newsletter) IsDue(now time.Time) bool {
	return n.Status == NewsletterScheduled && n.ScheduledAt != nil && !n.ScheduledAt.After(now)
}
