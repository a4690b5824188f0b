package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/letteros/letteros/internal/domain"
)

var newsletterColumns = []string{
	"id", "user_id", "launch_content_id", "title", "content", "status", "segment_tags",
	"failure_reason", "created_at", "updated_at", "scheduled_at", "sent_at",
}

// NewsletterRepo implements newsletter.Repository against PostgreSQL.
type NewsletterRepo struct{ db *sql.DB }

func NewNewsletterRepo(db *sql.DB) *NewsletterRepo { return &NewsletterRepo{db: db} }

func scanNewsletter(row rowScanner) (*domain.Newsletter, error) {
	var (
		n           domain.Newsletter
		status      string
		productID   sql.NullString
		tags        pq.StringArray
		scheduledAt sql.NullTime
		sentAt      sql.NullTime
	)
	if err := row.Scan(&n.ID, &n.UserID, &productID, &n.Title, &n.Content, &status, &tags,
		&n.FailureReason, &n.CreatedAt, &n.UpdatedAt, &scheduledAt, &sentAt); err != nil {
		return nil, err
	}
	n.Status = domain.NewsletterStatus(status)
	n.LaunchContentID = productID.String
	if len(tags) > 0 {
		n.SegmentTags = []string(tags)
	}
	n.ScheduledAt = timePtr(scheduledAt)
	n.SentAt = timePtr(sentAt)
	return &n, nil
}

func (r *NewsletterRepo) Get(ctx context.Context, id string) (*domain.Newsletter, error) {
	q, args, err := psql.Select(newsletterColumns...).From("newsletters").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	n, err := scanNewsletter(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get newsletter: %w", err)
	}
	return n, nil
}

func (r *NewsletterRepo) ListByUser(ctx context.Context, userID string) ([]domain.Newsletter, error) {
	return r.list(ctx, psql.Select(newsletterColumns...).From("newsletters").
		Where(sq.Eq{"user_id": userID}).OrderBy("created_at DESC"))
}

func (r *NewsletterRepo) ListDue(ctx context.Context, now time.Time) ([]domain.Newsletter, error) {
	return r.list(ctx, psql.Select(newsletterColumns...).From("newsletters").
		Where(sq.Eq{"status": string(domain.NewsletterScheduled)}).
		Where(sq.LtOrEq{"scheduled_at": now}).
		OrderBy("scheduled_at"))
}

// Claim is a conditional UPDATE; zero affected rows means the newsletter was
// already claimed, rescheduled or deleted.
func (r *NewsletterRepo) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	q, args, err := psql.Update("newsletters").
		Set("scheduled_at", nil).
		Set("updated_at", now.UTC()).
		Where(sq.Eq{"id": id, "status": string(domain.NewsletterScheduled)}).
		Where(sq.LtOrEq{"scheduled_at": now}).
		ToSql()
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("claim newsletter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim newsletter: %w", err)
	}
	return n == 1, nil
}

func (r *NewsletterRepo) list(ctx context.Context, b sq.SelectBuilder) ([]domain.Newsletter, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list newsletters: %w", err)
	}
	defer rows.Close()

	out := []domain.Newsletter{}
	for rows.Next() {
		n, err := scanNewsletter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan newsletter: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *NewsletterRepo) Put(ctx context.Context, n *domain.Newsletter) error {
	tags := n.SegmentTags
	if tags == nil {
		tags = []string{}
	}
	q, args, err := psql.Insert("newsletters").Columns(newsletterColumns...).
		Values(n.ID, n.UserID, nullString(n.LaunchContentID), n.Title, n.Content, string(n.Status),
			pq.StringArray(tags), n.FailureReason, n.CreatedAt, n.UpdatedAt,
			nullTime(n.ScheduledAt), nullTime(n.SentAt)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			launch_content_id = EXCLUDED.launch_content_id, title = EXCLUDED.title,
			content = EXCLUDED.content, status = EXCLUDED.status, segment_tags = EXCLUDED.segment_tags,
			failure_reason = EXCLUDED.failure_reason, updated_at = EXCLUDED.updated_at,
			scheduled_at = EXCLUDED.scheduled_at, sent_at = EXCLUDED.sent_at`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("put newsletter: %w", err)
	}
	return nil
}

func (r *NewsletterRepo) Delete(ctx context.Context, id string) error {
	if err := execOne(ctx, r.db, psql.Delete("newsletters").Where(sq.Eq{"id": id}), domain.ErrNotFound); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete newsletter: %w", err)
	}
	return nil
}
