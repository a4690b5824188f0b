package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/letteros/letteros/internal/domain"
)

var subscriberColumns = []string{"id", "user_id", "email", "name", "tags", "created_at"}

const subscriberUpsert = `ON CONFLICT (id) DO UPDATE SET
	email = EXCLUDED.email, name = EXCLUDED.name, tags = EXCLUDED.tags`

// SubscriberRepo implements subscriber.Repository against PostgreSQL.
type SubscriberRepo struct{ db *sql.DB }

func NewSubscriberRepo(db *sql.DB) *SubscriberRepo { return &SubscriberRepo{db: db} }

func scanSubscriber(row rowScanner) (*domain.Subscriber, error) {
	var (
		s    domain.Subscriber
		tags pq.StringArray
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Email, &s.Name, &tags, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Tags = []string(tags)
	if s.Tags == nil {
		s.Tags = []string{}
	}
	return &s, nil
}

func (r *SubscriberRepo) Get(ctx context.Context, id string) (*domain.Subscriber, error) {
	q, args, err := psql.Select(subscriberColumns...).From("subscribers").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	s, err := scanSubscriber(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	return s, nil
}

func (r *SubscriberRepo) ListByUser(ctx context.Context, userID string) ([]domain.Subscriber, error) {
	q, args, err := psql.Select(subscriberColumns...).From("subscribers").
		Where(sq.Eq{"user_id": userID}).OrderBy("created_at", "email").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	out := []domain.Subscriber{}
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SubscriberRepo) Put(ctx context.Context, s *domain.Subscriber) error {
	q, args, err := r.insert([]domain.Subscriber{*s}).ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("put subscriber: %w", err)
	}
	return nil
}

// PutBatch inserts the batch in one transaction, so a failed batch leaves
// nothing behind.
func (r *SubscriberRepo) PutBatch(ctx context.Context, subs []domain.Subscriber) error {
	if len(subs) == 0 {
		return nil
	}
	q, args, err := r.insert(subs).ToSql()
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin subscriber batch: %w", err)
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert subscriber batch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit subscriber batch: %w", err)
	}
	return nil
}

func (r *SubscriberRepo) insert(subs []domain.Subscriber) sq.InsertBuilder {
	b := psql.Insert("subscribers").Columns(subscriberColumns...)
	for _, s := range subs {
		tags := s.Tags
		if tags == nil {
			tags = []string{}
		}
		b = b.Values(s.ID, s.UserID, s.Email, s.Name, pq.StringArray(tags), s.CreatedAt)
	}
	return b.Suffix(subscriberUpsert)
}

func (r *SubscriberRepo) Delete(ctx context.Context, id string) error {
	if err := execOne(ctx, r.db, psql.Delete("subscribers").Where(sq.Eq{"id": id}), domain.ErrNotFound); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete subscriber: %w", err)
	}
	return nil
}
