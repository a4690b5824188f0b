package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/letteros/letteros/internal/domain"
)

var launchContentColumns = []string{
	"id", "user_id", "name", "description", "target_audience", "value_proposition",
	"tone", "core_message", "launch_content", "created_at", "updated_at",
}

// LaunchContentRepo implements launchcontent.Repository against PostgreSQL.
type LaunchContentRepo struct{ db *sql.DB }

func NewLaunchContentRepo(db *sql.DB) *LaunchContentRepo { return &LaunchContentRepo{db: db} }

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLaunchContent(row rowScanner) (*domain.LaunchContent, error) {
	var (
		lc     domain.LaunchContent
		launch []byte
	)
	if err := row.Scan(&lc.ID, &lc.UserID, &lc.Name, &lc.Description, &lc.TargetAudience,
		&lc.ValueProposition, &lc.Tone, &lc.CoreMessage, &launch, &lc.CreatedAt, &lc.UpdatedAt); err != nil {
		return nil, err
	}
	if len(launch) > 0 {
		if err := json.Unmarshal(launch, &lc.Launch); err != nil {
			return nil, fmt.Errorf("decode launch_content: %w", err)
		}
	}
	return &lc, nil
}

func (r *LaunchContentRepo) Get(ctx context.Context, id string) (*domain.LaunchContent, error) {
	q, args, err := psql.Select(launchContentColumns...).From("launch_contents").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	lc, err := scanLaunchContent(r.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get launch content: %w", err)
	}
	return lc, nil
}

func (r *LaunchContentRepo) ListByUser(ctx context.Context, userID string) ([]domain.LaunchContent, error) {
	q, args, err := psql.Select(launchContentColumns...).From("launch_contents").
		Where(sq.Eq{"user_id": userID}).OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list launch content: %w", err)
	}
	defer rows.Close()

	out := []domain.LaunchContent{}
	for rows.Next() {
		lc, err := scanLaunchContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan launch content: %w", err)
		}
		out = append(out, *lc)
	}
	return out, rows.Err()
}

func (r *LaunchContentRepo) Put(ctx context.Context, lc *domain.LaunchContent) error {
	launch, err := json.Marshal(lc.Launch)
	if err != nil {
		return err
	}
	q, args, err := psql.Insert("launch_contents").Columns(launchContentColumns...).
		Values(lc.ID, lc.UserID, lc.Name, lc.Description, lc.TargetAudience, lc.ValueProposition,
			lc.Tone, lc.CoreMessage, launch, lc.CreatedAt, lc.UpdatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description,
			target_audience = EXCLUDED.target_audience, value_proposition = EXCLUDED.value_proposition,
			tone = EXCLUDED.tone, core_message = EXCLUDED.core_message,
			launch_content = EXCLUDED.launch_content, updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("put launch content: %w", err)
	}
	return nil
}

func (r *LaunchContentRepo) Delete(ctx context.Context, id string) error {
	if err := execOne(ctx, r.db, psql.Delete("launch_contents").Where(sq.Eq{"id": id}), domain.ErrNotFound); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete launch content: %w", err)
	}
	return nil
}
