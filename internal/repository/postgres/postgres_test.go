package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letteros/letteros/internal/domain"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var ts = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func TestLaunchContentGet(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewLaunchContentRepo(db)

	mock.ExpectQuery(`SELECT (.+) FROM launch_contents WHERE id = \$1`).
		WithArgs("lc1").
		WillReturnRows(sqlmock.NewRows(launchContentColumns).
			AddRow("lc1", "u1", "Kit", "d", "founders", "vp", "warm", "core",
				[]byte(`{"concept":"c","targetPain":"p","generatedBy":"ai"}`), ts, ts))

	lc, err := repo.Get(context.Background(), "lc1")
	require.NoError(t, err)
	assert.Equal(t, "Kit", lc.Name)
	assert.Equal(t, "p", lc.Launch.TargetPain)
	assert.Equal(t, domain.GeneratedAI, lc.Launch.GeneratedBy)

	mock.ExpectQuery(`FROM launch_contents WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLaunchContentListAndPut(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewLaunchContentRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(`FROM launch_contents WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(launchContentColumns).
			AddRow("b", "u1", "B", "", "", "", "", "", []byte(`{}`), ts, ts).
			AddRow("a", "u1", "A", "", "", "", "", "", []byte(`{}`), ts, ts))
	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)

	mock.ExpectExec(`INSERT INTO launch_contents (.+) ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("a", "u1", "A", "", "", "", "", "", sqlmock.AnyArg(), ts, ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Put(ctx, &domain.LaunchContent{ID: "a", UserID: "u1", Name: "A", CreatedAt: ts, UpdatedAt: ts}))
}

func TestDeleteNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM launch_contents WHERE id = \$1`).WithArgs("x").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, NewLaunchContentRepo(db).Delete(ctx, "x"), domain.ErrNotFound)

	mock.ExpectExec(`DELETE FROM newsletters WHERE id = \$1`).WithArgs("n").WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, NewNewsletterRepo(db).Delete(ctx, "n"))

	mock.ExpectExec(`DELETE FROM subscribers WHERE id = \$1`).WithArgs("s").WillReturnError(errors.New("conn reset"))
	err := NewSubscriberRepo(db).Delete(ctx, "s")
	assert.ErrorContains(t, err, "conn reset")
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestNewsletterListDue(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewNewsletterRepo(db)
	now := ts.Add(time.Hour)

	mock.ExpectQuery(`FROM newsletters WHERE status = \$1 AND scheduled_at <= \$2 ORDER BY scheduled_at`).
		WithArgs("SCHEDULED", now).
		WillReturnRows(sqlmock.NewRows(newsletterColumns).
			AddRow("n1", "u1", "lc1", "Title", "Body", "SCHEDULED", "{vip,beta}", "", ts, ts, ts, nil).
			AddRow("n2", "u2", nil, "Other", "", "SCHEDULED", "{}", "", ts, ts, ts, nil))

	due, err := repo.ListDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, domain.NewsletterScheduled, due[0].Status)
	assert.Equal(t, "lc1", due[0].LaunchContentID)
	assert.Equal(t, []string{"vip", "beta"}, due[0].SegmentTags)
	require.NotNil(t, due[0].ScheduledAt)
	assert.Nil(t, due[0].SentAt)
	assert.Empty(t, due[1].LaunchContentID)
	assert.Nil(t, due[1].SegmentTags)
}

func TestNewsletterClaim(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewNewsletterRepo(db)
	now := ts.Add(time.Hour)

	mock.ExpectExec(`UPDATE newsletters SET scheduled_at = \$1, updated_at = \$2 WHERE id = \$3 AND status = \$4 AND scheduled_at <= \$5`).
		WithArgs(nil, now, "n1", "SCHEDULED", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Claim(context.Background(), "n1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(`UPDATE newsletters SET scheduled_at`).
		WithArgs(nil, now, "n1", "SCHEDULED", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Claim(context.Background(), "n1", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewsletterPut(t *testing.T) {
	db, mock := setupTestDB(t)
	at := ts.Add(time.Hour)

	mock.ExpectExec(`INSERT INTO newsletters (.+) ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("n1", "u1", sql.NullString{}, "T", "", "SCHEDULED", sqlmock.AnyArg(), "", ts, ts,
			sql.NullTime{Time: at, Valid: true}, sql.NullTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewNewsletterRepo(db).Put(context.Background(), &domain.Newsletter{
		ID: "n1", UserID: "u1", Title: "T", Status: domain.NewsletterScheduled,
		CreatedAt: ts, UpdatedAt: ts, ScheduledAt: &at,
	})
	require.NoError(t, err)
}

func TestSubscriberList(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectQuery(`FROM subscribers WHERE user_id = \$1 ORDER BY created_at, email`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(subscriberColumns).
			AddRow("s1", "u1", "a@x.com", "Ann", "{plan:pro}", ts).
			AddRow("s2", "u1", "b@x.com", "", "{}", ts))

	subs, err := NewSubscriberRepo(db).ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, []string{"plan:pro"}, subs[0].Tags)
	assert.Equal(t, []string{}, subs[1].Tags)
}

func TestSubscriberPutBatchIsOneTransaction(t *testing.T) {
	db, mock := setupTestDB(t)
	subs := []domain.Subscriber{
		{ID: "s1", UserID: "u1", Email: "a@x.com", CreatedAt: ts},
		{ID: "s2", UserID: "u1", Email: "b@x.com", Tags: []string{"t"}, CreatedAt: ts},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO subscribers (.+) VALUES \((.+)\),\((.+)\) ON CONFLICT`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()
	require.NoError(t, NewSubscriberRepo(db).PutBatch(context.Background(), subs))

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO subscribers`).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()
	err := NewSubscriberRepo(db).PutBatch(context.Background(), subs)
	assert.ErrorContains(t, err, "deadlock")

	assert.NoError(t, NewSubscriberRepo(db).PutBatch(context.Background(), nil))
}
