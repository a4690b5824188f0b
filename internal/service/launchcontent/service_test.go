package launchcontent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/outbox"
	"github.com/letteros/letteros/internal/repository/memory"
	"github.com/letteros/letteros/internal/repository/rediscache"
)

func sample(name string) *domain.LaunchContent {
	return &domain.LaunchContent{
		Name:           name,
		TargetAudience: "indie founders",
		Tone:           "direct",
		Launch: domain.LaunchDetails{
			Concept:    "course",
			TargetPain: "no audience",
		},
	}
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	svc := NewService(memory.NewLaunchContentRepo())
	ctx := context.Background()

	lc, err := svc.Create(ctx, "u1", sample("Launch Kit"))
	require.NoError(t, err)
	assert.NotEmpty(t, lc.ID)
	assert.Equal(t, "u1", lc.UserID)
	assert.Equal(t, domain.GeneratedManual, lc.Launch.GeneratedBy)
	assert.False(t, lc.CreatedAt.IsZero())

	_, err = svc.Create(ctx, "u1", &domain.LaunchContent{})
	assert.True(t, domain.IsValidation(err))
}

func TestOwnershipIsEnforced(t *testing.T) {
	svc := NewService(memory.NewLaunchContentRepo())
	ctx := context.Background()

	lc, err := svc.Create(ctx, "owner", sample("Mine"))
	require.NoError(t, err)

	_, err = svc.Get(ctx, "intruder", lc.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Update(ctx, "intruder", lc.ID, sample("Hijacked"))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.ErrorIs(t, svc.Delete(ctx, "intruder", lc.ID), domain.ErrForbidden)

	_, err = svc.Get(ctx, "owner", "does-not-exist")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateKeepsIdentity(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := fixed
	svc := NewService(memory.NewLaunchContentRepo(), WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	in := sample("v1")
	in.Launch.GeneratedBy = domain.GeneratedAI
	lc, err := svc.Create(ctx, "u1", in)
	require.NoError(t, err)

	clock = fixed.Add(time.Hour)
	updated, err := svc.Update(ctx, "u1", lc.ID, sample("v2"))
	require.NoError(t, err)
	assert.Equal(t, lc.ID, updated.ID)
	assert.Equal(t, "v2", updated.Name)
	assert.Equal(t, fixed, updated.CreatedAt)
	assert.Equal(t, fixed.Add(time.Hour), updated.UpdatedAt)
	assert.Equal(t, domain.GeneratedAI, updated.Launch.GeneratedBy)
}

type writeBehindFixture struct {
	svc        *Service
	repo       *memory.LaunchContentRepo
	reconciler *outbox.Reconciler
}

func setupWriteBehind(t *testing.T) writeBehindFixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	repo := memory.NewLaunchContentRepo()
	ob := outbox.NewRedisOutbox(client, 5)
	svc := NewService(repo, WithWriteBehind(rediscache.NewLaunchContentCache(client), ob))
	return writeBehindFixture{
		svc:        svc,
		repo:       repo,
		reconciler: outbox.NewReconciler(ob, svc.Apply, time.Second, time.Second),
	}
}

func TestWriteBehindReadsBeforeReconcile(t *testing.T) {
	f := setupWriteBehind(t)
	ctx := context.Background()

	lc, err := f.svc.Create(ctx, "u1", sample("Cached"))
	require.NoError(t, err)

	// visible immediately through the cache
	got, err := f.svc.Get(ctx, "u1", lc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cached", got.Name)

	list, err := f.svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// but not yet in the remote store
	_, err = f.repo.Get(ctx, lc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := f.reconciler.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.repo.Get(ctx, lc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cached", stored.Name)
}

func TestWriteBehindDelete(t *testing.T) {
	f := setupWriteBehind(t)
	ctx := context.Background()

	lc, err := f.svc.Create(ctx, "u1", sample("Doomed"))
	require.NoError(t, err)
	_, err = f.reconciler.Drain(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "u1", lc.ID))

	_, err = f.svc.Get(ctx, "u1", lc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.reconciler.Drain(ctx)
	require.NoError(t, err)
	_, err = f.repo.Get(ctx, lc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWriteBehindWarmsFromRepository(t *testing.T) {
	f := setupWriteBehind(t)
	ctx := context.Background()

	existing := sample("Pre-existing")
	existing.ID = "old"
	existing.UserID = "u1"
	require.NoError(t, f.repo.Put(ctx, existing))

	_, err := f.svc.Create(ctx, "u1", sample("Fresh"))
	require.NoError(t, err)

	list, err := f.svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

type failingRepo struct {
	*memory.LaunchContentRepo
	fail bool
}

func (r *failingRepo) Put(ctx context.Context, lc *domain.LaunchContent) error {
	if r.fail {
		return errors.New("remote down")
	}
	return r.LaunchContentRepo.Put(ctx, lc)
}

func TestApplyFailureKeepsEntryQueued(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := &failingRepo{LaunchContentRepo: memory.NewLaunchContentRepo(), fail: true}
	ob := outbox.NewRedisOutbox(client, 5)
	svc := NewService(repo, WithWriteBehind(rediscache.NewLaunchContentCache(client), ob))
	rec := outbox.NewReconciler(ob, svc.Apply, time.Second, time.Second)
	ctx := context.Background()

	lc, err := svc.Create(ctx, "u1", sample("Retry me"))
	require.NoError(t, err)

	_, err = rec.Drain(ctx)
	assert.Error(t, err)
	pending, err := ob.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	repo.fail = false
	_, err = rec.Drain(ctx)
	require.NoError(t, err)
	_, err = repo.Get(ctx, lc.ID)
	assert.NoError(t, err)
}

func TestApplyUnknownOp(t *testing.T) {
	svc := NewService(memory.NewLaunchContentRepo())
	err := svc.Apply(context.Background(), outbox.Entry{Op: "truncate"})
	assert.ErrorIs(t, err, ErrUnknownOp)
}
