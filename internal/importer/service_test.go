package importer

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
	"github.com/letteros/letteros/internal/pkg/distlock"
	"github.com/letteros/letteros/internal/repository/memory"
	"github.com/letteros/letteros/internal/service/subscriber"
	"github.com/letteros/letteros/internal/storage"
)

func newTestImporter(t *testing.T, client *redis.Client) (*Service, *memory.SubscriberRepo) {
	t.Helper()
	archive, err := storage.NewLocalArchive(t.TempDir())
	require.NoError(t, err)

	repo := memory.NewSubscriberRepo()
	var jobs JobStore = NewMemoryJobStore()
	if client != nil {
		jobs = NewRedisJobStore(client)
	}
	svc := NewService(subscriber.NewService(repo), archive, distlock.NewFactory(client), jobs, Options{BatchSize: 2})
	return svc, repo
}

const sampleFile = "email,name,plan\n" +
	"a@x.com,Ann,true\n" +
	"b@x.com,Bob,pro\n" +
	"a@x.com,Ann dup,true\n" +
	"c@x.com,Cara,false\n"

func TestPreviewThenCommit(t *testing.T) {
	svc, repo := newTestImporter(t, nil)
	ctx := context.Background()

	job, preview, err := svc.Preview(ctx, "u1", "list.csv", []byte(sampleFile))
	require.NoError(t, err)
	assert.Equal(t, StatusPreviewed, job.Status)
	assert.Equal(t, 3, preview.Total)
	assert.Equal(t, 1, preview.DuplicatesInFile)
	assert.Zero(t, repo.Count(), "preview must not write")

	done, err := svc.Commit(ctx, "u1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, 3, done.Imported)
	assert.Equal(t, 3, repo.Count())

	_, err = svc.Commit(ctx, "u1", job.ID)
	assert.ErrorIs(t, err, ErrAlreadyCommitted)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCommitRechecksAgainstCurrentList(t *testing.T) {
	svc, repo := newTestImporter(t, nil)
	ctx := context.Background()

	first, _, err := svc.Preview(ctx, "u1", "a.csv", []byte(sampleFile))
	require.NoError(t, err)
	second, _, err := svc.Preview(ctx, "u1", "b.csv", []byte(sampleFile))
	require.NoError(t, err)

	_, err = svc.Commit(ctx, "u1", first.ID)
	require.NoError(t, err)
	job, err := svc.Commit(ctx, "u1", second.ID)
	require.NoError(t, err)

	assert.Zero(t, job.Imported)
	assert.Equal(t, 4, job.DuplicateCount)
	assert.Equal(t, 3, repo.Count())
}

func TestPreviewWithoutEmailColumn(t *testing.T) {
	svc, _ := newTestImporter(t, nil)
	_, _, err := svc.Preview(context.Background(), "u1", "x.csv", []byte("name\nAnn\n"))
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestCommitOwnership(t *testing.T) {
	svc, _ := newTestImporter(t, nil)
	ctx := context.Background()

	job, _, err := svc.Preview(ctx, "u1", "list.csv", []byte(sampleFile))
	require.NoError(t, err)

	_, err = svc.Commit(ctx, "u2", job.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Status(ctx, "u1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommitRefusedWhileUserLockHeld(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	svc, _ := newTestImporter(t, client)
	ctx := context.Background()

	job, _, err := svc.Preview(ctx, "u1", "list.csv", []byte(sampleFile))
	require.NoError(t, err)

	held := distlock.NewFactory(client).NewLock("import:u1", time.Minute)
	ok, err := held.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Commit(ctx, "u1", job.ID)
	assert.ErrorIs(t, err, ErrImportInProgress)

	require.NoError(t, held.Release(ctx))
	got, err := svc.Commit(ctx, "u1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	stored, err := svc.Status(ctx, "u1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, 3, stored.Imported)
}

type brokenArchive struct{ storage.Archive }

func (brokenArchive) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("bucket unavailable")
}

func TestCommitRecordsEarlyFailureOnJob(t *testing.T) {
	archive, err := storage.NewLocalArchive(t.TempDir())
	require.NoError(t, err)
	jobs := NewMemoryJobStore()
	svc := NewService(subscriber.NewService(memory.NewSubscriberRepo()), brokenArchive{archive}, distlock.NewFactory(nil), jobs, Options{})
	ctx := context.Background()

	job, _, err := svc.Preview(ctx, "u1", "list.csv", []byte(sampleFile))
	require.NoError(t, err)

	got, err := svc.Commit(ctx, "u1", job.ID)
	assert.ErrorContains(t, err, "bucket unavailable")
	require.NotNil(t, got)
	assert.Equal(t, StatusFailed, got.Status)

	stored, err := svc.Status(ctx, "u1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, stored.Status)
	assert.Equal(t, "the uploaded file could not be read", stored.Error)

	// the lock was released
	_, err = svc.Begin(ctx, "u1", job.ID)
	assert.ErrorIs(t, err, ErrAlreadyCommitted)
}

// staleJobStore serves one outdated copy of a job, as a reader that raced a
// finishing commit would see it.
type staleJobStore struct {
	*MemoryJobStore
	stale *Job
}

func (s *staleJobStore) Get(ctx context.Context, id string) (*Job, error) {
	if s.stale != nil && s.stale.ID == id {
		j := *s.stale
		s.stale = nil
		return &j, nil
	}
	return s.MemoryJobStore.Get(ctx, id)
}

func TestCommitRechecksStatusUnderLock(t *testing.T) {
	archive, err := storage.NewLocalArchive(t.TempDir())
	require.NoError(t, err)
	repo := memory.NewSubscriberRepo()
	jobs := &staleJobStore{MemoryJobStore: NewMemoryJobStore()}
	svc := NewService(subscriber.NewService(repo), archive, distlock.NewFactory(nil), jobs, Options{})
	ctx := context.Background()

	job, _, err := svc.Preview(ctx, "u1", "list.csv", []byte(sampleFile))
	require.NoError(t, err)
	previewed := *job

	done, err := svc.Commit(ctx, "u1", job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)

	jobs.stale = &previewed
	_, err = svc.Commit(ctx, "u1", job.ID)
	assert.ErrorIs(t, err, ErrAlreadyCommitted)

	stored, err := svc.Status(ctx, "u1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, stored.Status)
	assert.Equal(t, 3, stored.Total)
	assert.Zero(t, stored.DuplicatesExisting)
	assert.Equal(t, 3, repo.Count())
}

func TestBeginRefusesWhileLockedAndLeavesJobPreviewed(t *testing.T) {
	svc, _ := newTestImporter(t, nil)
	ctx := context.Background()

	job, _, err := svc.Preview(ctx, "u1", "list.csv", []byte(sampleFile))
	require.NoError(t, err)

	first, err := svc.Begin(ctx, "u1", job.ID)
	require.NoError(t, err)

	_, err = svc.Begin(ctx, "u1", job.ID)
	assert.ErrorIs(t, err, ErrImportInProgress)

	stored, err := svc.Status(ctx, "u1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPreviewed, stored.Status)

	got, err := first.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}
