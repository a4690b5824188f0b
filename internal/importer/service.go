package importer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/pkg/distlock"
	"github.com/letteros/letteros/internal/pkg/logger"
	"github.com/letteros/letteros/internal/storage"
)

var (
	ErrImportInProgress = fmt.Errorf("%w: another import is running for this list", domain.ErrConflict)
	ErrAlreadyCommitted = fmt.Errorf("%w: import was already committed", domain.ErrConflict)
)

// SubscriberStore is what the importer needs from the subscriber service.
type SubscriberStore interface {
	BatchWriter
	Existing(ctx context.Context, userID string) ([]domain.Subscriber, error)
}

// Options tune the importer.
type Options struct {
	BatchSize    int
	PreviewRows  int
	MaxFileBytes int64
	LockTTL      time.Duration
}

// Service runs preview and commit for uploaded files.
type Service struct {
	subs    SubscriberStore
	archive storage.Archive
	locks   distlock.Factory
	jobs    JobStore
	opts    Options
	log     *logger.Logger
}

// NewService wires an importer.
func NewService(subs SubscriberStore, archive storage.Archive, locks distlock.Factory, jobs JobStore, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 10
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	return &Service{
		subs:    subs,
		archive: archive,
		locks:   locks,
		jobs:    jobs,
		opts:    opts,
		log:     logger.Default().With("component", "importer"),
	}
}

// Preview parses data against the user's current list, archives it, and
// records a job awaiting commit.
func (s *Service) Preview(ctx context.Context, userID, fileName string, data []byte) (*Job, *Preview, error) {
	if s.opts.MaxFileBytes > 0 && int64(len(data)) > s.opts.MaxFileBytes {
		return nil, nil, domain.NewValidationError("file", fmt.Sprintf("exceeds %d bytes", s.opts.MaxFileBytes))
	}
	existing, err := s.subs.Existing(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	p, err := Parse(string(data), existing, s.opts.PreviewRows)
	if errors.Is(err, ErrNoEmailColumn) {
		return nil, nil, domain.NewValidationError("file", err.Error())
	}
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	job := &Job{
		ID:                 uuid.New().String(),
		UserID:             userID,
		FileName:           path.Base(fileName),
		Status:             StatusPreviewed,
		Total:              p.Total,
		DuplicatesInFile:   p.DuplicatesInFile,
		DuplicatesExisting: p.DuplicatesExisting,
		DuplicateCount:     p.DuplicateCount,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	job.ArchiveKey = path.Join(userID, job.ID+".csv")

	if err := s.archive.Put(ctx, job.ArchiveKey, data, "text/csv"); err != nil {
		return nil, nil, fmt.Errorf("archive upload: %w", err)
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, nil, err
	}
	s.log.Info("import previewed", "job", job.ID, "user", userID, "total", p.Total, "duplicates", p.DuplicateCount)
	return job, p, nil
}

// Status returns a job owned by userID.
func (s *Service) Status(ctx context.Context, userID, jobID string) (*Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return job, nil
}

// Commit writes a previewed import and waits for it to finish.
func (s *Service) Commit(ctx context.Context, userID, jobID string) (*Job, error) {
	run, err := s.Begin(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	return run.Run(ctx)
}

// PendingCommit is an import that holds the user's import lock and has not
// started writing yet.
type PendingCommit struct {
	svc  *Service
	job  *Job
	lock distlock.DistLock
}

// Job returns the job as it stood when the lock was taken.
func (c *PendingCommit) Job() *Job { return c.job }

// Begin takes the user's import lock and checks the job is still awaiting
// commit. The caller must call Run, which releases the lock. Contention is
// reported here as ErrImportInProgress so callers can answer before going
// to the background.
func (s *Service) Begin(ctx context.Context, userID, jobID string) (*PendingCommit, error) {
	if _, err := s.Status(ctx, userID, jobID); err != nil {
		return nil, err
	}

	lock := s.locks.NewLock("import:"+userID, s.opts.LockTTL)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrImportInProgress
	}

	// re-read under the lock; an earlier commit may have just finished
	job, err := s.Status(ctx, userID, jobID)
	if err == nil && job.Status != StatusPreviewed {
		err = ErrAlreadyCommitted
	}
	if err != nil {
		lock.Release(context.WithoutCancel(ctx))
		return nil, err
	}
	return &PendingCommit{svc: s, job: job, lock: lock}, nil
}

// Run re-checks the archived upload against the user's current list and
// writes it in batches, extending the lock after each one. Any failure is
// recorded on the job as StatusFailed.
func (c *PendingCommit) Run(ctx context.Context) (*Job, error) {
	s, job, lock := c.svc, c.job, c.lock
	defer lock.Release(context.WithoutCancel(ctx))

	data, err := s.archive.Get(ctx, job.ArchiveKey)
	if err != nil {
		return job, s.fail(ctx, job, "the uploaded file could not be read", fmt.Errorf("read archived upload: %w", err))
	}
	existing, err := s.subs.Existing(ctx, job.UserID)
	if err != nil {
		return job, s.fail(ctx, job, "the current subscriber list could not be loaded", err)
	}
	p, err := Parse(string(data), existing, 0)
	if err != nil {
		return job, s.fail(ctx, job, "the uploaded file could not be parsed", err)
	}

	job.Status = StatusRunning
	job.Total = p.Total
	job.DuplicatesInFile = p.DuplicatesInFile
	job.DuplicatesExisting = p.DuplicatesExisting
	job.DuplicateCount = p.DuplicateCount
	s.save(ctx, job)

	imported, err := Commit(ctx, job.UserID, p.Candidates, s.subs, s.opts.BatchSize, func(done, total int) {
		job.Imported = done
		s.save(ctx, job)
		if held, err := lock.Extend(ctx); err != nil || !held {
			s.log.Warn("import lock lost", "job", job.ID, "imported", done, "error", err)
		}
	})
	job.Imported = imported
	if err != nil {
		return job, s.fail(ctx, job, "import stopped after a failed batch", err)
	}

	job.Status = StatusCompleted
	s.save(ctx, job)
	s.log.Info("import completed", "job", job.ID, "imported", imported)
	return job, nil
}

func (s *Service) fail(ctx context.Context, job *Job, reason string, err error) error {
	job.Status = StatusFailed
	job.Error = reason
	s.save(context.WithoutCancel(ctx), job)
	s.log.Error("import failed", "job", job.ID, "imported", job.Imported, "total", job.Total, "error", err)
	return err
}

func (s *Service) save(ctx context.Context, job *Job) {
	job.UpdatedAt = time.Now().UTC()
	if err := s.jobs.Save(ctx, job); err != nil {
		s.log.Warn("saving import progress failed", "job", job.ID, "error", err)
	}
}
