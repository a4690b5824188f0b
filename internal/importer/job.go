package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/letteros/letteros/internal/domain"
)

// Status of an import job.
type Status string

const (
	StatusPreviewed Status = "previewed"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job tracks one upload from preview to commit.
type Job struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	FileName           string    `json:"fileName"`
	ArchiveKey         string    `json:"-"`
	Status             Status    `json:"status"`
	Total              int       `json:"total"`
	Imported           int       `json:"imported"`
	DuplicatesInFile   int       `json:"duplicatesInFile"`
	DuplicatesExisting int       `json:"duplicatesExisting"`
	DuplicateCount     int       `json:"duplicateCount"`
	Error              string    `json:"error,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// JobStore persists import jobs and their progress.
type JobStore interface {
	Save(ctx context.Context, j *Job) error
	// Get returns domain.ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Job, error)
}

const (
	jobKeyPrefix = "letteros:import:"
	jobTTL       = 7 * 24 * time.Hour
)

// RedisJobStore keeps jobs as JSON strings with a week-long TTL.
type RedisJobStore struct {
	client *redis.Client
}

func NewRedisJobStore(client *redis.Client) *RedisJobStore {
	return &RedisJobStore{client: client}
}

func (s *RedisJobStore) Save(ctx context.Context, j *Job) error {
	data, err := json.Marshal(struct {
		*Job
		ArchiveKey string `json:"archiveKey"`
	}{j, j.ArchiveKey})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, jobKeyPrefix+j.ID, data, jobTTL).Err(); err != nil {
		return fmt.Errorf("save import job: %w", err)
	}
	return nil
}

func (s *RedisJobStore) Get(ctx context.Context, id string) (*Job, error) {
	data, err := s.client.Get(ctx, jobKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load import job: %w", err)
	}
	var j Job
	wrapped := struct {
		*Job
		ArchiveKey string `json:"archiveKey"`
	}{Job: &j}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode import job: %w", err)
	}
	j.ArchiveKey = wrapped.ArchiveKey
	return &j, nil
}

// MemoryJobStore keeps jobs in process.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]Job)}
}

func (s *MemoryJobStore) Save(_ context.Context, j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = *j
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &j, nil
}
