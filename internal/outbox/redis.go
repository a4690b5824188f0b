package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPending    = "letteros:outbox:pending"
	keyProcessing = "letteros:outbox:processing"
	keyDead       = "letteros:outbox:dead"
)

// RedisOutbox stores entries in Redis lists. Claim moves an entry from the
// pending list to the processing list atomically, so a crash between claim
// and ack leaves it recoverable.
type RedisOutbox struct {
	client      *redis.Client
	maxAttempts int
}

// NewRedisOutbox creates an outbox on client. Entries failing maxAttempts
// times are dead-lettered.
func NewRedisOutbox(client *redis.Client, maxAttempts int) *RedisOutbox {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &RedisOutbox{client: client, maxAttempts: maxAttempts}
}

// Append adds e to the tail of the pending list.
func (o *RedisOutbox) Append(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal outbox entry: %w", err)
	}
	if err := o.client.RPush(ctx, keyPending, data).Err(); err != nil {
		return fmt.Errorf("append outbox entry: %w", err)
	}
	return nil
}

// Claim takes the oldest pending entry. It returns nil, nil when the log is
// empty.
func (o *RedisOutbox) Claim(ctx context.Context) (*Entry, error) {
	raw, err := o.client.LMove(ctx, keyPending, keyProcessing, "LEFT", "RIGHT").Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim outbox entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		// Unreadable entries can never be applied.
		o.client.LRem(ctx, keyProcessing, 1, raw)
		o.client.RPush(ctx, keyDead, raw)
		return nil, fmt.Errorf("decode outbox entry: %w", err)
	}
	e.raw = raw
	return &e, nil
}

// Ack removes a successfully applied entry.
func (o *RedisOutbox) Ack(ctx context.Context, e *Entry) error {
	return o.client.LRem(ctx, keyProcessing, 1, e.raw).Err()
}

// Nack returns a failed entry to the head of the pending list, or to the
// dead-letter list once it has used up its attempts. It reports whether the
// entry was dead-lettered.
func (o *RedisOutbox) Nack(ctx context.Context, e *Entry, cause error) (bool, error) {
	e.Attempts++
	if cause != nil {
		e.LastError = cause.Error()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("marshal outbox entry: %w", err)
	}

	dead := e.Attempts >= o.maxAttempts
	_, err = o.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, keyProcessing, 1, e.raw)
		if dead {
			p.RPush(ctx, keyDead, data)
		} else {
			p.LPush(ctx, keyPending, data)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("requeue outbox entry: %w", err)
	}
	e.raw = string(data)
	return dead, nil
}

// Recover moves entries left in the processing list by a crashed reconciler
// back to the head of the pending list, oldest first.
func (o *RedisOutbox) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		_, err := o.client.LMove(ctx, keyProcessing, keyPending, "RIGHT", "LEFT").Result()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("recover outbox: %w", err)
		}
		n++
	}
}

// Pending returns the number of entries waiting to be applied.
func (o *RedisOutbox) Pending(ctx context.Context) (int64, error) {
	return o.client.LLen(ctx, keyPending).Result()
}

// DeadLetters returns the number of entries that exhausted their attempts.
func (o *RedisOutbox) DeadLetters(ctx context.Context) (int64, error) {
	return o.client.LLen(ctx, keyDead).Result()
}
