package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letteros/letteros/internal/domain"
)

type flakyWriter struct {
	failOnBatch int
	calls       int
	written     []domain.Subscriber
}

func (w *flakyWriter) PutBatch(_ context.Context, subs []domain.Subscriber) error {
	w.calls++
	if w.calls == w.failOnBatch {
		return errors.New("write limit exceeded")
	}
	w.written = append(w.written, subs...)
	return nil
}

func candidates(n int) []Candidate {
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{Email: fmt.Sprintf("user%d@x.com", i), Tags: []string{}}
	}
	return out
}

func TestCommitStopsAtFailedBatch(t *testing.T) {
	w := &flakyWriter{failOnBatch: 2}
	var reports []int

	imported, err := Commit(context.Background(), "u1", candidates(1200), w, 500, func(done, total int) {
		assert.Equal(t, 1200, total)
		reports = append(reports, done)
	})

	require.Error(t, err)
	assert.Equal(t, 500, imported)
	assert.Len(t, w.written, 500)
	assert.Equal(t, 2, w.calls)
	assert.Equal(t, []int{500}, reports)
}

func TestCommitAllBatches(t *testing.T) {
	w := &flakyWriter{}
	var reports []int

	imported, err := Commit(context.Background(), "u1", candidates(1200), w, 500, func(done, _ int) {
		reports = append(reports, done)
	})

	require.NoError(t, err)
	assert.Equal(t, 1200, imported)
	assert.Equal(t, []int{500, 1000, 1200}, reports)
	for _, s := range w.written {
		assert.Equal(t, "u1", s.UserID)
		assert.NotEmpty(t, s.ID)
	}
}

func TestCommitEmpty(t *testing.T) {
	w := &flakyWriter{}
	imported, err := Commit(context.Background(), "u1", nil, w, 500, nil)
	require.NoError(t, err)
	assert.Zero(t, imported)
	assert.Zero(t, w.calls)
}
