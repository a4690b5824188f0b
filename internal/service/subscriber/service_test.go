package subscriber

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/repository/memory"
)

func TestCreateDedupIsCaseInsensitive(t *testing.T) {
	svc := NewService(memory.NewSubscriberRepo())
	ctx := context.Background()

	sub, err := svc.Create(ctx, "u1", Input{Email: "Ann@Example.com", Name: " Ann "})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", sub.Email)
	assert.Equal(t, "Ann", sub.Name)
	assert.Empty(t, sub.Tags)

	_, err = svc.Create(ctx, "u1", Input{Email: "ANN@example.com"})
	assert.True(t, domain.IsValidation(err))

	// another user's list is independent
	_, err = svc.Create(ctx, "u2", Input{Email: "ann@example.com"})
	assert.NoError(t, err)
}

func TestCreateRejectsNonEmail(t *testing.T) {
	svc := NewService(memory.NewSubscriberRepo())
	_, err := svc.Create(context.Background(), "u1", Input{Email: "not-an-address"})
	assert.True(t, domain.IsValidation(err))
}

func TestLineBreaksRejected(t *testing.T) {
	svc := NewService(memory.NewSubscriberRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, "u1", Input{Email: "a@x.com", Name: "Ann\nLee"})
	assert.True(t, domain.IsValidation(err))
	_, err = svc.Create(ctx, "u1", Input{Email: "a@x.com", Tags: []string{"vip\r"}})
	assert.True(t, domain.IsValidation(err))

	sub, err := svc.Create(ctx, "u1", Input{Email: "a@x.com", Name: "Ann"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, "u1", sub.ID, "Ann\r\nLee", nil)
	assert.True(t, domain.IsValidation(err))

	var buf bytes.Buffer
	_, err = svc.Export(ctx, "u1", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")), "header plus one record")
}

func TestUpdateAndDeleteScopedToOwner(t *testing.T) {
	svc := NewService(memory.NewSubscriberRepo())
	ctx := context.Background()

	sub, err := svc.Create(ctx, "u1", Input{Email: "a@x.com"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "u2", sub.ID, "x", nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := svc.Update(ctx, "u1", sub.ID, "Ann", []string{"vip", " vip ", "", "plan:pro"})
	require.NoError(t, err)
	assert.Equal(t, []string{"vip", "plan:pro"}, updated.Tags)

	assert.ErrorIs(t, svc.Delete(ctx, "u2", sub.ID), domain.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, "u1", sub.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "u1", sub.ID), domain.ErrNotFound)
}

func TestListFiltersByTagAndTags(t *testing.T) {
	repo := memory.NewSubscriberRepo()
	svc := NewService(repo)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.PutBatch(ctx, []domain.Subscriber{
		{ID: "1", UserID: "u1", Email: "a@x.com", Tags: []string{"plan:pro"}, CreatedAt: base},
		{ID: "2", UserID: "u1", Email: "b@x.com", Tags: []string{"vip"}, CreatedAt: base.Add(time.Second)},
		{ID: "3", UserID: "u1", Email: "c@x.com", CreatedAt: base.Add(2 * time.Second)},
	}))

	all, err := svc.List(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	vip, err := svc.List(ctx, "u1", []string{"vip"})
	require.NoError(t, err)
	require.Len(t, vip, 1)
	assert.Equal(t, "b@x.com", vip[0].Email)

	tags, err := svc.Tags(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"plan:pro", "vip"}, tags)
}

func TestExport(t *testing.T) {
	repo := memory.NewSubscriberRepo()
	svc := NewService(repo)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.PutBatch(ctx, []domain.Subscriber{
		{ID: "1", UserID: "u1", Email: "a@x.com", Name: "Smith, Jr.", Tags: []string{"vip", "plan:pro"}, CreatedAt: base},
		{ID: "2", UserID: "u1", Email: "b@x.com", Name: `The "Boss"`, CreatedAt: base.Add(time.Second)},
	}))

	var buf bytes.Buffer
	n, err := svc.Export(ctx, "u1", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t,
		"email,name,tags\n"+
			`"a@x.com","Smith, Jr.","vip;plan:pro"`+"\n"+
			`"b@x.com","The ""Boss""",""`+"\n",
		buf.String())
}
