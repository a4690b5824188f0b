package mailing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/pkg/distlock"
	"github.com/letteros/letteros/internal/repository/memory"
	"github.com/letteros/letteros/internal/service/newsletter"
	"github.com/letteros/letteros/internal/service/subscriber"
)

type recordingSender struct {
	mu     sync.Mutex
	sent   []*Message
	failTo string
}

func (r *recordingSender) Send(_ context.Context, msg *Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.To == r.failTo {
		return "", errors.New("mailbox unavailable")
	}
	r.sent = append(r.sent, msg)
	return "id", nil
}

type schedulerFixture struct {
	sched       *Scheduler
	sender      *recordingSender
	newsletters *newsletter.Service
	subscribers *subscriber.Service
	locks       distlock.Factory
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	nl := newsletter.NewService(memory.NewNewsletterRepo(), nil)
	subs := subscriber.NewService(memory.NewSubscriberRepo())
	sender := &recordingSender{}
	locks := distlock.NewFactory(nil)
	return &schedulerFixture{
		sched:       NewScheduler(nl, subs, NewRenderer(), sender, "Kit", locks, time.Second),
		sender:      sender,
		newsletters: nl,
		subscribers: subs,
		locks:       locks,
	}
}

func (f *schedulerFixture) subscribe(t *testing.T, userID, email string, tags ...string) {
	t.Helper()
	_, err := f.subscribers.Create(context.Background(), userID, subscriber.Input{Email: email, Tags: tags})
	require.NoError(t, err)
}

func (f *schedulerFixture) schedule(t *testing.T, userID string, at time.Time, tags ...string) *domain.Newsletter {
	t.Helper()
	n, err := f.newsletters.Create(context.Background(), userID, newsletter.Input{
		Title:       "Launch day",
		Content:     "Hello {{ subscriber.email }}",
		Status:      domain.NewsletterScheduled,
		ScheduledAt: &at,
		SegmentTags: tags,
	})
	require.NoError(t, err)
	return n
}

func TestTickSendsDueNewsletters(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture(t)
	f.subscribe(t, "u1", "a@x.com", "vip")
	f.subscribe(t, "u1", "b@x.com")
	f.subscribe(t, "u2", "other@x.com")

	due := f.schedule(t, "u1", time.Now().Add(-time.Minute))
	later := f.schedule(t, "u1", time.Now().Add(time.Hour))

	n, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, f.sender.sent, 2)
	assert.Equal(t, "Hello a@x.com", f.sender.sent[0].Text)

	got, err := f.newsletters.Get(ctx, "u1", due.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NewsletterSent, got.Status)
	assert.NotNil(t, got.SentAt)

	got, err = f.newsletters.Get(ctx, "u1", later.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NewsletterScheduled, got.Status)

	n, err = f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTickFiltersBySegmentTags(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture(t)
	f.subscribe(t, "u1", "vip@x.com", "vip")
	f.subscribe(t, "u1", "plain@x.com")
	f.schedule(t, "u1", time.Now().Add(-time.Minute), "vip")

	_, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "vip@x.com", f.sender.sent[0].To)
}

func TestTickMarksFailures(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture(t)
	f.subscribe(t, "u1", "a@x.com")
	f.subscribe(t, "u1", "bad@x.com")
	f.sender.failTo = "bad@x.com"
	partial := f.schedule(t, "u1", time.Now().Add(-time.Minute))
	empty := f.schedule(t, "u2", time.Now().Add(-time.Minute))

	_, err := f.sched.Tick(ctx)
	require.NoError(t, err)

	got, _ := f.newsletters.Get(ctx, "u1", partial.ID)
	assert.Equal(t, domain.NewsletterFailed, got.Status)
	assert.Contains(t, got.FailureReason, "delivered 1 of 2")

	got, _ = f.newsletters.Get(ctx, "u2", empty.ID)
	assert.Equal(t, domain.NewsletterFailed, got.Status)
	assert.Equal(t, "no subscribers match this newsletter", got.FailureReason)
}

func TestTickSkipsWhenLocked(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture(t)
	f.subscribe(t, "u1", "a@x.com")
	n := f.schedule(t, "u1", time.Now().Add(-time.Minute))

	held := f.locks.NewLock(schedulerLockKey, time.Minute)
	ok, err := held.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	processed, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Empty(t, f.sender.sent)

	require.NoError(t, held.Release(ctx))
	processed, err = f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	got, _ := f.newsletters.Get(ctx, "u1", n.ID)
	assert.Equal(t, domain.NewsletterSent, got.Status)
}

type slowSender struct {
	delay time.Duration
	mu    sync.Mutex
	count map[string]int
}

func (s *slowSender) Send(_ context.Context, msg *Message) (string, error) {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count[msg.To]++
	return "id", nil
}

func (s *slowSender) deliveries() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.count))
	for k, v := range s.count {
		out[k] = v
	}
	return out
}

// overlappingTicks starts a second scheduler's tick while the first one is
// still sending, and returns per-recipient delivery counts.
func overlappingTicks(t *testing.T, shareLocks bool) map[string]int {
	t.Helper()
	f := newSchedulerFixture(t)
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"} {
		f.subscribe(t, "u1", email)
	}
	n := f.schedule(t, "u1", time.Now().Add(-time.Minute))

	sender := &slowSender{delay: 40 * time.Millisecond, count: map[string]int{}}
	secondLocks := f.locks
	if !shareLocks {
		secondLocks = distlock.NewFactory(nil)
	}
	first := NewScheduler(f.newsletters, f.subscribers, NewRenderer(), sender, "Kit", f.locks, time.Second)
	second := NewScheduler(f.newsletters, f.subscribers, NewRenderer(), sender, "Kit", secondLocks, time.Second)
	first.lockTTL = 60 * time.Millisecond
	second.lockTTL = 60 * time.Millisecond

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := first.Tick(ctx)
		assert.NoError(t, err)
	}()
	time.Sleep(80 * time.Millisecond)
	_, err := second.Tick(ctx)
	require.NoError(t, err)
	<-done

	got, err := f.newsletters.Get(ctx, "u1", n.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NewsletterSent, got.Status)
	return sender.deliveries()
}

func TestOverlappingTicksSendOnce(t *testing.T) {
	want := map[string]int{"a@x.com": 1, "b@x.com": 1, "c@x.com": 1, "d@x.com": 1, "e@x.com": 1}
	assert.Equal(t, want, overlappingTicks(t, true), "shared lock extended while sending")
	assert.Equal(t, want, overlappingTicks(t, false), "claim alone prevents a resend")
}

func TestTickSkipsNewsletterClaimedElsewhere(t *testing.T) {
	ctx := context.Background()
	f := newSchedulerFixture(t)
	f.subscribe(t, "u1", "a@x.com")
	n := f.schedule(t, "u1", time.Now().Add(-time.Minute))

	ok, err := f.newsletters.Claim(ctx, n.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	processed, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Empty(t, f.sender.sent)
}
