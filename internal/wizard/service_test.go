package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letteros/letteros/internal/assembler"
	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/llm"
	"github.com/letteros/letteros/internal/planning"
	"github.com/letteros/letteros/internal/prompts"
	"github.com/letteros/letteros/internal/repository/memory"
	"github.com/letteros/letteros/internal/service/newsletter"
)

type products map[string]*domain.LaunchContent

func (p products) Get(_ context.Context, userID, id string) (*domain.LaunchContent, error) {
	lc, ok := p[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if lc.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return lc, nil
}

// queue replies in order; an error string starting with "!" fails the call.
type queue struct {
	replies []string
	calls   int
}

func (q *queue) Complete(context.Context, llm.Request) (string, error) {
	if q.calls >= len(q.replies) {
		return "", errors.New("no scripted reply")
	}
	r := q.replies[q.calls]
	q.calls++
	if strings.HasPrefix(r, "!") {
		return "", errors.New(r[1:])
	}
	return r, nil
}

func variantReply() string {
	var parts []string
	for _, slot := range domain.Slots {
		parts = append(parts, fmt.Sprintf(`"%s":[{"id":"%s-a","content":"%s A"},{"id":"%s-b","content":"%s B"},{"id":"%s-c","content":"%s C"}]`,
			slot, slot, slot, slot, slot, slot, slot))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

type fixture struct {
	svc         *Service
	llm         *queue
	newsletters *memory.NewsletterRepo
}

func newFixture(replies ...string) *fixture {
	q := &queue{replies: replies}
	pack := prompts.Default()
	repo := memory.NewNewsletterRepo()
	svc := NewService(
		NewMemoryStore(),
		products{"p1": {ID: "p1", UserID: "u1", Name: "Kit", TargetAudience: "founders"}},
		planning.NewOrchestrator(q, pack, planning.Options{}),
		assembler.NewGenerator(q, pack),
		newsletter.NewService(repo, nil),
	)
	return &fixture{svc: svc, llm: q, newsletters: repo}
}

func TestWizardHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(
		`{"count": 2, "reasoning": "short launch"}`,
		`{"type":"question","question":"Who buys this?","reason":"audience"}`,
		`{"type":"proposal","newsletters":[{"subject":"One","mainPoint":"a"},{"subject":"Two","mainPoint":"b"}]}`,
		variantReply(),
	)

	s, err := f.svc.Start(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateProductSelect, s.State)

	s, err = f.svc.SelectProduct(ctx, "u1", s.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, StateCountSuggest, s.State)
	assert.Equal(t, 2, s.Count)

	s, err = f.svc.SetCount(ctx, "u1", s.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, StateChatPlan, s.State)

	s, res, err := f.svc.Chat(ctx, "u1", s.ID, "I sell a course", false)
	require.NoError(t, err)
	assert.Equal(t, planning.ResultQuestion, res.Type)
	assert.Equal(t, StateChatPlan, s.State)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, "Who buys this?", s.Messages[1].Text)

	s, res, err = f.svc.Chat(ctx, "u1", s.ID, "Solo founders", false)
	require.NoError(t, err)
	assert.Equal(t, planning.ResultProposal, res.Type)
	assert.Equal(t, StateConfirm, s.State)
	require.Len(t, s.Plans, 2)

	s, err = f.svc.ConfirmPlan(ctx, "u1", s.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, StateGenerate, s.State)
	assert.Equal(t, "Two", s.Plan().Subject)

	s, err = f.svc.Generate(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateSelect, s.State)

	_, err = f.svc.Assemble(ctx, "u1", s.ID)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	for _, slot := range domain.Slots {
		s, err = f.svc.Pick(ctx, "u1", s.ID, slot, string(slot)+"-b")
		require.NoError(t, err)
	}
	s, err = f.svc.Assemble(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFinalEdit, s.State)
	assert.Equal(t, "subject B", s.Draft.Title)
	assert.Equal(t, "introduction B\n\nstructure B\n\nconclusion B", s.Draft.Content)

	s, err = f.svc.Edit(ctx, "u1", s.ID, "Final title", s.Draft.Content)
	require.NoError(t, err)

	s, n, err := f.svc.Save(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateDone, s.State)
	assert.Equal(t, n.ID, s.NewsletterID)
	assert.Equal(t, domain.NewsletterDraft, n.Status)
	assert.Equal(t, "p1", n.LaunchContentID)
	assert.Equal(t, "Final title", n.Title)

	stored, err := f.newsletters.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", stored.UserID)
}

func TestIllegalStepLeavesStoredSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s, err := f.svc.Start(ctx, "u1")
	require.NoError(t, err)

	_, err = f.svc.ConfirmPlan(ctx, "u1", s.ID, 1)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	_, _, err = f.svc.Chat(ctx, "u1", s.ID, "hello", false)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Zero(t, f.llm.calls)

	got, err := f.svc.Get(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Equal(t, *s, *got)
}

func TestChatFailureKeepsTranscript(t *testing.T) {
	ctx := context.Background()
	f := newFixture(`{"count": 3}`, "!timeout")
	s, _ := f.svc.Start(ctx, "u1")
	s, err := f.svc.SelectProduct(ctx, "u1", s.ID, "p1")
	require.NoError(t, err)
	s, err = f.svc.SetCount(ctx, "u1", s.ID, 0)
	require.NoError(t, err)

	_, _, err = f.svc.Chat(ctx, "u1", s.ID, "hello", false)
	assert.ErrorIs(t, err, domain.ErrUpstream)

	got, err := f.svc.Get(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
	assert.Equal(t, StateChatPlan, got.State)
}

func TestEmptyChatAfterQuestionIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(`{"count": 3}`, `{"type":"question","question":"Who buys this?"}`)
	s, _ := f.svc.Start(ctx, "u1")
	s, _ = f.svc.SelectProduct(ctx, "u1", s.ID, "p1")
	s, _ = f.svc.SetCount(ctx, "u1", s.ID, 0)

	s, res, err := f.svc.Chat(ctx, "u1", s.ID, "", false)
	require.NoError(t, err)
	assert.Equal(t, planning.ResultQuestion, res.Type)
	require.Len(t, s.Messages, 1)

	_, _, err = f.svc.Chat(ctx, "u1", s.ID, "  ", false)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, 2, f.llm.calls, "no model call for the rejected turn")

	got, err := f.svc.Get(ctx, "u1", s.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)
}

func TestForceCompleteReachesConfirm(t *testing.T) {
	ctx := context.Background()
	f := newFixture(`{"count": 3}`, "I still have questions for you.")
	s, _ := f.svc.Start(ctx, "u1")
	s, _ = f.svc.SelectProduct(ctx, "u1", s.ID, "p1")
	s, _ = f.svc.SetCount(ctx, "u1", s.ID, 0)

	s, res, err := f.svc.Chat(ctx, "u1", s.ID, "", true)
	require.NoError(t, err)
	assert.True(t, res.Forced)
	assert.Equal(t, StateConfirm, s.State)
	assert.Len(t, s.Plans, 3)
}

func TestGenerateFailureStaysInGenerate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(`{"count": 1}`, `{"type":"proposal","newsletters":[{"subject":"Only"}]}`, `{"subject":[]}`)
	s, _ := f.svc.Start(ctx, "u1")
	s, _ = f.svc.SelectProduct(ctx, "u1", s.ID, "p1")
	s, _ = f.svc.SetCount(ctx, "u1", s.ID, 0)
	s, _, err := f.svc.Chat(ctx, "u1", s.ID, "go", false)
	require.NoError(t, err)
	s, err = f.svc.ConfirmPlan(ctx, "u1", s.ID, 1)
	require.NoError(t, err)

	_, err = f.svc.Generate(ctx, "u1", s.ID)
	assert.ErrorIs(t, err, assembler.ErrGeneration)

	got, _ := f.svc.Get(ctx, "u1", s.ID)
	assert.Equal(t, StateGenerate, got.State)
	assert.Nil(t, got.Variants)
}

func TestSessionOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s, _ := f.svc.Start(ctx, "u1")

	_, err := f.svc.Get(ctx, "u2", s.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.SelectProduct(ctx, "u2", s.ID, "p1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(ctx, "u2", s.ID), domain.ErrForbidden)

	require.NoError(t, f.svc.Delete(ctx, "u1", s.ID))
	_, err = f.svc.Get(ctx, "u1", s.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSelectForeignProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	s, _ := f.svc.Start(ctx, "u9")
	_, err := f.svc.SelectProduct(ctx, "u9", s.ID, "p1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
