package planning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/llm"
	"github.com/letteros/letteros/internal/pkg/logger"
	"github.com/letteros/letteros/internal/prompts"
)

// Options bound the planning flow.
type Options struct {
	MaxTurns       int
	MaxNewsletters int
	FallbackCount  int
}

// Orchestrator runs the planning flows against a language model.
type Orchestrator struct {
	llm    llm.Completer
	pack   *prompts.Pack
	opts   Options
	logger *logger.Logger
}

// NewOrchestrator creates an orchestrator. Zero options take the defaults
// 10 turns, 12 newsletters and a fallback count of 3.
func NewOrchestrator(c llm.Completer, pack *prompts.Pack, opts Options) *Orchestrator {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 10
	}
	if opts.MaxNewsletters <= 0 {
		opts.MaxNewsletters = 12
	}
	if opts.FallbackCount <= 0 {
		opts.FallbackCount = 3
	}
	if opts.FallbackCount > opts.MaxNewsletters {
		opts.FallbackCount = opts.MaxNewsletters
	}
	return &Orchestrator{llm: c, pack: pack, opts: opts, logger: logger.Default().With("component", "planning")}
}

// MaxNewsletters is the upper bound for a series.
func (o *Orchestrator) MaxNewsletters() int { return o.opts.MaxNewsletters }

// CountSuggestion is the suggested length of a newsletter series.
type CountSuggestion struct {
	Count     int    `json:"count"`
	Reasoning string `json:"reasoning"`
	Fallback  bool   `json:"fallback,omitempty"`
}

// SuggestCount asks the model how many newsletters the launch needs. It
// never fails: any model or parse error yields the fallback count.
func (o *Orchestrator) SuggestCount(ctx context.Context, lc *domain.LaunchContent) CountSuggestion {
	fallback := CountSuggestion{
		Count:     o.opts.FallbackCount,
		Reasoning: fmt.Sprintf("A %d-part sequence covers the problem, the solution and the offer.", o.opts.FallbackCount),
		Fallback:  true,
	}

	text, err := o.complete(ctx, prompts.SuggestCount, map[string]interface{}{
		"product": prompts.ProductVars(lc),
		"max":     o.opts.MaxNewsletters,
	}, nil)
	if err != nil {
		o.logger.Warn("count suggestion failed, using fallback", "error", err)
		return fallback
	}

	var out CountSuggestion
	if err := decodeObject(text, &out); err != nil || out.Count < 1 {
		o.logger.Warn("count suggestion unparsable, using fallback", "reply", truncate(text, 200))
		return fallback
	}
	if out.Count > o.opts.MaxNewsletters {
		out.Count = o.opts.MaxNewsletters
	}
	return out
}

// ResultType discriminates a chat result.
type ResultType string

const (
	ResultQuestion ResultType = "question"
	ResultProposal ResultType = "proposal"
)

// ChatRequest is one turn of the planning chat.
type ChatRequest struct {
	Product       *domain.LaunchContent `json:"-"`
	Messages      []domain.ChatMessage  `json:"messages"`
	Count         int                   `json:"count"`
	ForceComplete bool                  `json:"forceComplete"`
}

// ChatResult is either a clarifying question or a proposal.
type ChatResult struct {
	Type        ResultType              `json:"type"`
	Question    string                  `json:"question,omitempty"`
	Reason      string                  `json:"reason,omitempty"`
	Newsletters []domain.NewsletterPlan `json:"newsletters,omitempty"`
	TurnCount   int                     `json:"turnCount"`
	Forced      bool                    `json:"forced"`
}

// TurnCount is the number of user-authored messages in a transcript.
func TurnCount(msgs []domain.ChatMessage) int {
	n := 0
	for _, m := range msgs {
		if m.Role == domain.RoleUser {
			n++
		}
	}
	return n
}

// Chat runs one planning turn. Model errors are returned as
// domain.ErrUpstream and never retried.
func (o *Orchestrator) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if err := o.validateChat(req); err != nil {
		return nil, err
	}
	turns := TurnCount(req.Messages)
	forced := req.ForceComplete || turns >= o.opts.MaxTurns

	text, err := o.complete(ctx, prompts.PlanChat, map[string]interface{}{
		"product": prompts.ProductVars(req.Product),
		"count":   req.Count,
		"forced":  forced,
	}, req.Messages)
	if err != nil {
		return nil, err
	}

	res := interpret(text, forced)
	res.TurnCount = turns
	res.Forced = forced
	if res.Type == ResultProposal {
		res.Newsletters = fitPlans(res.Newsletters, req.Count, req.Product)
	}
	return res, nil
}

type chatReply struct {
	Type        string                  `json:"type"`
	Question    string                  `json:"question"`
	Reason      string                  `json:"reason"`
	Newsletters []domain.NewsletterPlan `json:"newsletters"`
}

// interpret turns the model's raw reply into a result. In forced mode the
// result is always a proposal, possibly with no plans yet.
func interpret(text string, forced bool) *ChatResult {
	var reply chatReply
	if err := decodeObject(text, &reply); err != nil {
		if forced {
			return &ChatResult{Type: ResultProposal}
		}
		return &ChatResult{Type: ResultQuestion, Question: strings.TrimSpace(llm.StripFences(text))}
	}

	if forced {
		return &ChatResult{Type: ResultProposal, Newsletters: reply.Newsletters}
	}
	if reply.Type == string(ResultProposal) && len(reply.Newsletters) > 0 {
		return &ChatResult{Type: ResultProposal, Newsletters: reply.Newsletters}
	}
	q := strings.TrimSpace(reply.Question)
	if q == "" {
		q = strings.TrimSpace(text)
	}
	return &ChatResult{Type: ResultQuestion, Question: q, Reason: reply.Reason}
}

// fitPlans returns exactly count plans numbered 1..count, filling missing
// ones from the fallback plan for that position.
func fitPlans(plans []domain.NewsletterPlan, count int, lc *domain.LaunchContent) []domain.NewsletterPlan {
	if len(plans) > count {
		plans = plans[:count]
	}
	out := make([]domain.NewsletterPlan, count)
	fallback := FallbackPlans(lc, count)
	for i := range out {
		if i < len(plans) {
			out[i] = plans[i]
		} else {
			out[i] = fallback[i]
		}
		out[i].Number = i + 1
		if out[i].TargetSegment == "" {
			out[i].TargetSegment = lc.TargetAudience
		}
	}
	return out
}

func (o *Orchestrator) validateChat(req ChatRequest) error {
	v := &domain.ValidationError{}
	if req.Product == nil {
		v.Add("launchContentId", "is required")
	}
	if req.Count < 1 || req.Count > o.opts.MaxNewsletters {
		v.Add("count", fmt.Sprintf("must be between 1 and %d", o.opts.MaxNewsletters))
	}
	for i, m := range req.Messages {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			v.Add(fmt.Sprintf("messages[%d].role", i), "must be user or assistant")
		}
	}
	return v.OrNil()
}

// complete renders a prompt and sends it with an optional transcript. The
// rendered user part opens the conversation when the transcript does not
// start with a user turn, and closes it when it does not end with one.
func (o *Orchestrator) complete(ctx context.Context, name string, vars map[string]interface{}, transcript []domain.ChatMessage) (string, error) {
	system, user, err := o.pack.Render(name, vars)
	if err != nil {
		return "", err
	}
	user = strings.TrimSpace(user)

	msgs := make([]llm.Message, 0, len(transcript)+2)
	if len(transcript) == 0 || transcript[0].Role != domain.RoleUser {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Text: user})
	}
	for _, m := range transcript {
		msgs = append(msgs, llm.Message{Role: llm.Role(m.Role), Text: m.Text})
	}
	if last := msgs[len(msgs)-1]; last.Role != llm.RoleUser {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Text: user})
	} else if len(transcript) > 0 && vars["forced"] == true {
		msgs[len(msgs)-1].Text = last.Text + "\n\n" + user
	}

	text, err := o.llm.Complete(ctx, llm.Request{System: strings.TrimSpace(system), Messages: msgs})
	if err != nil {
		if !errors.Is(err, domain.ErrUpstream) {
			err = fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
		return "", err
	}
	return text, nil
}

// decodeObject extracts the first JSON object in text into v.
func decodeObject(text string, v interface{}) error {
	obj, ok := llm.ExtractJSONObject(text)
	if !ok {
		return ErrUnparsable
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
