package wizard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/letteros/letteros/internal/assembler"
	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/pkg/logger"
	"github.com/letteros/letteros/internal/planning"
	"github.com/letteros/letteros/internal/service/newsletter"
)

// Products resolves a LaunchContent owned by a user.
type Products interface {
	Get(ctx context.Context, userID, id string) (*domain.LaunchContent, error)
}

// Planner is the planning-chat orchestrator.
type Planner interface {
	SuggestCount(ctx context.Context, lc *domain.LaunchContent) planning.CountSuggestion
	Chat(ctx context.Context, req planning.ChatRequest) (*planning.ChatResult, error)
	MaxNewsletters() int
}

// Generator produces the variant set for one plan.
type Generator interface {
	Generate(ctx context.Context, lc *domain.LaunchContent, plan *domain.NewsletterPlan) (*domain.VariantSet, error)
}

// Newsletters saves the finished draft.
type Newsletters interface {
	Create(ctx context.Context, userID string, in newsletter.Input) (*domain.Newsletter, error)
}

// Service runs wizard sessions against the planning and assembly flows.
type Service struct {
	store       Store
	products    Products
	planner     Planner
	generator   Generator
	newsletters Newsletters
	now         func() time.Time
	logger      *logger.Logger
}

func NewService(store Store, products Products, planner Planner, generator Generator, newsletters Newsletters) *Service {
	return &Service{
		store:       store,
		products:    products,
		planner:     planner,
		generator:   generator,
		newsletters: newsletters,
		now:         time.Now,
		logger:      logger.Default().With("component", "wizard"),
	}
}

// Start opens a new session in ProductSelect.
func (s *Service) Start(ctx context.Context, userID string) (*Session, error) {
	now := s.now().UTC()
	sess := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		State:     StateProductSelect,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns the user's session.
func (s *Service) Get(ctx context.Context, userID, id string) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return sess, nil
}

// Delete abandons a session.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// SelectProduct binds the session to a product and asks for a count
// suggestion, which also becomes the default count.
func (s *Service) SelectProduct(ctx context.Context, userID, id, productID string) (*Session, error) {
	return s.step(ctx, userID, id, EventSelectProduct, func(next *Session) error {
		lc, err := s.products.Get(ctx, userID, productID)
		if err != nil {
			return err
		}
		suggestion := s.planner.SuggestCount(ctx, lc)
		next.ProductID = lc.ID
		next.Suggestion = &suggestion
		next.Count = suggestion.Count
		next.MaxCount = s.planner.MaxNewsletters()
		return nil
	})
}

// SetCount fixes the series length. Zero accepts the suggestion.
func (s *Service) SetCount(ctx context.Context, userID, id string, count int) (*Session, error) {
	return s.step(ctx, userID, id, EventSetCount, func(next *Session) error {
		if count != 0 {
			next.Count = count
		}
		next.Messages = nil
		next.Plans = nil
		return nil
	})
}

// Chat runs one planning turn. A question keeps the session in ChatPlan; a
// proposal moves it to Confirm. text may be empty to let the model open, but
// not when the model spoke last, unless forceComplete is set.
func (s *Service) Chat(ctx context.Context, userID, id, text string, forceComplete bool) (*Session, *planning.ChatResult, error) {
	sess, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	if err := check(sess.State, EventAsk); err != nil {
		return nil, nil, err
	}
	lc, err := s.products.Get(ctx, userID, sess.ProductID)
	if err != nil {
		return nil, nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" && !forceComplete && len(sess.Messages) > 0 &&
		sess.Messages[len(sess.Messages)-1].Role == domain.RoleAssistant {
		return nil, nil, domain.NewValidationError("text", "is required to answer the last question")
	}

	msgs := append([]domain.ChatMessage(nil), sess.Messages...)
	if text != "" {
		msgs = append(msgs, domain.ChatMessage{Role: domain.RoleUser, Text: text})
	}
	res, err := s.planner.Chat(ctx, planning.ChatRequest{
		Product:       lc,
		Messages:      msgs,
		Count:         sess.Count,
		ForceComplete: forceComplete,
	})
	if err != nil {
		return nil, nil, err
	}

	next := *sess
	ev := EventAsk
	if res.Type == planning.ResultProposal {
		ev = EventPropose
		next.Plans = res.Newsletters
	} else {
		msgs = append(msgs, domain.ChatMessage{Role: domain.RoleAssistant, Text: res.Question})
	}
	next.Messages = msgs

	out, err := s.commit(ctx, next, ev)
	if err != nil {
		return nil, nil, err
	}
	return out, res, nil
}

// Revise returns from Confirm to the chat, keeping the transcript.
func (s *Service) Revise(ctx context.Context, userID, id string) (*Session, error) {
	return s.step(ctx, userID, id, EventRevise, func(next *Session) error {
		next.Plans = nil
		next.Chosen = 0
		return nil
	})
}

// ConfirmPlan picks the plan to generate content for by its number.
func (s *Service) ConfirmPlan(ctx context.Context, userID, id string, number int) (*Session, error) {
	return s.step(ctx, userID, id, EventConfirmPlan, func(next *Session) error {
		next.Chosen = number
		return nil
	})
}

// Generate requests the variant set for the confirmed plan. On failure the
// session stays in Generate so the user can retry.
func (s *Service) Generate(ctx context.Context, userID, id string) (*Session, error) {
	return s.step(ctx, userID, id, EventVariantsReady, func(next *Session) error {
		lc, err := s.products.Get(ctx, userID, next.ProductID)
		if err != nil {
			return err
		}
		set, err := s.generator.Generate(ctx, lc, next.Plan())
		if err != nil {
			s.logger.Warn("variant generation failed", "session", next.ID, "error", err)
			return err
		}
		next.Variants = set
		next.Selection = assembler.Selection{}
		next.Draft = nil
		return nil
	})
}

// Pick selects one variant for a slot.
func (s *Service) Pick(ctx context.Context, userID, id string, slot domain.Slot, variantID string) (*Session, error) {
	return s.step(ctx, userID, id, EventPick, func(next *Session) error {
		sel := assembler.SelectByID(next.Variants, map[domain.Slot]string{slot: variantID})
		v := sel.Get(slot)
		if v == nil {
			return domain.NewValidationError("variantId", fmt.Sprintf("no %s variant with this id", slot))
		}
		next.Selection.Set(slot, v)
		return nil
	})
}

// Regenerate discards the variants and returns to Generate.
func (s *Service) Regenerate(ctx context.Context, userID, id string) (*Session, error) {
	return s.step(ctx, userID, id, EventRegenerate, func(next *Session) error {
		next.Variants = nil
		next.Selection = assembler.Selection{}
		return nil
	})
}

// Assemble builds the draft. It is refused until every slot is selected.
func (s *Service) Assemble(ctx context.Context, userID, id string) (*Session, error) {
	return s.step(ctx, userID, id, EventAssemble, func(next *Session) error {
		draft, err := assembler.Assemble(next.Selection)
		if err != nil {
			// left for the guard to report
			return nil
		}
		next.Draft = &draft
		return nil
	})
}

// Edit replaces the draft text in FinalEdit.
func (s *Service) Edit(ctx context.Context, userID, id, title, content string) (*Session, error) {
	return s.step(ctx, userID, id, EventEdit, func(next *Session) error {
		next.Draft = &assembler.Draft{Title: title, Content: content}
		return nil
	})
}

// Back moves one step back where the flow allows it.
func (s *Service) Back(ctx context.Context, userID, id string) (*Session, error) {
	return s.step(ctx, userID, id, EventBack, nil)
}

// Save stores the draft as a DRAFT newsletter linked to the product and
// closes the session.
func (s *Service) Save(ctx context.Context, userID, id string) (*Session, *domain.Newsletter, error) {
	var created *domain.Newsletter
	sess, err := s.step(ctx, userID, id, EventSave, func(next *Session) error {
		if _, err := Fire(*next, EventSave); err != nil {
			return err
		}
		n, err := s.newsletters.Create(ctx, userID, newsletter.Input{
			Title:           next.Draft.Title,
			Content:         next.Draft.Content,
			LaunchContentID: next.ProductID,
			Status:          domain.NewsletterDraft,
		})
		if err != nil {
			return err
		}
		created = n
		next.NewsletterID = n.ID
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("wizard saved newsletter", "session", sess.ID, "newsletter", created.ID)
	return sess, created, nil
}

// step loads the session, checks ev is allowed from its state, applies
// mutate to a copy and fires ev. The stored session changes only when every
// part succeeds.
func (s *Service) step(ctx context.Context, userID, id string, ev Event, mutate func(next *Session) error) (*Session, error) {
	sess, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := check(sess.State, ev); err != nil {
		return nil, err
	}
	next := *sess
	if mutate != nil {
		if err := mutate(&next); err != nil {
			return nil, err
		}
	}
	return s.commit(ctx, next, ev)
}

func (s *Service) commit(ctx context.Context, next Session, ev Event) (*Session, error) {
	out, err := Fire(next, ev)
	if err != nil {
		return nil, err
	}
	out.UpdatedAt = s.now().UTC()
	if err := s.store.Put(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func check(state State, ev Event) error {
	if _, ok := transitions[state][ev]; !ok {
		return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, ev, state)
	}
	return nil
}
