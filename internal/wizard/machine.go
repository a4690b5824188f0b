package wizard

import (
	"errors"
	"fmt"
	"time"

	"github.com/letteros/letteros/internal/assembler"
	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/planning"
)

// State is one step of the wizard.
type State string

const (
	StateProductSelect State = "product_select"
	StateCountSuggest  State = "count_suggest"
	StateChatPlan      State = "chat_plan"
	StateConfirm       State = "confirm"
	StateGenerate      State = "generate"
	StateSelect        State = "select"
	StateFinalEdit     State = "final_edit"
	StateDone          State = "done"
)

// Event moves a session between states.
type Event string

const (
	EventSelectProduct Event = "select_product"
	EventSetCount      Event = "set_count"
	EventAsk           Event = "ask"
	EventPropose       Event = "propose"
	EventRevise        Event = "revise"
	EventConfirmPlan   Event = "confirm_plan"
	EventVariantsReady Event = "variants_ready"
	EventPick          Event = "pick"
	EventRegenerate    Event = "regenerate"
	EventAssemble      Event = "assemble"
	EventEdit          Event = "edit"
	EventBack          Event = "back"
	EventSave          Event = "save"
)

// ErrIllegalTransition is returned when an event is not allowed from the
// current state or its guard rejects the session.
var ErrIllegalTransition = fmt.Errorf("%w: illegal wizard transition", domain.ErrConflict)

// Session is the persisted wizard state.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	State  State  `json:"state"`

	ProductID  string                    `json:"productId,omitempty"`
	Suggestion *planning.CountSuggestion `json:"suggestion,omitempty"`
	Count      int                       `json:"count,omitempty"`
	MaxCount   int                       `json:"maxCount,omitempty"`

	Messages []domain.ChatMessage    `json:"messages,omitempty"`
	Plans    []domain.NewsletterPlan `json:"plans,omitempty"`
	Chosen   int                     `json:"chosen,omitempty"`

	Variants  *domain.VariantSet  `json:"variants,omitempty"`
	Selection assembler.Selection `json:"selection"`
	Draft     *assembler.Draft    `json:"draft,omitempty"`

	NewsletterID string `json:"newsletterId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Plan returns the confirmed plan, or nil before confirmation.
func (s *Session) Plan() *domain.NewsletterPlan {
	for i := range s.Plans {
		if s.Plans[i].Number == s.Chosen {
			return &s.Plans[i]
		}
	}
	return nil
}

type guard func(s *Session) error

type transition struct {
	to    State
	guard guard
}

var transitions = map[State]map[Event]transition{
	StateProductSelect: {
		EventSelectProduct: {StateCountSuggest, hasProduct},
	},
	StateCountSuggest: {
		EventSetCount: {StateChatPlan, countInRange},
		EventBack:     {StateProductSelect, nil},
	},
	StateChatPlan: {
		EventAsk:     {StateChatPlan, nil},
		EventPropose: {StateConfirm, plansMatchCount},
		EventBack:    {StateCountSuggest, nil},
	},
	StateConfirm: {
		EventConfirmPlan: {StateGenerate, planChosen},
		EventRevise:      {StateChatPlan, nil},
		EventBack:        {StateChatPlan, nil},
	},
	StateGenerate: {
		EventVariantsReady: {StateSelect, hasVariants},
		EventBack:          {StateConfirm, nil},
	},
	StateSelect: {
		EventPick:       {StateSelect, nil},
		EventRegenerate: {StateGenerate, nil},
		EventAssemble:   {StateFinalEdit, selectionComplete},
		EventBack:       {StateConfirm, nil},
	},
	StateFinalEdit: {
		EventEdit: {StateFinalEdit, hasTitle},
		EventBack: {StateSelect, nil},
		EventSave: {StateDone, hasTitle},
	},
}

// Fire applies ev to s and returns the resulting session. On error the
// returned session is s unchanged.
func Fire(s Session, ev Event) (Session, error) {
	t, ok := transitions[s.State][ev]
	if !ok {
		return s, fmt.Errorf("%w: %s from %s", ErrIllegalTransition, ev, s.State)
	}
	if t.guard != nil {
		if err := t.guard(&s); err != nil {
			return s, fmt.Errorf("%w: %s from %s: %w", ErrIllegalTransition, ev, s.State, err)
		}
	}
	s.State = t.to
	return s, nil
}

// Allowed lists the events accepted from state, for clients deciding what to
// render.
func Allowed(state State) []Event {
	var out []Event
	for _, ev := range eventOrder {
		if _, ok := transitions[state][ev]; ok {
			out = append(out, ev)
		}
	}
	return out
}

var eventOrder = []Event{
	EventSelectProduct, EventSetCount, EventAsk, EventPropose, EventRevise,
	EventConfirmPlan, EventVariantsReady, EventPick, EventRegenerate,
	EventAssemble, EventEdit, EventSave, EventBack,
}

func hasProduct(s *Session) error {
	if s.ProductID == "" {
		return errors.New("no product selected")
	}
	return nil
}

func countInRange(s *Session) error {
	if s.Count < 1 || (s.MaxCount > 0 && s.Count > s.MaxCount) {
		return fmt.Errorf("count %d out of range", s.Count)
	}
	return nil
}

func plansMatchCount(s *Session) error {
	if len(s.Plans) != s.Count {
		return fmt.Errorf("proposal has %d plans, want %d", len(s.Plans), s.Count)
	}
	return nil
}

func planChosen(s *Session) error {
	if s.Plan() == nil {
		return fmt.Errorf("no plan numbered %d", s.Chosen)
	}
	return nil
}

func hasVariants(s *Session) error {
	if s.Variants == nil {
		return errors.New("no variants generated")
	}
	return nil
}

func selectionComplete(s *Session) error {
	if missing := s.Selection.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", assembler.ErrSelectionIncomplete, missing)
	}
	return nil
}

func hasTitle(s *Session) error {
	if s.Draft == nil || s.Draft.Title == "" {
		return errors.New("draft needs a title")
	}
	return nil
}
