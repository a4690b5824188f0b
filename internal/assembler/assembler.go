// Package assembler generates three candidate phrasings for each of the four
// newsletter slots and assembles a draft from one chosen candidate per slot.
//
// Assembly is pure concatenation: the title is the chosen subject verbatim
// and the body is introduction, structure and conclusion joined by blank
// lines. Nothing is ranked and nothing is rewritten.
package assembler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/llm"
	"github.com/letteros/letteros/internal/prompts"
)

// VariantsPerSlot is the exact number of candidates required for each slot.
const VariantsPerSlot = 3

var (
	// ErrGeneration means the model reply was not four arrays of three
	// variants. There is no partial fallback.
	ErrGeneration = fmt.Errorf("%w: variant generation failed", domain.ErrUpstream)

	ErrSelectionIncomplete = errors.New("a variant must be selected for every slot")
)

// Generator asks the model for variants.
type Generator struct {
	llm  llm.Completer
	pack *prompts.Pack
}

func NewGenerator(c llm.Completer, pack *prompts.Pack) *Generator {
	return &Generator{llm: c, pack: pack}
}

// Generate returns exactly three variants per slot for plan. Variant ids are
// assigned here when the model leaves them out.
func (g *Generator) Generate(ctx context.Context, lc *domain.LaunchContent, plan *domain.NewsletterPlan) (*domain.VariantSet, error) {
	system, user, err := g.pack.Render(prompts.GenerateVariants, map[string]interface{}{
		"product": prompts.ProductVars(lc),
		"plan":    prompts.PlanVars(plan),
	})
	if err != nil {
		return nil, err
	}

	text, err := g.llm.Complete(ctx, llm.Request{
		System:   strings.TrimSpace(system),
		Messages: []llm.Message{{Role: llm.RoleUser, Text: strings.TrimSpace(user)}},
	})
	if err != nil {
		if !errors.Is(err, domain.ErrUpstream) {
			err = fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
		return nil, err
	}
	return ParseVariants(text)
}

// ParseVariants extracts a VariantSet from a model reply and checks arity.
func ParseVariants(text string) (*domain.VariantSet, error) {
	obj, ok := llm.ExtractJSONObject(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrGeneration)
	}
	var set domain.VariantSet
	if err := json.Unmarshal([]byte(obj), &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	for _, slot := range domain.Slots {
		variants := set.ForSlot(slot)
		if len(variants) != VariantsPerSlot {
			return nil, fmt.Errorf("%w: %s has %d variants, want %d", ErrGeneration, slot, len(variants), VariantsPerSlot)
		}
		for i := range variants {
			if strings.TrimSpace(variants[i].Content) == "" {
				return nil, fmt.Errorf("%w: %s variant %d is empty", ErrGeneration, slot, i+1)
			}
			if variants[i].ID == "" {
				variants[i].ID = uuid.New().String()
			}
		}
	}
	return &set, nil
}

// Selection is the user's pick per slot. A nil field is unselected.
type Selection struct {
	Subject      *domain.GeneratedVariant `json:"subject"`
	Introduction *domain.GeneratedVariant `json:"introduction"`
	Structure    *domain.GeneratedVariant `json:"structure"`
	Conclusion   *domain.GeneratedVariant `json:"conclusion"`
}

// Missing lists the slots still unselected, in assembly order.
func (s *Selection) Missing() []domain.Slot {
	var missing []domain.Slot
	for _, slot := range domain.Slots {
		if s.Get(slot) == nil {
			missing = append(missing, slot)
		}
	}
	return missing
}

// Complete reports whether every slot has a selection.
func (s *Selection) Complete() bool { return len(s.Missing()) == 0 }

// Set stores v as the selection for slot.
func (s *Selection) Set(slot domain.Slot, v *domain.GeneratedVariant) {
	switch slot {
	case domain.SlotSubject:
		s.Subject = v
	case domain.SlotIntroduction:
		s.Introduction = v
	case domain.SlotStructure:
		s.Structure = v
	case domain.SlotConclusion:
		s.Conclusion = v
	}
}

// Get returns the selection for slot, or nil.
func (s *Selection) Get(slot domain.Slot) *domain.GeneratedVariant {
	switch slot {
	case domain.SlotSubject:
		return s.Subject
	case domain.SlotIntroduction:
		return s.Introduction
	case domain.SlotStructure:
		return s.Structure
	case domain.SlotConclusion:
		return s.Conclusion
	}
	return nil
}

// SelectByID builds a Selection from variant ids chosen per slot. Unknown
// ids leave the slot unselected.
func SelectByID(set *domain.VariantSet, ids map[domain.Slot]string) Selection {
	var sel Selection
	for _, slot := range domain.Slots {
		id, ok := ids[slot]
		if !ok {
			continue
		}
		variants := set.ForSlot(slot)
		for i := range variants {
			if variants[i].ID == id {
				v := variants[i]
				sel.Set(slot, &v)
				break
			}
		}
	}
	return sel
}

// Draft is the assembled newsletter text.
type Draft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Assemble concatenates the selection. It fails with ErrSelectionIncomplete
// if any slot is unselected.
func Assemble(sel Selection) (Draft, error) {
	if missing := sel.Missing(); len(missing) > 0 {
		return Draft{}, fmt.Errorf("%w: missing %v", ErrSelectionIncomplete, missing)
	}
	return Draft{
		Title:   sel.Subject.Content,
		Content: sel.Introduction.Content + "\n\n" + sel.Structure.Content + "\n\n" + sel.Conclusion.Content,
	}, nil
}
