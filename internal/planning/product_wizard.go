package planning

import (
	"context"
	"strings"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/prompts"
)

// WizardAnswers are the four required answers of the product wizard plus the
// optional launch details.
type WizardAnswers struct {
	Concept      string `json:"concept"`
	TargetPain   string `json:"targetPain"`
	CurrentState string `json:"currentState"`
	IdealFuture  string `json:"idealFuture"`
	URL          string `json:"url,omitempty"`
	Price        string `json:"price,omitempty"`
	LaunchDate   string `json:"launchDate,omitempty"`
}

// Validate implements httputil.Validator.
func (a *WizardAnswers) Validate() error {
	v := &domain.ValidationError{}
	for _, f := range []struct{ name, val string }{
		{"concept", a.Concept},
		{"targetPain", a.TargetPain},
		{"currentState", a.CurrentState},
		{"idealFuture", a.IdealFuture},
	} {
		if strings.TrimSpace(f.val) == "" {
			v.Add(f.name, "is required")
		}
	}
	return v.OrNil()
}

type personaReply struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	TargetAudience   string `json:"targetAudience"`
	ValueProposition string `json:"valueProposition"`
	Tone             string `json:"tone"`
	CoreMessage      string `json:"coreMessage"`
}

// DraftProduct turns wizard answers into an unsaved LaunchContent with
// generatedBy=ai.
func (o *Orchestrator) DraftProduct(ctx context.Context, a WizardAnswers) (*domain.LaunchContent, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	text, err := o.complete(ctx, prompts.ProductWizard, map[string]interface{}{
		"answers": map[string]interface{}{
			"concept":      a.Concept,
			"targetPain":   a.TargetPain,
			"currentState": a.CurrentState,
			"idealFuture":  a.IdealFuture,
			"url":          a.URL,
			"price":        a.Price,
			"launchDate":   a.LaunchDate,
		},
	}, nil)
	if err != nil {
		return nil, err
	}

	var p personaReply
	if err := decodeObject(text, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, ErrUnparsable
	}

	return &domain.LaunchContent{
		Name:             p.Name,
		Description:      p.Description,
		TargetAudience:   p.TargetAudience,
		ValueProposition: p.ValueProposition,
		Tone:             p.Tone,
		CoreMessage:      p.CoreMessage,
		Launch: domain.LaunchDetails{
			Concept:      a.Concept,
			TargetPain:   a.TargetPain,
			CurrentState: a.CurrentState,
			IdealFuture:  a.IdealFuture,
			URL:          a.URL,
			Price:        a.Price,
			LaunchDate:   a.LaunchDate,
			GeneratedBy:  domain.GeneratedAI,
		},
	}, nil
}
