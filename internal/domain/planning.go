package domain

// ChatRole identifies the author of a planning-chat message.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry of a planning-chat transcript.
type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

// NewsletterPlan is the ephemeral, unpersisted description of one newsletter
// in a series: its single point, the belief it should shift, the proof and
// the call to action.
type NewsletterPlan struct {
	Number        int    `json:"number"`
	Subject       string `json:"subject"`
	MainPoint     string `json:"mainPoint"`
	TargetBelief  string `json:"targetBelief"`
	Proof         string `json:"proof"`
	CTA           string `json:"cta"`
	TargetSegment string `json:"targetSegment,omitempty"`
	CurrentBelief string `json:"currentBelief,omitempty"`
}

// Slot names one independently selectable part of a generated newsletter.
type Slot string

const (
	SlotSubject      Slot = "subject"
	SlotIntroduction Slot = "introduction"
	SlotStructure    Slot = "structure"
	SlotConclusion   Slot = "conclusion"
)

// Slots lists every slot in assembly order.
var Slots = []Slot{SlotSubject, SlotIntroduction, SlotStructure, SlotConclusion}

// GeneratedVariant is one candidate phrasing for a slot.
type GeneratedVariant struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning"`
}

// VariantSet holds the candidates produced for every slot.
type VariantSet struct {
	Subject      []GeneratedVariant `json:"subject"`
	Introduction []GeneratedVariant `json:"introduction"`
	Structure    []GeneratedVariant `json:"structure"`
	Conclusion   []GeneratedVariant `json:"conclusion"`
}

// ForSlot returns the candidates for slot s.
func (vs *VariantSet) ForSlot(s Slot) []GeneratedVariant {
	switch s {
	case SlotSubject:
		return vs.Subject
	case SlotIntroduction:
		return vs.Introduction
	case SlotStructure:
		return vs.Structure
	case SlotConclusion:
		return vs.Conclusion
	}
	return nil
}
