package planning

import (
	"fmt"

	"github.com/letteros/letteros/internal/domain"
)

// FallbackPlans builds count plans from the LaunchContent alone. The series
// cycles through naming the pain, showing the outcome, introducing the
// product and closing the offer; the same input always gives the same plans.
func FallbackPlans(lc *domain.LaunchContent, count int) []domain.NewsletterPlan {
	name := or(lc.Name, "the product")
	pain := or(lc.Launch.TargetPain, "the problem you keep running into")
	future := or(lc.Launch.IdealFuture, "the result you actually want")
	current := or(lc.Launch.CurrentState, "where most people are stuck today")
	value := or(lc.ValueProposition, lc.Description, "a clear path forward")
	core := or(lc.CoreMessage, lc.Launch.Concept, value)

	cta := "Reply and tell me where you are stuck"
	if lc.Launch.URL != "" {
		cta = "Learn more at " + lc.Launch.URL
	}
	closer := "Join " + name + " today"
	if lc.Launch.LaunchDate != "" {
		closer = fmt.Sprintf("Join %s before %s", name, lc.Launch.LaunchDate)
	}

	angles := []domain.NewsletterPlan{
		{
			Subject:       "The real reason behind " + pain,
			MainPoint:     "Naming the problem: " + pain,
			CurrentBelief: "This is just how things are",
			TargetBelief:  "This problem has a cause and it can be fixed",
			Proof:         current,
			CTA:           "Reply and tell me where you are stuck",
		},
		{
			Subject:       "What changes when you reach " + future,
			MainPoint:     future,
			CurrentBelief: "That outcome is for other people",
			TargetBelief:  "That outcome is realistic for me",
			Proof:         value,
			CTA:           cta,
		},
		{
			Subject:       "Introducing " + name,
			MainPoint:     core,
			CurrentBelief: "I have tried everything already",
			TargetBelief:  name + " is the bridge from here to there",
			Proof:         value,
			CTA:           cta,
		},
		{
			Subject:       "Last call for " + name,
			MainPoint:     core,
			CurrentBelief: "I can start later",
			TargetBelief:  "Now is the right time to act",
			Proof:         or(lc.Launch.Price, value),
			CTA:           closer,
		},
	}

	plans := make([]domain.NewsletterPlan, count)
	for i := range plans {
		p := angles[i%len(angles)]
		if i >= len(angles) {
			p.Subject = fmt.Sprintf("%s (part %d)", p.Subject, i/len(angles)+1)
		}
		p.Number = i + 1
		p.TargetSegment = lc.TargetAudience
		plans[i] = p
	}
	return plans
}

func or(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
