package prompts

import "github.com/letteros/letteros/internal/domain"

// ProductVars flattens a LaunchContent for templates.
func ProductVars(lc *domain.LaunchContent) map[string]interface{} {
	return map[string]interface{}{
		"name":             lc.Name,
		"description":      lc.Description,
		"targetAudience":   lc.TargetAudience,
		"valueProposition": lc.ValueProposition,
		"tone":             lc.Tone,
		"coreMessage":      lc.CoreMessage,
		"concept":          lc.Launch.Concept,
		"targetPain":       lc.Launch.TargetPain,
		"currentState":     lc.Launch.CurrentState,
		"idealFuture":      lc.Launch.IdealFuture,
		"url":              lc.Launch.URL,
		"price":            lc.Launch.Price,
		"launchDate":       lc.Launch.LaunchDate,
	}
}

// PlanVars flattens a NewsletterPlan for templates.
func PlanVars(p *domain.NewsletterPlan) map[string]interface{} {
	return map[string]interface{}{
		"number":        p.Number,
		"subject":       p.Subject,
		"mainPoint":     p.MainPoint,
		"targetBelief":  p.TargetBelief,
		"proof":         p.Proof,
		"cta":           p.CTA,
		"targetSegment": p.TargetSegment,
		"currentBelief": p.CurrentBelief,
	}
}
