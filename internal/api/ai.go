package api

import (
	"errors"
	"net/http"

	"github.com/letteros/letteros/internal/assembler"
	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/pkg/httputil"
	"github.com/letteros/letteros/internal/planning"
)

type productRef struct {
	LaunchContentID string `json:"launchContentId"`
}

func (p *productRef) Validate() error {
	if p.LaunchContentID == "" {
		return domain.NewValidationError("launchContentId", "is required")
	}
	return nil
}

// SuggestCount handles POST /api/ai/suggest-count. A model failure still
// answers 200 with the fallback count.
func (h *Handlers) SuggestCount(w http.ResponseWriter, r *http.Request) {
	var req productRef
	if !httputil.Decode(w, r, &req) {
		return
	}
	lc, err := h.products.Get(r.Context(), userID(r), req.LaunchContentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, h.planner.SuggestCount(r.Context(), lc))
}

type planChatRequest struct {
	productRef
	Messages      []domain.ChatMessage `json:"messages"`
	Count         int                  `json:"count"`
	ForceComplete bool                 `json:"forceComplete"`
}

// PlanChat handles POST /api/ai/plan-chat
func (h *Handlers) PlanChat(w http.ResponseWriter, r *http.Request) {
	var req planChatRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	lc, err := h.products.Get(r.Context(), userID(r), req.LaunchContentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.planner.Chat(r.Context(), planning.ChatRequest{
		Product:       lc,
		Messages:      req.Messages,
		Count:         req.Count,
		ForceComplete: req.ForceComplete,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, res)
}

type generateRequest struct {
	productRef
	Plan *domain.NewsletterPlan `json:"plan"`
}

func (g *generateRequest) Validate() error {
	v := &domain.ValidationError{}
	if g.LaunchContentID == "" {
		v.Add("launchContentId", "is required")
	}
	if g.Plan == nil {
		v.Add("plan", "is required")
	}
	return v.OrNil()
}

// GenerateVariants handles POST /api/ai/generate-variants
func (h *Handlers) GenerateVariants(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	lc, err := h.products.Get(r.Context(), userID(r), req.LaunchContentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	set, err := h.generator.Generate(r.Context(), lc, req.Plan)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, set)
}

type assembleRequest struct {
	Selection assembler.Selection `json:"selection"`
}

// AssembleDraft handles POST /api/ai/assemble. An incomplete selection is a
// 400 listing the missing slots.
func (h *Handlers) AssembleDraft(w http.ResponseWriter, r *http.Request) {
	var req assembleRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	draft, err := assembler.Assemble(req.Selection)
	if errors.Is(err, assembler.ErrSelectionIncomplete) {
		v := &domain.ValidationError{}
		for _, slot := range req.Selection.Missing() {
			v.Add("selection."+string(slot), "must be selected")
		}
		httputil.WriteError(w, v)
		return
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, draft)
}

type titlesRequest struct {
	productRef
	Topic string `json:"topic"`
}

// SuggestTitles handles POST /api/ai/titles
func (h *Handlers) SuggestTitles(w http.ResponseWriter, r *http.Request) {
	var req titlesRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	lc, err := h.products.Get(r.Context(), userID(r), req.LaunchContentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	titles, err := h.planner.SuggestTitles(r.Context(), lc, req.Topic)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, map[string][]string{"titles": titles})
}

type productWizardRequest struct {
	planning.WizardAnswers
	Save bool `json:"save"`
}

// ProductWizard handles POST /api/ai/product-wizard. The drafted product is
// returned unsaved unless save is true.
func (h *Handlers) ProductWizard(w http.ResponseWriter, r *http.Request) {
	var req productWizardRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	lc, err := h.planner.DraftProduct(r.Context(), req.WizardAnswers)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !req.Save {
		httputil.OK(w, lc)
		return
	}
	saved, err := h.products.Create(r.Context(), userID(r), lc)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.Created(w, saved)
}
