package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/pkg/httputil"
	"github.com/letteros/letteros/internal/planning"
	"github.com/letteros/letteros/internal/wizard"
)

// wizardResponse is the session plus the events legal from its state.
type wizardResponse struct {
	Session    *wizard.Session      `json:"session"`
	Allowed    []wizard.Event       `json:"allowed"`
	Result     *planning.ChatResult `json:"result,omitempty"`
	Newsletter *domain.Newsletter   `json:"newsletter,omitempty"`
}

func respondWizard(w http.ResponseWriter, status int, sess *wizard.Session) {
	respondJSON(w, status, wizardResponse{Session: sess, Allowed: wizard.Allowed(sess.State)})
}

// wizardStep adapts a service call that takes only the session id.
func (h *Handlers) wizardStep(step func(h *Handlers, r *http.Request, uid, id string) (*wizard.Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := step(h, r, userID(r), chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		respondWizard(w, http.StatusOK, sess)
	}
}

// StartWizard handles POST /api/wizards
func (h *Handlers) StartWizard(w http.ResponseWriter, r *http.Request) {
	sess, err := h.wizards.Start(r.Context(), userID(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	respondWizard(w, http.StatusCreated, sess)
}

// GetWizard handles GET /api/wizards/{id}
func (h *Handlers) GetWizard(w http.ResponseWriter, r *http.Request) {
	h.wizardStep(func(h *Handlers, r *http.Request, uid, id string) (*wizard.Session, error) {
		return h.wizards.Get(r.Context(), uid, id)
	})(w, r)
}

// DeleteWizard handles DELETE /api/wizards/{id}
func (h *Handlers) DeleteWizard(w http.ResponseWriter, r *http.Request) {
	if err := h.wizards.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.NoContent(w)
}

type wizardProductRequest struct {
	ProductID string `json:"productId"`
}

func (p *wizardProductRequest) Validate() error {
	if p.ProductID == "" {
		return domain.NewValidationError("productId", "is required")
	}
	return nil
}

// WizardSelectProduct handles POST /api/wizards/{id}/product
func (h *Handlers) WizardSelectProduct(w http.ResponseWriter, r *http.Request) {
	var req wizardProductRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	h.wizardStep(func(h *Handlers, r *http.Request, uid, id string) (*wizard.Session, error) {
		return h.wizards.SelectProduct(r.Context(), uid, id, req.ProductID)
	})(w, r)
}

type wizardCountRequest struct {
	Count int `json:"count"`
}

// WizardSetCount handles POST /api/wizards/{id}/count. A count of 0 accepts
// the suggestion.
func (h *Handlers) WizardSetCount(w http.ResponseWriter, r *http.Request) {
	var req wizardCountRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	h.wizardStep(func(h *Handlers, r *http.Request, uid, id string) (*wizard.Session, error) {
		return h.wizards.SetCount(r.Context(), uid, id, req.Count)
	})(w, r)
}

type wizardChatRequest struct {
	Text          string `json:"text"`
	ForceComplete bool   `json:"forceComplete"`
}

// WizardChat handles POST /api/wizards/{id}/chat
func (h *Handlers) WizardChat(w http.ResponseWriter, r *http.Request) {
	var req wizardChatRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	sess, res, err := h.wizards.Chat(r.Context(), userID(r), chi.URLParam(r, "id"), req.Text, req.ForceComplete)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, wizardResponse{Session: sess, Allowed: wizard.Allowed(sess.State), Result: res})
}

// WizardRevise handles POST /api/wizards/{id}/revise
func (h *Handlers) WizardRevise(w http.ResponseWriter, r *http.Request) {
	h.wizardStep(func(h *Handlers, r *http.Request, uid, id string) (*wizard.Session, error) {
		return h.wizards.Revise(r.Context(), uid, id)
	})(w, r)
}

type wizardConfirmRequest struct {
	Number int `json:"number"`
}

// WizardConfirm handles POST /api/wizards/{id}/confirm
func (h *Handlers) WizardConfirm(w http.ResponseWriter, r *http.Request) {
	var req wizardConfirmRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	h.wizardStep(func(h *Handlers, r *http.Request, uid, id string) (*wizard.Session, error) {
		return h.wizards.ConfirmPlan(r.Context(), uid, id, req.Number)
	})(w, r)
}

// WizardGenerate handles POST /api/wizards/{id}/generate
func (h *Handlers) WizardGenerate(w http.ResponseWriter, r *http.Request) {
	h.wizardStep(func(h *Handlers, r *http.Request, uid, id string) (*wizard.Session, error) {
		return h.wizards.Generate(r.Context(), uid, id)
	})(w, r)
}

type wizardPickRequest struct {
	Slot      domain.Slot `json:"slot"`
	VariantID string      `json:"variantId"`
}

func (p *wizardPickRequest) Validate() error {
	v := &domain.ValidationError{}
	switch p.Slot {
	case domain.SlotSubject, domain.SlotIntroduction, domain.SlotStructure, domain.SlotConclusion:
	default:
		v.Add("slot", "must be subject, introduction, structure or conclusion")
	}
	if p.VariantID == "" {
		v.Add("variantId", "is required")
	}
	return v.OrNil()
}

// WizardPick handles POST /api/wizards/{id}/pick
func (h *Handlers) WizardPick(w http.ResponseWriter, r *http.Request) {
	var req wizardPickRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	h.wizardStep(func(h *Handlers, r *http.Request, uid, id string) (*wizard.Session, error) {
		return h.wizards.Pick(r.Context(), uid, id, req.Slot, req.VariantID)
	})(w, r)
}

// WizardRegenerate handles POST /api/wizards/{id}/regenerate
func (h *Handlers) WizardRegenerate(w http.ResponseWriter, r *http.Request) {
	h.wizardStep(func(h *Handlers, r *http.Request, uid, id string) (*wizard.Session, error) {
		return h.wizards.Regenerate(r.Context(), uid, id)
	})(w, r)
}

// WizardAssemble handles POST /api/wizards/{id}/assemble
func (h *Handlers) WizardAssemble(w http.ResponseWriter, r *http.Request) {
	h.wizardStep(func(h *Handlers, r *http.Request, uid, id string) (*wizard.Session, error) {
		return h.wizards.Assemble(r.Context(), uid, id)
	})(w, r)
}

type wizardEditRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// WizardEdit handles POST /api/wizards/{id}/edit
func (h *Handlers) WizardEdit(w http.ResponseWriter, r *http.Request) {
	var req wizardEditRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	h.wizardStep(func(h *Handlers, r *http.Request, uid, id string) (*wizard.Session, error) {
		return h.wizards.Edit(r.Context(), uid, id, req.Title, req.Content)
	})(w, r)
}

// WizardBack handles POST /api/wizards/{id}/back
func (h *Handlers) WizardBack(w http.ResponseWriter, r *http.Request) {
	h.wizardStep(func(h *Handlers, r *http.Request, uid, id string) (*wizard.Session, error) {
		return h.wizards.Back(r.Context(), uid, id)
	})(w, r)
}

// WizardSave handles POST /api/wizards/{id}/save
func (h *Handlers) WizardSave(w http.ResponseWriter, r *http.Request) {
	sess, n, err := h.wizards.Save(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.Created(w, wizardResponse{Session: sess, Allowed: wizard.Allowed(sess.State), Newsletter: n})
}
