package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/pkg/httputil"
	"github.com/letteros/letteros/internal/service/newsletter"
)

// ListNewsletters handles GET /api/newsletters
func (h *Handlers) ListNewsletters(w http.ResponseWriter, r *http.Request) {
	items, err := h.newsletters.List(r.Context(), userID(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if items == nil {
		items = []domain.Newsletter{}
	}
	httputil.OK(w, items)
}

// CreateNewsletter handles POST /api/newsletters
func (h *Handlers) CreateNewsletter(w http.ResponseWriter, r *http.Request) {
	var in newsletter.Input
	if !httputil.Decode(w, r, &in) {
		return
	}
	n, err := h.newsletters.Create(r.Context(), userID(r), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.Created(w, n)
}

// GetNewsletter handles GET /api/newsletters/{id}
func (h *Handlers) GetNewsletter(w http.ResponseWriter, r *http.Request) {
	n, err := h.newsletters.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, n)
}

// UpdateNewsletter handles PUT /api/newsletters/{id}
func (h *Handlers) UpdateNewsletter(w http.ResponseWriter, r *http.Request) {
	var in newsletter.Input
	if !httputil.Decode(w, r, &in) {
		return
	}
	n, err := h.newsletters.Update(r.Context(), userID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, n)
}

// DeleteNewsletter handles DELETE /api/newsletters/{id}
func (h *Handlers) DeleteNewsletter(w http.ResponseWriter, r *http.Request) {
	if err := h.newsletters.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.NoContent(w)
}

type statusRequest struct {
	Status domain.NewsletterStatus `json:"status"`
}

func (s *statusRequest) Validate() error {
	if !s.Status.Valid() {
		return domain.NewValidationError("status", "must be one of DRAFT, SCHEDULED, SENT, FAILED")
	}
	return nil
}

// SetNewsletterStatus handles PUT /api/newsletters/{id}/status
func (h *Handlers) SetNewsletterStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	n, err := h.newsletters.SetStatus(r.Context(), userID(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, n)
}

type scheduleRequest struct {
	ScheduledAt *time.Time `json:"scheduledAt"`
}

func (s *scheduleRequest) Validate() error {
	if s.ScheduledAt == nil || s.ScheduledAt.IsZero() {
		return domain.NewValidationError("scheduledAt", "is required")
	}
	return nil
}

// ScheduleNewsletter handles POST /api/newsletters/{id}/schedule
func (h *Handlers) ScheduleNewsletter(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	n, err := h.newsletters.Schedule(r.Context(), userID(r), chi.URLParam(r, "id"), *req.ScheduledAt)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, n)
}

// SendNewsletter handles POST /api/newsletters/{id}/send. The newsletter is
// scheduled for now and picked up by the next scheduler tick.
func (h *Handlers) SendNewsletter(w http.ResponseWriter, r *http.Request) {
	n, err := h.newsletters.SendNow(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, n)
}
