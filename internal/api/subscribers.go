package api

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/importer"
	"github.com/letteros/letteros/internal/pkg/httputil"
	"github.com/letteros/letteros/internal/service/subscriber"
)

// ListSubscribers handles GET /api/subscribers?tags=a,b&page=1&limit=100
func (h *Handlers) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subscribers.List(r.Context(), userID(r), splitTags(r.URL.Query().Get("tags")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, paginate(subs, ParsePagination(r, 100, 1000)))
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// CreateSubscriber handles POST /api/subscribers
func (h *Handlers) CreateSubscriber(w http.ResponseWriter, r *http.Request) {
	var in subscriber.Input
	if !httputil.Decode(w, r, &in) {
		return
	}
	sub, err := h.subscribers.Create(r.Context(), userID(r), in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.Created(w, sub)
}

type subscriberUpdate struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// UpdateSubscriber handles PUT /api/subscribers/{id}
func (h *Handlers) UpdateSubscriber(w http.ResponseWriter, r *http.Request) {
	var req subscriberUpdate
	if !httputil.Decode(w, r, &req) {
		return
	}
	sub, err := h.subscribers.Update(r.Context(), userID(r), chi.URLParam(r, "id"), req.Name, req.Tags)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, sub)
}

// DeleteSubscriber handles DELETE /api/subscribers/{id}
func (h *Handlers) DeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	if err := h.subscribers.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.NoContent(w)
}

// SubscriberTags handles GET /api/subscribers/tags
func (h *Handlers) SubscriberTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.subscribers.Tags(r.Context(), userID(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	httputil.OK(w, map[string][]string{"tags": tags})
}

// ExportSubscribers handles GET /api/subscribers/export. The file is built
// in memory so a failure can still be reported as JSON.
func (h *Handlers) ExportSubscribers(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := h.subscribers.Export(r.Context(), userID(r), &buf)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	log.Printf("[api] exported %d subscribers", n)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="subscribers.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// importResponse is the preview returned to the client with the job id to
// commit.
type importResponse struct {
	ImportID string            `json:"importId"`
	Job      *importer.Job     `json:"job"`
	Preview  *importer.Preview `json:"preview,omitempty"`
}

// PreviewImport handles POST /api/subscribers/imports (multipart field "file")
func (h *Handlers) PreviewImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "expected a multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, domain.NewValidationError("file", "is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	job, preview, err := h.imports.Preview(r.Context(), userID(r), header.Filename, data)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.Created(w, importResponse{ImportID: job.ID, Job: job, Preview: preview})
}

// ImportStatus handles GET /api/subscribers/imports/{id}
func (h *Handlers) ImportStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.imports.Status(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, importResponse{ImportID: job.ID, Job: job})
}

// CommitImport handles POST /api/subscribers/imports/{id}/commit. The
// commit runs in the background and progress is read from ImportStatus;
// ?wait=true runs it in the request instead.
func (h *Handlers) CommitImport(w http.ResponseWriter, r *http.Request) {
	uid, id := userID(r), chi.URLParam(r, "id")

	if r.URL.Query().Get("wait") == "true" {
		job, err := h.imports.Commit(r.Context(), uid, id)
		if err != nil && job == nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.OK(w, importResponse{ImportID: job.ID, Job: job})
		return
	}

	run, err := h.imports.Begin(r.Context(), uid, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	job := *run.Job()

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := run.Run(ctx); err != nil {
			log.Printf("[api] import %s commit failed: %v", id, err)
		}
	}()
	respondJSON(w, http.StatusAccepted, importResponse{ImportID: job.ID, Job: &job})
}
