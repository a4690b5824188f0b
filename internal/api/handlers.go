package api

import (
	"net/http"

	"github.com/letteros/letteros/internal/assembler"
	"github.com/letteros/letteros/internal/auth"
	"github.com/letteros/letteros/internal/importer"
	"github.com/letteros/letteros/internal/pkg/httputil"
	"github.com/letteros/letteros/internal/planning"
	"github.com/letteros/letteros/internal/service/launchcontent"
	"github.com/letteros/letteros/internal/service/newsletter"
	"github.com/letteros/letteros/internal/service/subscriber"
	"github.com/letteros/letteros/internal/wizard"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	auth        *auth.Manager
	health      *HealthChecker
	products    *launchcontent.Service
	newsletters *newsletter.Service
	subscribers *subscriber.Service
	imports     *importer.Service
	planner     *planning.Orchestrator
	generator   *assembler.Generator
	wizards     *wizard.Service
}

// NewHandlers creates a new Handlers instance. A nil health checker is
// replaced by one with no dependencies.
func NewHandlers(d Deps) *Handlers {
	if d.Health == nil {
		d.Health = NewHealthChecker(nil, nil, nil)
	}
	return &Handlers{
		auth:        d.Auth,
		health:      d.Health,
		products:    d.Products,
		newsletters: d.Newsletters,
		subscribers: d.Subscribers,
		imports:     d.Imports,
		planner:     d.Planner,
		generator:   d.Generator,
		wizards:     d.Wizards,
	}
}

// userID returns the id RequireAuth placed on the request.
func userID(r *http.Request) string {
	return auth.UserID(r.Context())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	httputil.JSON(w, status, data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	httputil.Error(w, status, message)
}
