package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// Credentials are allowed for the session cookie, so origins must be explicit.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.health.HandleHealth)
	r.Get("/health/live", h.health.HandleLiveness)
	r.Get("/health/ready", h.health.HandleReadiness)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/session", h.auth.HandleSession)
		r.Post("/logout", h.auth.HandleLogout)
		r.Get("/user", h.auth.HandleUserInfo)
		r.Get("/login", h.auth.HandleLogin)
		r.Get("/callback", h.auth.HandleCallback)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(h.auth.RequireAuth)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetProduct)
				r.Put("/", h.UpdateProduct)
				r.Delete("/", h.DeleteProduct)
			})
		})

		r.Route("/newsletters", func(r chi.Router) {
			r.Get("/", h.ListNewsletters)
			r.Post("/", h.CreateNewsletter)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetNewsletter)
				r.Put("/", h.UpdateNewsletter)
				r.Delete("/", h.DeleteNewsletter)
				r.Put("/status", h.SetNewsletterStatus)
				r.Post("/schedule", h.ScheduleNewsletter)
				r.Post("/send", h.SendNewsletter)
			})
		})

		r.Route("/subscribers", func(r chi.Router) {
			r.Get("/", h.ListSubscribers)
			r.Post("/", h.CreateSubscriber)
			r.Get("/export", h.ExportSubscribers)
			r.Get("/tags", h.SubscriberTags)
			r.Route("/imports", func(r chi.Router) {
				r.Post("/", h.PreviewImport)
				r.Get("/{id}", h.ImportStatus)
				r.Post("/{id}/commit", h.CommitImport)
			})
			r.Put("/{id}", h.UpdateSubscriber)
			r.Delete("/{id}", h.DeleteSubscriber)
		})

		r.Route("/ai", func(r chi.Router) {
			r.Post("/suggest-count", h.SuggestCount)
			r.Post("/plan-chat", h.PlanChat)
			r.Post("/generate-variants", h.GenerateVariants)
			r.Post("/assemble", h.AssembleDraft)
			r.Post("/titles", h.SuggestTitles)
			r.Post("/product-wizard", h.ProductWizard)
		})

		r.Route("/wizards", func(r chi.Router) {
			r.Post("/", h.StartWizard)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetWizard)
				r.Delete("/", h.DeleteWizard)
				r.Post("/product", h.WizardSelectProduct)
				r.Post("/count", h.WizardSetCount)
				r.Post("/chat", h.WizardChat)
				r.Post("/revise", h.WizardRevise)
				r.Post("/confirm", h.WizardConfirm)
				r.Post("/generate", h.WizardGenerate)
				r.Post("/pick", h.WizardPick)
				r.Post("/regenerate", h.WizardRegenerate)
				r.Post("/assemble", h.WizardAssemble)
				r.Post("/edit", h.WizardEdit)
				r.Post("/back", h.WizardBack)
				r.Post("/save", h.WizardSave)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "route not found")
	})

	return r
}
