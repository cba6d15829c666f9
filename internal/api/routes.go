package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes builds the chi router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Share-Expires-At", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.handleHealth)

	// Share URL target; the token is the only credential
	r.Get("/kiosk", h.handleKioskScan)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/users/register", h.handleRegisterUser)
		r.Post("/users/login", h.handleLoginUser)

		r.Get("/kiosk/templates", h.handleListTemplates)
		r.Post("/kiosk/fill", h.handleKioskFill)
		r.Post("/kiosk/export", h.handleKioskExport)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/users/me", h.handleMe)

			r.Route("/profiles", func(r chi.Router) {
				r.Get("/", h.handleListProfiles)
				r.Post("/", h.handleCreateProfile)
				r.Get("/{id}", h.handleGetProfile)
				r.Put("/{id}", h.handleUpdateProfile)
				r.Delete("/{id}", h.handleDeleteProfile)
				r.Post("/{id}/share", h.handleShareProfile)
				r.Get("/{id}/share/qr", h.handleShareQR)
				r.Get("/{id}/shares", h.handleShareHistory)
			})

			r.Route("/forms", func(r chi.Router) {
				r.Get("/", h.handleListForms)
				r.Post("/", h.handleCreateForm)
				r.Post("/generate", h.handleGenerateForm)
				r.Get("/{id}", h.handleGetForm)
				r.Delete("/{id}", h.handleDeleteForm)
				r.Post("/{id}/autofill", h.handleAutoFillForm)
			})

			r.Post("/documents/upload-url", h.handleDocumentUploadURL)
			r.Get("/documents/download-url", h.handleDocumentDownloadURL)
			r.Post("/documents/extract", h.handleDocumentExtract)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", h.handleAdminLogin)
		r.Post("/logout", h.handleAdminLogout)

		r.Group(func(r chi.Router) {
			r.Use(h.AdminMiddleware)

			r.Get("/users", h.handleAdminUsers)
			r.Get("/profiles", h.handleAdminProfiles)
			r.Post("/users/{id}/ban", h.handleAdminBan(true))
			r.Post("/users/{id}/unban", h.handleAdminBan(false))
			r.Get("/stats", h.handleAdminStats)
		})
	})

	return r
}
