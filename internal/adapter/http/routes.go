package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bussola-offshore/bussola/internal/middleware"
)

// MountRoutes registers the dashboard routes on the given chi router. The
// limiter guards the credential-bearing form posts and the refresh action.
func MountRoutes(r chi.Router, h *Handlers, limiter *middleware.RateLimiter) {
	r.Get("/health", h.HandleHealth)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFiles()))))

	r.Get("/", h.Index)
	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Handler)
		}
		r.Post("/signin", h.SignIn)
		r.Post("/signup", h.SignUp)
		r.Post("/refresh", h.Refresh)
	})
	r.Post("/signout", h.SignOut)

	r.Get("/api/v1/panel", h.Panel)
}
