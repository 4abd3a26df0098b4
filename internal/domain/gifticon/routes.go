package gifticon

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the gifticon router.
func (h *Handler) Routes(authMiddleware, adminMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Public catalog
	r.Get("/", h.ListCatalog)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/{id}/redeem", h.Redeem)
		r.Get("/redemptions", h.ListMyRedemptions)
	})

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, adminMiddleware)
		r.Post("/", h.Create)
		r.Post("/redemptions/{id}/approve", h.Approve)
		r.Post("/redemptions/{id}/reject", h.Reject)
	})

	return r
}
