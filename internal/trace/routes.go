package trace

import "github.com/go-chi/chi/v5"

// MountRoutes attaches trace endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/entries/{id}/preview", h.Preview)
}
