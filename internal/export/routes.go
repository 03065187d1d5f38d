package export

import "github.com/go-chi/chi/v5"

// MountRoutes attaches export wizard endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/wizards", h.Create)
	r.Get("/wizards/{id}", h.Get)
	r.Put("/wizards/{id}/period", h.SetPeriod)
	r.Put("/wizards/{id}/projects", h.SetProjects)
	r.Put("/wizards/{id}/datatypes", h.SetDataTypes)
	r.Post("/wizards/{id}/next", h.Next)
	r.Post("/wizards/{id}/back", h.Back)
	r.Post("/wizards/{id}/cancel", h.Cancel)
}
