package ledger

import "github.com/go-chi/chi/v5"

// MountRoutes attaches ledger endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/entries", h.List)
	r.Post("/entries", h.Create)
	r.Get("/entries/export.csv", h.ExportCSV)
	r.Get("/entries/{id}", h.Get)
	r.Patch("/entries/{id}", h.UpdateHeader)
	r.Delete("/entries/{id}", h.Delete)
	r.Post("/entries/{id}/reverse", h.Reverse)
	r.Post("/entries/{id}/lines", h.AddLine)
	r.Patch("/entries/{id}/lines/{lineID}", h.UpdateLine)
	r.Delete("/entries/{id}/lines/{lineID}", h.RemoveLine)
	r.Delete("/periods/{periodID}/entries", h.DeleteAllInPeriod)
}
