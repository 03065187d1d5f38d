package trace

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/girder-erp/girder-erp/internal/ledger"
	"github.com/girder-erp/girder-erp/internal/platform/httpx"
)

// Handler exposes source-document previews over JSON.
type Handler struct {
	resolver *Resolver
	ledger   *ledger.Service
	logger   *slog.Logger
}

// NewHandler constructs the trace HTTP handler.
func NewHandler(logger *slog.Logger, resolver *Resolver, led *ledger.Service) *Handler {
	return &Handler{resolver: resolver, ledger: led, logger: logger}
}

// Preview resolves the originating document for one entry.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	entry, err := h.ledger.GetEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrEntryNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("trace preview", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, h.resolver.Resolve(r.Context(), entry))
}
