package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/girder-erp/girder-erp/internal/platform/httpx"
	"github.com/girder-erp/girder-erp/internal/refdata"
)

// Handler exposes the ledger store over JSON.
type Handler struct {
	service  *Service
	refdata  *refdata.Service
	logger   *slog.Logger
	validate *validator.Validate
}

// NewHandler constructs the ledger HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, ref *refdata.Service) *Handler {
	return &Handler{
		service:  service,
		refdata:  ref,
		logger:   logger,
		validate: validator.New(),
	}
}

type lineRequest struct {
	AccountID   int64  `json:"account_id" validate:"required"`
	Description string `json:"description"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
}

type createEntryRequest struct {
	PeriodID      int64         `json:"period_id" validate:"required"`
	ProjectID     *int64        `json:"project_id"`
	Date          string        `json:"date" validate:"required"`
	Description   string        `json:"description"`
	ReferenceType string        `json:"reference_type"`
	ReferenceID   string        `json:"reference_id"`
	Lines         []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func (req lineRequest) toInput() (LineInput, error) {
	debit, err := parseAmount(req.Debit)
	if err != nil {
		return LineInput{}, fmt.Errorf("invalid debit amount: %w", err)
	}
	credit, err := parseAmount(req.Credit)
	if err != nil {
		return LineInput{}, fmt.Errorf("invalid credit amount: %w", err)
	}
	return LineInput{
		AccountID:   req.AccountID,
		Description: req.Description,
		Debit:       debit,
		Credit:      credit,
	}, nil
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	in := CreateEntryInput{
		PeriodID:      req.PeriodID,
		ProjectID:     req.ProjectID,
		Date:          date,
		Description:   req.Description,
		ReferenceType: ReferenceType(req.ReferenceType),
	}
	if req.ReferenceID != "" {
		refID, err := uuid.Parse(req.ReferenceID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "reference_id must be a UUID")
			return
		}
		in.ReferenceID = refID
	}
	for _, line := range req.Lines {
		input, err := line.toInput()
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		in.Lines = append(in.Lines, input)
	}
	entry, err := h.service.CreateEntry(r.Context(), in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entries, err := h.service.ListEntries(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toEntryResponse(entry))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	var req lineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := req.toInput()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	line, err := h.service.AddLineItem(r.Context(), id, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toLineResponse(line))
}

type linePatchRequest struct {
	AccountID   *int64  `json:"account_id"`
	Description *string `json:"description"`
	Debit       *string `json:"debit"`
	Credit      *string `json:"credit"`
}

func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "line id must be numeric")
		return
	}
	var req linePatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	patch := LinePatch{AccountID: req.AccountID, Description: req.Description}
	if req.Debit != nil {
		amount, err := decimal.NewFromString(*req.Debit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid debit amount")
			return
		}
		patch.Debit = &amount
	}
	if req.Credit != nil {
		amount, err := decimal.NewFromString(*req.Credit)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid credit amount")
			return
		}
		patch.Credit = &amount
	}
	line, err := h.service.UpdateLineItem(r.Context(), id, lineID, patch)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toLineResponse(line))
}

func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "line id must be numeric")
		return
	}
	if err := h.service.RemoveLineItem(r.Context(), id, lineID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type headerPatchRequest struct {
	ProjectID   *int64  `json:"project_id"`
	Date        *string `json:"date"`
	Description *string `json:"description"`
}

func (h *Handler) UpdateHeader(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	var req headerPatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	patch := HeaderPatch{ProjectID: req.ProjectID, Description: req.Description}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		patch.Date = &date
	}
	entry, err := h.service.UpdateHeader(r.Context(), id, patch)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteAllInPeriod(w http.ResponseWriter, r *http.Request) {
	periodID, err := strconv.ParseInt(chi.URLParam(r, "periodID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "period id must be numeric")
		return
	}
	result, err := h.service.DeleteAllInPeriod(r.Context(), periodID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{
		"deleted_entries": result.DeletedEntries,
		"deleted_lines":   result.DeletedLines,
	})
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	var req struct {
		Date string `json:"date"`
		Memo string `json:"memo"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	var date time.Time
	if req.Date != "" {
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
	}
	entry, err := h.service.ReverseEntry(r.Context(), id, date, req.Memo)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

// ExportCSV streams the filtered entry set as CSV.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	mode := CSVMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = CSVSummary
	}
	if mode != CSVSummary && mode != CSVDetailed {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "mode must be summary or detailed")
		return
	}
	entries, err := h.service.ListEntries(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	snapshot, err := h.refdata.Snapshot(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	data, err := NewCSVExporter(snapshot).Export(entries, mode)
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="journal_entries_%s.csv"`, mode))
	_, _ = w.Write(data)
}

func filterFromQuery(r *http.Request) (EntryFilter, error) {
	var filter EntryFilter
	q := r.URL.Query()
	if raw := q.Get("period_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return EntryFilter{}, errors.New("period_id must be numeric")
		}
		filter.PeriodID = id
	}
	if raw := q.Get("project_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return EntryFilter{}, errors.New("project_id must be numeric")
		}
		filter.ProjectID = &id
	}
	if raw := q.Get("reference_type"); raw != "" {
		ref := ReferenceType(raw)
		if !ref.Valid() {
			return EntryFilter{}, fmt.Errorf("unknown reference_type %q", raw)
		}
		filter.ReferenceType = ref
	}
	return filter, nil
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var blocked *ExportBlockedError
	switch {
	case errors.As(err, &blocked):
		httpx.JSON(w, http.StatusConflict, map[string]any{
			"title":            "Period Has Exported Entries",
			"status":           http.StatusConflict,
			"blocking_entries": blocked.Blocking,
		})
	case errors.Is(err, ErrEntryLocked):
		httpx.Problem(w, http.StatusForbidden, "Entry Locked", err.Error())
	case errors.Is(err, ErrEntryNotFound), errors.Is(err, ErrLineNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrTooFewLines),
		errors.Is(err, ErrInvalidPeriod), errors.Is(err, ErrInvalidAccount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrSourceAlreadyLinked):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

type entryResponse struct {
	ID                   string         `json:"id"`
	Number               int64          `json:"number"`
	PeriodID             int64          `json:"period_id"`
	ProjectID            *int64         `json:"project_id,omitempty"`
	Date                 string         `json:"date"`
	Description          string         `json:"description"`
	ReferenceType        string         `json:"reference_type,omitempty"`
	ReferenceID          string         `json:"reference_id,omitempty"`
	ExportedToAccounting bool           `json:"exported_to_accounting"`
	Lines                []lineResponse `json:"lines"`
}

type lineResponse struct {
	ID          int64  `json:"id"`
	LineNumber  int    `json:"line_number"`
	AccountID   int64  `json:"account_id"`
	Description string `json:"description"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
}

func toEntryResponse(entry JournalEntry) entryResponse {
	resp := entryResponse{
		ID:                   entry.ID.String(),
		Number:               entry.Number,
		PeriodID:             entry.PeriodID,
		ProjectID:            entry.ProjectID,
		Date:                 entry.Date.Format("2006-01-02"),
		Description:          entry.Description,
		ReferenceType:        string(entry.ReferenceType),
		ExportedToAccounting: entry.ExportedToAccounting,
		Lines:                make([]lineResponse, 0, len(entry.Lines)),
	}
	if entry.ReferenceID != uuid.Nil {
		resp.ReferenceID = entry.ReferenceID.String()
	}
	for _, line := range entry.Lines {
		resp.Lines = append(resp.Lines, toLineResponse(line))
	}
	return resp
}

func toLineResponse(line JournalLineItem) lineResponse {
	return lineResponse{
		ID:          line.ID,
		LineNumber:  line.LineNumber,
		AccountID:   line.AccountID,
		Description: line.Description,
		Debit:       line.Debit.StringFixed(2),
		Credit:      line.Credit.StringFixed(2),
	}
}
