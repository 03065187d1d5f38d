package export

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/girder-erp/girder-erp/internal/platform/httpx"
	"github.com/girder-erp/girder-erp/internal/refdata"
)

// Handler exposes the export wizard over JSON. Wizard state is ephemeral and
// held in memory per wizard id; a restart discards selections with no side
// effects, matching pre-Execute cancel semantics.
type Handler struct {
	service *Service
	refdata *refdata.Service
	logger  *slog.Logger

	mu      sync.Mutex
	wizards map[uuid.UUID]*session
}

// session serializes access to one wizard. h.mu guards only the map; the
// session mutex covers wizard mutations and result reads so concurrent
// requests on the same id do not race.
type session struct {
	mu     sync.Mutex
	wizard *Wizard
	result *Result
}

// NewHandler constructs the export HTTP handler.
func NewHandler(logger *slog.Logger, service *Service, ref *refdata.Service) *Handler {
	return &Handler{
		service: service,
		refdata: ref,
		logger:  logger,
		wizards: make(map[uuid.UUID]*session),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	projects, err := h.refdata.GetProjects(r.Context())
	if err != nil {
		h.logger.Error("load projects", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	ids := make([]int64, 0, len(projects))
	for _, p := range projects {
		if p.Active {
			ids = append(ids, p.ID)
		}
	}
	id := uuid.New()
	sess := &session{wizard: NewWizard(ids)}
	state := h.state(id, sess)
	h.mu.Lock()
	h.wizards[id] = sess
	h.mu.Unlock()
	httpx.JSON(w, http.StatusCreated, state)
}

func (h *Handler) get(r *http.Request) (uuid.UUID, *session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.wizards[id]
	return id, sess, ok
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.get(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "wizard not found")
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	httpx.JSON(w, http.StatusOK, h.state(id, sess))
}

func (h *Handler) SetPeriod(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.get(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "wizard not found")
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	var req struct {
		PeriodID int64 `json:"period_id"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := sess.wizard.SetPeriod(req.PeriodID); err != nil {
		h.respondWizardError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.state(id, sess))
}

func (h *Handler) SetProjects(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.get(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "wizard not found")
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	var req struct {
		ProjectIDs []int64 `json:"project_ids"`
		All        bool    `json:"all"`
		Clear      bool    `json:"clear"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	var err error
	switch {
	case req.All:
		err = sess.wizard.SelectAllProjects()
	case req.Clear:
		err = sess.wizard.ClearProjects()
	default:
		err = sess.wizard.SetProjects(req.ProjectIDs)
	}
	if err != nil {
		h.respondWizardError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.state(id, sess))
}

func (h *Handler) SetDataTypes(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.get(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "wizard not found")
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	var req struct {
		Journals        bool `json:"journals"`
		APInvoices      bool `json:"ap_invoices"`
		ProjectBillings bool `json:"project_billings"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := sess.wizard.SetDataTypes(req.Journals, req.APInvoices, req.ProjectBillings); err != nil {
		h.respondWizardError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.state(id, sess))
}

// Next advances the wizard. Advancing past the data-type step triggers
// execution immediately.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.get(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "wizard not found")
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.wizard.Next(); err != nil {
		h.respondWizardError(w, err)
		return
	}
	if sess.wizard.Step() == StepExecute {
		sess.wizard.MarkStarted()
		result, err := h.service.Execute(r.Context(), sess.wizard.Selection())
		if err != nil {
			h.respondWizardError(w, err)
			return
		}
		sess.result = result
	}
	httpx.JSON(w, http.StatusOK, h.state(id, sess))
}

func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.get(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "wizard not found")
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.wizard.Back(); err != nil {
		h.respondWizardError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.state(id, sess))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := h.get(r)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "wizard not found")
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.wizard.Cancel(); err != nil {
		h.respondWizardError(w, err)
		return
	}
	h.mu.Lock()
	delete(h.wizards, id)
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondWizardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPeriodRequired), errors.Is(err, ErrProjectRequired),
		errors.Is(err, ErrDataTypeRequired), errors.Is(err, ErrAtFirstStep):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrRunStarted), errors.Is(err, ErrRunInProgress):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("export request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

type wizardState struct {
	ID        string `json:"id"`
	Step      int    `json:"step"`
	Selection struct {
		PeriodID   int64    `json:"period_id"`
		ProjectIDs []int64  `json:"project_ids"`
		DataTypes  []string `json:"data_types"`
	} `json:"selection"`
	Started bool    `json:"started"`
	Result  *Result `json:"result,omitempty"`
}

func (h *Handler) state(id uuid.UUID, sess *session) wizardState {
	sel := sess.wizard.Selection()
	state := wizardState{
		ID:      id.String(),
		Step:    int(sess.wizard.Step()),
		Started: sess.wizard.Started(),
		Result:  sess.result,
	}
	state.Selection.PeriodID = sel.PeriodID
	state.Selection.ProjectIDs = sel.ProjectIDs
	for _, dt := range sel.SelectedTypes() {
		state.Selection.DataTypes = append(state.Selection.DataTypes, string(dt))
	}
	return state
}
