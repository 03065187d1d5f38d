// Package export drives the period, projects, data-types, execute workflow
// that pushes ledger data to an external accounting system.
package export

import "errors"

// Step identifies the wizard position.
type Step int

const (
	StepSelectPeriod Step = iota + 1
	StepSelectProjects
	StepSelectDataTypes
	StepExecute
)

// DataType enumerates exportable data categories.
type DataType string

const (
	DataJournals        DataType = "journals"
	DataAPInvoices      DataType = "ap_invoices"
	DataProjectBillings DataType = "project_billings"
)

var (
	// ErrPeriodRequired gates leaving step 1.
	ErrPeriodRequired = errors.New("export: accounting period required")
	// ErrProjectRequired gates leaving step 2.
	ErrProjectRequired = errors.New("export: at least one project required")
	// ErrDataTypeRequired gates leaving step 3.
	ErrDataTypeRequired = errors.New("export: at least one data type required")
	// ErrRunStarted rejects navigation once execution began.
	ErrRunStarted = errors.New("export: run already started")
	// ErrAtFirstStep rejects Back from step 1.
	ErrAtFirstStep = errors.New("export: already at first step")
)

// Selection is the ephemeral wizard state handed to Execute. Never persisted.
type Selection struct {
	PeriodID   int64
	ProjectIDs []int64
	DataTypes  map[DataType]bool
}

// SelectedTypes returns the chosen data types in push order: journals first,
// so journal numbers referenced by invoice narratives exist before invoices.
func (s Selection) SelectedTypes() []DataType {
	out := make([]DataType, 0, 3)
	for _, dt := range []DataType{DataJournals, DataAPInvoices, DataProjectBillings} {
		if s.DataTypes[dt] {
			out = append(out, dt)
		}
	}
	return out
}

// Wizard is the explicit finite-state object owning the export selections.
// Step transitions validate their gate and are testable without any UI.
type Wizard struct {
	step        Step
	selection   Selection
	allProjects []int64
	started     bool
}

// NewWizard starts at step 1 with every known project pre-selected.
func NewWizard(allProjects []int64) *Wizard {
	projects := make([]int64, len(allProjects))
	copy(projects, allProjects)
	return &Wizard{
		step: StepSelectPeriod,
		selection: Selection{
			ProjectIDs: projects,
			DataTypes:  make(map[DataType]bool),
		},
		allProjects: allProjects,
	}
}

// Step reports the current wizard step.
func (w *Wizard) Step() Step {
	return w.step
}

// Selection returns a copy of the current selections.
func (w *Wizard) Selection() Selection {
	sel := Selection{
		PeriodID:   w.selection.PeriodID,
		ProjectIDs: make([]int64, len(w.selection.ProjectIDs)),
		DataTypes:  make(map[DataType]bool, len(w.selection.DataTypes)),
	}
	copy(sel.ProjectIDs, w.selection.ProjectIDs)
	for k, v := range w.selection.DataTypes {
		sel.DataTypes[k] = v
	}
	return sel
}

// Started reports whether Execute has begun.
func (w *Wizard) Started() bool {
	return w.started
}

// SetPeriod records the accounting-period choice.
func (w *Wizard) SetPeriod(periodID int64) error {
	if w.started {
		return ErrRunStarted
	}
	w.selection.PeriodID = periodID
	return nil
}

// SetProjects replaces the project selection, preserving the given order.
func (w *Wizard) SetProjects(projectIDs []int64) error {
	if w.started {
		return ErrRunStarted
	}
	projects := make([]int64, len(projectIDs))
	copy(projects, projectIDs)
	w.selection.ProjectIDs = projects
	return nil
}

// SelectAllProjects restores the full project set.
func (w *Wizard) SelectAllProjects() error {
	return w.SetProjects(w.allProjects)
}

// ClearProjects empties the project selection.
func (w *Wizard) ClearProjects() error {
	return w.SetProjects(nil)
}

// SetDataTypes records which categories to export.
func (w *Wizard) SetDataTypes(journals, apInvoices, projectBillings bool) error {
	if w.started {
		return ErrRunStarted
	}
	w.selection.DataTypes = map[DataType]bool{
		DataJournals:        journals,
		DataAPInvoices:      apInvoices,
		DataProjectBillings: projectBillings,
	}
	return nil
}

// Next validates the current step's gate and advances. Advancing past step 3
// moves to StepExecute; the caller is expected to run Execute immediately.
func (w *Wizard) Next() error {
	if w.started {
		return ErrRunStarted
	}
	switch w.step {
	case StepSelectPeriod:
		if w.selection.PeriodID == 0 {
			return ErrPeriodRequired
		}
	case StepSelectProjects:
		if len(w.selection.ProjectIDs) == 0 {
			return ErrProjectRequired
		}
	case StepSelectDataTypes:
		if len(w.selection.SelectedTypes()) == 0 {
			return ErrDataTypeRequired
		}
	case StepExecute:
		return ErrRunStarted
	}
	w.step++
	return nil
}

// Back moves one step towards the start. Selections are preserved.
func (w *Wizard) Back() error {
	if w.started {
		return ErrRunStarted
	}
	if w.step == StepSelectPeriod {
		return ErrAtFirstStep
	}
	w.step--
	return nil
}

// Cancel discards all selections. It is rejected once the run started; an
// in-flight run completes to exhaustion, recording per-item failures.
func (w *Wizard) Cancel() error {
	if w.started {
		return ErrRunStarted
	}
	w.step = StepSelectPeriod
	w.selection = Selection{
		ProjectIDs: append([]int64(nil), w.allProjects...),
		DataTypes:  make(map[DataType]bool),
	}
	return nil
}

// MarkStarted flips the wizard into its terminal executing state.
func (w *Wizard) MarkStarted() {
	w.started = true
}
