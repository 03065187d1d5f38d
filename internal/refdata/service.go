package refdata

import "context"

// Service exposes master-data reads with an optional per-run snapshot.
type Service struct {
	repo Repository
}

// NewService constructs a refdata service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetProjects(ctx context.Context) ([]Project, error) {
	return s.repo.GetProjects(ctx)
}

func (s *Service) GetAccountingPeriods(ctx context.Context) ([]Period, error) {
	return s.repo.GetAccountingPeriods(ctx)
}

func (s *Service) GetChartOfAccounts(ctx context.Context) ([]Account, error) {
	return s.repo.GetChartOfAccounts(ctx)
}

func (s *Service) GetPeriod(ctx context.Context, id int64) (Period, error) {
	return s.repo.GetPeriod(ctx, id)
}

// Snapshot captures reference data once so an export run can reuse it without
// further reads. Master data is not mutated by this core, so a run-scoped
// snapshot carries no staleness risk.
type Snapshot struct {
	Projects map[int64]Project
	Periods  map[int64]Period
	Accounts map[int64]Account
}

// Snapshot loads all reference data in one pass.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	projects, err := s.repo.GetProjects(ctx)
	if err != nil {
		return nil, err
	}
	periods, err := s.repo.GetAccountingPeriods(ctx)
	if err != nil {
		return nil, err
	}
	accounts, err := s.repo.GetChartOfAccounts(ctx)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Projects: make(map[int64]Project, len(projects)),
		Periods:  make(map[int64]Period, len(periods)),
		Accounts: make(map[int64]Account, len(accounts)),
	}
	for _, p := range projects {
		snap.Projects[p.ID] = p
	}
	for _, p := range periods {
		snap.Periods[p.ID] = p
	}
	for _, a := range accounts {
		snap.Accounts[a.ID] = a
	}
	return snap, nil
}
