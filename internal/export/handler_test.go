package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/girder-erp/girder-erp/internal/refdata"
)

type stubRefRepo struct{}

func (stubRefRepo) GetProjects(context.Context) ([]refdata.Project, error) {
	return []refdata.Project{
		{ID: 1, Number: "P-100", Name: "Harbor Bridge", Active: true},
		{ID: 2, Number: "P-200", Name: "Depot Yard", Active: true},
	}, nil
}

func (stubRefRepo) GetAccountingPeriods(context.Context) ([]refdata.Period, error) {
	return nil, nil
}

func (stubRefRepo) GetChartOfAccounts(context.Context) ([]refdata.Account, error) {
	return nil, nil
}

func (stubRefRepo) GetPeriod(_ context.Context, id int64) (refdata.Period, error) {
	return refdata.Period{ID: id}, nil
}

func newWizardServer(t *testing.T) *httptest.Server {
	t.Helper()
	h := NewHandler(slog.Default(), nil, refdata.NewService(stubRefRepo{}))
	r := chi.NewRouter()
	h.MountRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func createWizard(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/wizards", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var state struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	return state.ID
}

func TestHandlerConcurrentAccessSameWizard(t *testing.T) {
	srv := newWizardServer(t)
	id := createWizard(t, srv)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if n%2 == 0 {
					body := bytes.NewBufferString(fmt.Sprintf(`{"period_id": %d}`, j+1))
					req, err := http.NewRequest(http.MethodPut, srv.URL+"/wizards/"+id+"/period", body)
					require.NoError(t, err)
					resp, err := http.DefaultClient.Do(req)
					require.NoError(t, err)
					resp.Body.Close()
				} else {
					resp, err := http.Get(srv.URL + "/wizards/" + id)
					require.NoError(t, err)
					resp.Body.Close()
				}
			}
		}(i)
	}
	wg.Wait()

	resp, err := http.Get(srv.URL + "/wizards/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state struct {
		Selection struct {
			PeriodID int64 `json:"period_id"`
		} `json:"selection"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	require.NotZero(t, state.Selection.PeriodID)
}

func TestHandlerUnknownWizard(t *testing.T) {
	srv := newWizardServer(t)

	resp, err := http.Get(srv.URL + "/wizards/00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
