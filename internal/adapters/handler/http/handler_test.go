package http_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	handler "github.com/vncsmyrnk/election/internal/adapters/handler/http"
	"github.com/vncsmyrnk/election/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/services"
)

// runVotingFlow drives one election from creation to results through the API.
func runVotingFlow(t *testing.T, c *client) {
	t.Helper()
	admin := c.asAdmin()

	// 1. Admin creates and opens an election
	e, cands := c.openElection("Team lead", time.Now().Add(time.Hour), "Alice", "Bob")
	require.Len(t, cands, 2)
	assert.Equal(t, 1, cands[0].Position)
	assert.Equal(t, domain.Palette[1], cands[1].ColorCode)

	// 2. Voter joins by code, typed in lower case
	var joined electionJSON
	status := c.do(http.MethodPost, "/api/elections/join", map[string]string{"code": strings.ToLower(e.Code)}, &joined)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, e.ID, joined.ID)
	assert.Equal(t, "open", joined.Status)

	// 3. Voter registers and sees the ballot
	voterID, status := c.register(e.ID, "Carol", 34, "emp-9")
	require.Equal(t, http.StatusCreated, status)

	var ballot struct {
		Candidates []candidateJSON `json:"candidates"`
	}
	status = c.do(http.MethodGet, "/api/elections/"+e.ID.String()+"/candidates", nil, &ballot)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, ballot.Candidates, 2)

	// 4. Vote once, then try again
	assert.Equal(t, http.StatusCreated, c.vote(e.ID, voterID, cands[0].ID))

	var conflict errorJSON
	status = c.do(http.MethodPost, "/api/elections/"+e.ID.String()+"/vote", map[string]uuid.UUID{
		"voterId":     voterID,
		"candidateId": cands[1].ID,
	}, &conflict)
	assert.Equal(t, http.StatusConflict, status)
	assert.NotEmpty(t, conflict.Error)

	// 5. Same identifier cannot register twice
	_, status = c.register(e.ID, "Carol again", 34, "emp-9")
	assert.Equal(t, http.StatusConflict, status)

	// 6. Results show the leader
	var res resultsJSON
	status = c.do(http.MethodGet, "/api/elections/"+e.ID.String()+"/results", nil, &res)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), res.TotalVotes)
	assert.False(t, res.IsTie)
	require.NotNil(t, res.Leader)
	assert.Equal(t, "Alice", res.Leader.Name)
	assert.Equal(t, "100.0", res.Leader.Percentage)

	// 7. Stuffed ballots trip the fraud check
	status = admin.do(http.MethodPost, "/api/admin/elections/"+e.ID.String()+"/fake-votes", map[string]any{
		"candidateId": cands[1].ID,
		"count":       2,
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var report struct {
		RealVoterCount int64           `json:"realVoterCount"`
		Candidates     []candidateJSON `json:"candidates"`
	}
	status = admin.do(http.MethodGet, "/api/admin/elections/"+e.ID.String()+"/fraud", nil, &report)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), report.RealVoterCount)
	require.Len(t, report.Candidates, 2)
	assert.Equal(t, "Bob", report.Candidates[0].Name)
	assert.True(t, report.Candidates[0].FraudSuspected)
	assert.False(t, report.Candidates[1].FraudSuspected)

	// 8. Admin closes and deletes the election
	status = admin.do(http.MethodPatch, "/api/admin/elections/"+e.ID.String()+"/status", map[string]string{"status": "closed"}, nil)
	require.Equal(t, http.StatusOK, status)
	status = c.do(http.MethodPost, "/api/elections/join", map[string]string{"code": e.Code}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status = admin.do(http.MethodDelete, "/api/admin/elections/"+e.ID.String(), nil, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status = admin.do(http.MethodGet, "/api/admin/elections/"+e.ID.String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestVotingFlow(t *testing.T) {
	srv := newServer(t, nil, nil)
	runVotingFlow(t, newClient(t, srv))
}

func TestStatus(t *testing.T) {
	c := newClient(t, newServer(t, nil, nil))

	var body map[string]string
	status := c.do(http.MethodGet, "/api/status", nil, &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestAdminPassword(t *testing.T) {
	c := newClient(t, newServer(t, nil, nil))

	var body errorJSON
	status := c.do(http.MethodGet, "/api/admin/elections", nil, &body)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "wrong password", body.Error)

	status = c.do(http.MethodPost, "/api/admin/login", map[string]string{"password": "guess"}, &body)
	assert.Equal(t, http.StatusUnauthorized, status)

	var ok map[string]bool
	status = c.do(http.MethodPost, "/api/admin/login", map[string]string{"password": adminPassword}, &ok)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, ok["success"])

	var list struct {
		Elections []electionJSON `json:"elections"`
	}
	status = c.asAdmin().do(http.MethodGet, "/api/admin/elections", nil, &list)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, list.Elections)
}

func TestErrorStatuses(t *testing.T) {
	c := newClient(t, newServer(t, nil, nil))
	admin := c.asAdmin()
	e, cands := c.openElection("Errors", time.Now().Add(time.Hour), "A")

	var draft electionJSON
	require.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/admin/elections", map[string]string{"title": "Draft"}, &draft))
	var draftCand candidateJSON
	require.Equal(t, http.StatusCreated, admin.do(http.MethodPost, "/api/admin/elections/"+draft.ID.String()+"/candidates", map[string]string{"name": "D"}, &draftCand))
	draftVoter, status := c.register(draft.ID, "Dee", 40, "")
	require.Equal(t, http.StatusCreated, status)

	eid := e.ID.String()
	tests := []struct {
		name   string
		client *client
		method string
		path   string
		body   any
		want   int
	}{
		{"malformed id", c, http.MethodGet, "/api/elections/not-a-uuid/results", nil, http.StatusBadRequest},
		{"malformed body", c, http.MethodPost, "/api/elections/join", "{", http.StatusBadRequest},
		{"unknown code", c, http.MethodPost, "/api/elections/join", map[string]string{"code": "ZZZZ9999"}, http.StatusNotFound},
		{"draft join", c, http.MethodPost, "/api/elections/join", map[string]string{"code": draft.Code}, http.StatusForbidden},
		{"unknown election", c, http.MethodGet, "/api/elections/" + uuid.NewString() + "/results", nil, http.StatusNotFound},
		{"underage", c, http.MethodPost, "/api/elections/" + eid + "/register", map[string]any{"name": "Kid", "age": 12}, http.StatusBadRequest},
		{"missing name", c, http.MethodPost, "/api/elections/" + eid + "/register", map[string]any{"age": 30}, http.StatusBadRequest},
		{"missing ids", c, http.MethodPost, "/api/elections/" + eid + "/vote", map[string]string{}, http.StatusBadRequest},
		{"unknown voter", c, http.MethodPost, "/api/elections/" + eid + "/vote", map[string]uuid.UUID{"voterId": uuid.New(), "candidateId": cands[0].ID}, http.StatusNotFound},
		{"draft vote", c, http.MethodPost, "/api/elections/" + draft.ID.String() + "/vote", map[string]uuid.UUID{"voterId": draftVoter, "candidateId": draftCand.ID}, http.StatusForbidden},
		{"missing title", admin, http.MethodPost, "/api/admin/elections", map[string]string{"title": " "}, http.StatusBadRequest},
		{"bad schedule", admin, http.MethodPost, "/api/admin/elections", map[string]any{"title": "x", "startDate": time.Now(), "endDate": time.Now().Add(-time.Hour)}, http.StatusBadRequest},
		{"bad status", admin, http.MethodPatch, "/api/admin/elections/" + eid + "/status", map[string]string{"status": "paused"}, http.StatusBadRequest},
		{"fake vote count", admin, http.MethodPost, "/api/admin/elections/" + eid + "/fake-votes", map[string]any{"candidateId": cands[0].ID, "count": 0}, http.StatusBadRequest},
		{"too many fake votes", admin, http.MethodPost, "/api/admin/elections/" + eid + "/fake-votes", map[string]any{"candidateId": cands[0].ID, "count": 101}, http.StatusBadRequest},
		{"foreign candidate", admin, http.MethodPost, "/api/admin/elections/" + eid + "/fake-votes", map[string]any{"candidateId": draftCand.ID, "count": 1}, http.StatusBadRequest},
		{"unknown candidate", admin, http.MethodDelete, "/api/admin/candidates/" + uuid.NewString(), nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorJSON
			status := tt.client.do(tt.method, tt.path, tt.body, &body)
			assert.Equal(t, tt.want, status)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestResultsAutoCloseAndRunoff(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
	c := newClient(t, newServer(t, nil, clock))
	admin := c.asAdmin()

	// 1. Two candidates tie
	e, cands := c.openElection("Tie", clock.Now().Add(time.Hour), "A", "B")
	for i, cand := range cands {
		voterID, status := c.register(e.ID, "Voter", 30+i, "")
		require.Equal(t, http.StatusCreated, status)
		require.Equal(t, http.StatusCreated, c.vote(e.ID, voterID, cand.ID))
	}

	// 2. Voting ends; the first results read closes it and spawns the runoff
	clock.Advance(2 * time.Hour)
	var res resultsJSON
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/elections/"+e.ID.String()+"/results", nil, &res))
	assert.Equal(t, "closed", res.Election.Status)
	assert.True(t, res.IsTie)
	assert.Len(t, res.TiedCandidates, 2)
	require.NotNil(t, res.Runoff)
	assert.Equal(t, "[Runoff] Tie", res.Runoff.Title)
	assert.Equal(t, 2, res.Runoff.Round)
	require.NotNil(t, res.Runoff.ParentID)
	assert.Equal(t, e.ID, *res.Runoff.ParentID)

	// 3. The runoff is open for voting
	var joined electionJSON
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/elections/join", map[string]string{"code": res.Runoff.Code}, &joined))
	assert.Equal(t, "open", joined.Status)

	// 4. Further reads and ticks do not spawn more
	var again resultsJSON
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/elections/"+e.ID.String()+"/results", nil, &again))
	assert.Nil(t, again.Runoff)

	var tick struct {
		Closed bool          `json:"closed"`
		Runoff *electionJSON `json:"runoff"`
	}
	require.Equal(t, http.StatusOK, admin.do(http.MethodPost, "/api/admin/elections/"+e.ID.String()+"/tick", nil, &tick))
	assert.False(t, tick.Closed)
	assert.Nil(t, tick.Runoff)

	var list struct {
		Elections []electionJSON `json:"elections"`
	}
	require.Equal(t, http.StatusOK, admin.do(http.MethodGet, "/api/admin/elections", nil, &list))
	assert.Len(t, list.Elections, 2)
}

func TestSweepEndpoint(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
	c := newClient(t, newServer(t, nil, clock))
	c.openElection("One", clock.Now().Add(time.Hour), "A")
	c.openElection("Two", clock.Now().Add(3*time.Hour), "A")

	clock.Advance(2 * time.Hour)
	var body map[string]int
	require.Equal(t, http.StatusOK, c.asAdmin().do(http.MethodPost, "/api/admin/sweep", nil, &body))
	assert.Equal(t, 1, body["closed"])
}

func TestAdminElectionEdits(t *testing.T) {
	c := newClient(t, newServer(t, nil, nil))
	admin := c.asAdmin()
	e, cands := c.openElection("Edits", time.Now().Add(time.Hour), "A", "B")
	path := "/api/admin/elections/" + e.ID.String()

	var updated electionJSON
	require.Equal(t, http.StatusOK, admin.do(http.MethodPatch, path, map[string]string{"title": "Edited"}, &updated))
	assert.Equal(t, "Edited", updated.Title)

	var regen map[string]string
	require.Equal(t, http.StatusOK, admin.do(http.MethodPost, path+"/regenerate-code", nil, &regen))
	assert.NotEqual(t, e.Code, regen["code"])
	assert.True(t, domain.ValidCode(regen["code"]))

	require.Equal(t, http.StatusNoContent, admin.do(http.MethodDelete, "/api/admin/candidates/"+cands[0].ID.String(), nil, nil))
	var ballot struct {
		Candidates []candidateJSON `json:"candidates"`
	}
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/elections/"+e.ID.String()+"/candidates", nil, &ballot))
	require.Len(t, ballot.Candidates, 1)
	assert.Equal(t, "B", ballot.Candidates[0].Name)
}

type brokenResults struct{}

func (brokenResults) GetResults(context.Context, uuid.UUID) (*domain.Results, error) {
	return nil, errors.New("dial tcp 10.0.0.7:5432: connection refused")
}

func TestInternalErrorsAreHidden(t *testing.T) {
	svc := services.New(memory.New(), services.Options{})
	voting := handler.NewVotingHandler(svc.Elections, svc.Voters, svc.Candidates, svc.Votes, brokenResults{})
	admin := handler.NewAdminHandler(adminPassword, svc.Elections, svc.Candidates, svc.Votes, svc.Fraud, svc.Lifecycle, svc.Sweep)
	srv := httptest.NewServer(handler.NewHandler(voting, admin, handler.RouterOptions{}))
	t.Cleanup(srv.Close)

	var body errorJSON
	status := newClient(t, srv).do(http.MethodGet, "/api/elections/"+uuid.NewString()+"/results", nil, &body)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, domain.ErrInternal.Error(), body.Error)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := services.New(memory.New(), services.Options{Metrics: services.NewMetrics(reg)})
	srv := httptest.NewServer(newRouter(svc, handler.RouterOptions{
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "election_votes_recorded_total")
}

func TestMetricsDisabled(t *testing.T) {
	srv := newServer(t, nil, nil)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
