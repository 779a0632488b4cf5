package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	handler "github.com/vncsmyrnk/election/internal/adapters/handler/http"
	"github.com/vncsmyrnk/election/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/election/internal/core/ports"
	"github.com/vncsmyrnk/election/internal/core/services"
)

const adminPassword = "s3cret"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newRouter(svc *services.Services, opts handler.RouterOptions) http.Handler {
	voting := handler.NewVotingHandler(svc.Elections, svc.Voters, svc.Candidates, svc.Votes, svc.Results)
	admin := handler.NewAdminHandler(adminPassword, svc.Elections, svc.Candidates, svc.Votes, svc.Fraud, svc.Lifecycle, svc.Sweep)
	return handler.NewHandler(voting, admin, opts)
}

// newServer serves the full API over store. A nil store gets a fresh
// in-memory one.
func newServer(t *testing.T, store ports.ElectionStore, clock ports.Clock) *httptest.Server {
	t.Helper()
	if store == nil {
		store = memory.New()
	}
	svc := services.New(store, services.Options{
		Clock:  clock,
		Logger: slog.New(slog.DiscardHandler),
	})
	srv := httptest.NewServer(newRouter(svc, handler.RouterOptions{}))
	t.Cleanup(srv.Close)
	return srv
}

type client struct {
	t     *testing.T
	base  string
	admin bool
}

func newClient(t *testing.T, srv *httptest.Server) *client {
	return &client{t: t, base: srv.URL}
}

func (c *client) asAdmin() *client {
	cp := *c
	cp.admin = true
	return &cp
}

// do sends body as JSON and decodes the response into out when it is not nil.
func (c *client) do(method, path string, body, out any) int {
	c.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(c.t, err)
		reader = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.admin {
		req.Header.Set(handler.AdminPasswordHeader, adminPassword)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out), "%s %s", method, path)
	}
	return resp.StatusCode
}

type electionJSON struct {
	ID       uuid.UUID  `json:"id"`
	Title    string     `json:"title"`
	Code     string     `json:"code"`
	Status   string     `json:"status"`
	Round    int        `json:"round"`
	ParentID *uuid.UUID `json:"parent_id"`
}

type candidateJSON struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Position       int       `json:"position"`
	Votes          int64     `json:"votes"`
	ColorCode      string    `json:"color_code"`
	FraudSuspected bool      `json:"fraud_suspected"`
	Percentage     string    `json:"percentage"`
}

type resultsJSON struct {
	Election       electionJSON    `json:"election"`
	Candidates     []candidateJSON `json:"candidates"`
	TotalVotes     int64           `json:"totalVotes"`
	IsTie          bool            `json:"isTie"`
	TiedCandidates []candidateJSON `json:"tiedCandidates"`
	Leader         *candidateJSON  `json:"leader"`
	Runoff         *electionJSON   `json:"runoff"`
}

type errorJSON struct {
	Error string `json:"error"`
}

// openElection creates an election with the given candidates and opens it.
func (c *client) openElection(title string, end time.Time, names ...string) (electionJSON, []candidateJSON) {
	c.t.Helper()
	admin := c.asAdmin()

	var e electionJSON
	status := admin.do(http.MethodPost, "/api/admin/elections", map[string]any{
		"title":   title,
		"endDate": end,
	}, &e)
	require.Equal(c.t, http.StatusCreated, status)

	var candidates []candidateJSON
	for _, name := range names {
		var cand candidateJSON
		status = admin.do(http.MethodPost, "/api/admin/elections/"+e.ID.String()+"/candidates", map[string]string{"name": name}, &cand)
		require.Equal(c.t, http.StatusCreated, status)
		candidates = append(candidates, cand)
	}

	status = admin.do(http.MethodPatch, "/api/admin/elections/"+e.ID.String()+"/status", map[string]string{"status": "open"}, &e)
	require.Equal(c.t, http.StatusOK, status)
	return e, candidates
}

func (c *client) register(electionID uuid.UUID, name string, age int, identifier string) (uuid.UUID, int) {
	c.t.Helper()
	var v struct {
		ID uuid.UUID `json:"id"`
	}
	status := c.do(http.MethodPost, "/api/elections/"+electionID.String()+"/register", map[string]any{
		"name":       name,
		"age":        age,
		"identifier": identifier,
	}, &v)
	return v.ID, status
}

func (c *client) vote(electionID, voterID, candidateID uuid.UUID) int {
	c.t.Helper()
	return c.do(http.MethodPost, "/api/elections/"+electionID.String()+"/vote", map[string]uuid.UUID{
		"voterId":     voterID,
		"candidateId": candidateID,
	}, nil)
}
