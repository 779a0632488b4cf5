package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/election/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

var t0 = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store   *memory.Store
	clock   *fakeClock
	metrics *Metrics
	opts    Options
	svc     *Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   memory.New(),
		clock:   &fakeClock{now: t0},
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	f.opts = Options{
		Clock:   f.clock,
		Logger:  slog.New(slog.DiscardHandler),
		Metrics: f.metrics,
	}
	f.svc = New(f.store, f.opts)
	return f
}

// openElection creates an election ending an hour from now, adds the named
// candidates and opens it.
func (f *fixture) openElection(t *testing.T, title string, candidates ...string) (*domain.Election, []*domain.Candidate) {
	t.Helper()
	ctx := context.Background()
	start := f.clock.Now()
	end := start.Add(time.Hour)

	e, err := f.svc.Elections.CreateElection(ctx, ports.CreateElectionInput{
		Title:     title,
		StartDate: &start,
		EndDate:   &end,
	})
	require.NoError(t, err)

	var added []*domain.Candidate
	for _, name := range candidates {
		c, err := f.svc.Candidates.AddCandidate(ctx, e.ID, name)
		require.NoError(t, err)
		added = append(added, c)
	}

	e, err = f.svc.Elections.SetElectionStatus(ctx, e.ID, "open")
	require.NoError(t, err)
	return e, added
}

func (f *fixture) voter(t *testing.T, electionID uuid.UUID) *domain.Voter {
	t.Helper()
	v, err := f.svc.Voters.RegisterVoter(context.Background(), ports.RegisterVoterInput{
		ElectionID: electionID,
		Name:       "Voter " + uuid.NewString()[:8],
		Age:        30,
	})
	require.NoError(t, err)
	return v
}

// votes registers n fresh voters and casts each one's ballot for candidate.
func (f *fixture) votes(t *testing.T, electionID, candidateID uuid.UUID, n int) {
	t.Helper()
	for range n {
		v := f.voter(t, electionID)
		require.NoError(t, f.svc.Votes.CastVote(context.Background(), ports.VoteInput{
			ElectionID:  electionID,
			VoterID:     v.ID,
			CandidateID: candidateID,
		}))
	}
}
