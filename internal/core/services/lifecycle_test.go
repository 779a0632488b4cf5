package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
	"go.uber.org/goleak"
)

type failingRunoffs struct{ err error }

func (f failingRunoffs) CreateRunoff(context.Context, *domain.Election, []domain.Candidate) (*domain.Election, error) {
	return nil, f.err
}

// flakyCandidates fails AddCandidate once it has succeeded okCalls times.
type flakyCandidates struct {
	ports.ElectionStore
	okCalls int
}

func (s *flakyCandidates) AddCandidate(ctx context.Context, c *domain.Candidate) error {
	if s.okCalls == 0 {
		return errors.New("disk full")
	}
	s.okCalls--
	return s.ElectionStore.AddCandidate(ctx, c)
}

func TestResultsBeforeEndDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, cs := f.openElection(t, "Live", "A", "B")
	f.votes(t, e.ID, cs[0].ID, 1)
	f.votes(t, e.ID, cs[1].ID, 1)

	res, err := f.svc.Results.GetResults(ctx, e.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusOpen, res.Election.Status)
	assert.True(t, res.IsTie, "ties are reported while voting is still open")
	assert.Nil(t, res.Runoff)
	assert.Zero(t, testutil.ToFloat64(f.metrics.electionsAutoClosed))
}

func TestResultsAutoCloseSpawnsRunoffOnTie(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, cs := f.openElection(t, "Board", "A", "B", "C")
	f.votes(t, e.ID, cs[0].ID, 2)
	f.votes(t, e.ID, cs[1].ID, 2)
	f.votes(t, e.ID, cs[2].ID, 1)

	// 1. First read after the end date closes the election and spawns the runoff
	f.clock.Advance(90 * time.Minute)
	res, err := f.svc.Results.GetResults(ctx, e.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusClosed, res.Election.Status)
	assert.True(t, res.IsTie)
	assert.Len(t, res.TiedCandidates, 2)
	require.NotNil(t, res.Runoff)

	runoff := res.Runoff
	assert.Equal(t, "[Runoff] Board", runoff.Title)
	assert.Equal(t, domain.StatusOpen, runoff.Status)
	assert.Equal(t, 2, runoff.Round)
	require.NotNil(t, runoff.ParentID)
	assert.Equal(t, e.ID, *runoff.ParentID)
	require.NotNil(t, runoff.EndDate)
	assert.Equal(t, f.clock.Now().Add(domain.RunoffWindow), *runoff.EndDate)
	assert.True(t, domain.ValidCode(runoff.Code))
	assert.NotEqual(t, e.Code, runoff.Code)

	// 2. Runoff holds fresh copies of the tied candidates
	runoffCandidates, err := f.svc.Candidates.ListCandidates(ctx, runoff.ID)
	require.NoError(t, err)
	require.Len(t, runoffCandidates, 2)
	var runoffNames []string
	for _, c := range runoffCandidates {
		runoffNames = append(runoffNames, c.Name)
		assert.Zero(t, c.Votes)
		assert.NotEqual(t, cs[0].ID, c.ID)
	}
	assert.ElementsMatch(t, []string{"A", "B"}, runoffNames)

	// 3. Voters can join the runoff straight away
	joined, err := f.svc.Elections.JoinElection(ctx, runoff.Code)
	require.NoError(t, err)
	assert.Equal(t, runoff.ID, joined.ID)

	// 4. Later reads do not spawn another round
	again, err := f.svc.Results.GetResults(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, again.Runoff)

	all, err := f.svc.Elections.ListElections(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.electionsAutoClosed))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.runoffsCreated))
}

func TestResultsAutoCloseWithLeader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, cs := f.openElection(t, "Clear winner", "A", "B")
	f.votes(t, e.ID, cs[0].ID, 3)
	f.votes(t, e.ID, cs[1].ID, 1)

	f.clock.Advance(2 * time.Hour)
	res, err := f.svc.Results.GetResults(ctx, e.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusClosed, res.Election.Status)
	assert.False(t, res.IsTie)
	require.NotNil(t, res.Leader)
	assert.Equal(t, "A", res.Leader.Name)
	assert.Equal(t, "75.0", res.Leader.Percentage)
	assert.Nil(t, res.Runoff)
}

func TestResultsAutoCloseWithoutVotes(t *testing.T) {
	f := newFixture(t)
	e, _ := f.openElection(t, "Empty", "A", "B")

	f.clock.Advance(2 * time.Hour)
	res, err := f.svc.Results.GetResults(context.Background(), e.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusClosed, res.Election.Status)
	assert.False(t, res.IsTie)
	assert.Nil(t, res.Runoff)
	assert.Zero(t, testutil.ToFloat64(f.metrics.runoffsCreated))
}

func TestResultsSurviveRunoffFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lifecycle := NewLifecycleService(f.store, f.store, failingRunoffs{err: errors.New("no codes left")}, f.opts)
	results := NewResultsService(lifecycle, f.store)

	e, cs := f.openElection(t, "Fragile", "A", "B")
	f.votes(t, e.ID, cs[0].ID, 1)
	f.votes(t, e.ID, cs[1].ID, 1)

	f.clock.Advance(2 * time.Hour)
	res, err := results.GetResults(ctx, e.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusClosed, res.Election.Status)
	assert.True(t, res.IsTie)
	assert.Nil(t, res.Runoff)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.runoffFailures))

	stored, err := f.store.GetElectionByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, stored.Status, "close is kept even though the runoff failed")
}

func TestConcurrentResultsSpawnOneRunoff(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	ctx := context.Background()
	e, cs := f.openElection(t, "Crowded", "A", "B")
	f.votes(t, e.ID, cs[0].ID, 2)
	f.votes(t, e.ID, cs[1].ID, 2)
	f.clock.Advance(2 * time.Hour)

	const readers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		runoffs int
	)
	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Results.GetResults(ctx, e.ID)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, domain.StatusClosed, res.Election.Status)
			if res.Runoff != nil {
				mu.Lock()
				runoffs++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, runoffs)
	all, err := f.store.ListElections(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.electionsAutoClosed))
}

func TestTick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, _ := f.openElection(t, "Tick")

	result, err := f.svc.Lifecycle.Tick(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, result.Closed)
	assert.Equal(t, domain.StatusOpen, result.Election.Status)

	f.clock.Advance(2 * time.Hour)
	result, err = f.svc.Lifecycle.Tick(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, result.Closed)

	result, err = f.svc.Lifecycle.Tick(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, result.Closed)
	assert.Equal(t, domain.StatusClosed, result.Election.Status)

	_, err = f.svc.Lifecycle.Tick(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)
}

func TestCreateRunoffNeedsTwoCandidates(t *testing.T) {
	f := newFixture(t)
	e, cs := f.openElection(t, "Solo", "A")
	factory := NewRunoffFactory(f.store, f.store, f.opts)

	_, err := factory.CreateRunoff(context.Background(), e, []domain.Candidate{*cs[0]})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateRunoffRemovesPartialElection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, cs := f.openElection(t, "Partial", "A", "B")

	flaky := &flakyCandidates{ElectionStore: f.store, okCalls: 1}
	factory := NewRunoffFactory(flaky, flaky, f.opts)

	_, err := factory.CreateRunoff(ctx, e, []domain.Candidate{*cs[0], *cs[1]})
	require.Error(t, err)

	all, err := f.store.ListElections(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, e.ID, all[0].ID)
	assert.Zero(t, testutil.ToFloat64(f.metrics.runoffsCreated))
}
