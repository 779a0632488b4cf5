// Package storetest checks that an ElectionStore implementation honors the
// contract the services rely on. Each adapter runs it against its own backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) ports.ElectionStore

var base = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndFindElection", func(t *testing.T) { testCreateAndFindElection(t, newStore(t)) })
	t.Run("UpdateElectionFields", func(t *testing.T) { testUpdateElectionFields(t, newStore(t)) })
	t.Run("CloseExpiredElection", func(t *testing.T) { testCloseExpiredElection(t, newStore(t)) })
	t.Run("SetElectionCode", func(t *testing.T) { testSetElectionCode(t, newStore(t)) })
	t.Run("CandidatePositions", func(t *testing.T) { testCandidatePositions(t, newStore(t)) })
	t.Run("InsertVote", func(t *testing.T) { testInsertVote(t, newStore(t)) })
	t.Run("ConcurrentDuplicateVotes", func(t *testing.T) { testConcurrentDuplicateVotes(t, newStore(t)) })
	t.Run("VoterIdentifiers", func(t *testing.T) { testVoterIdentifiers(t, newStore(t)) })
	t.Run("FakeVoters", func(t *testing.T) { testFakeVoters(t, newStore(t)) })
	t.Run("FraudFlags", func(t *testing.T) { testFraudFlags(t, newStore(t)) })
	t.Run("DeleteCandidate", func(t *testing.T) { testDeleteCandidate(t, newStore(t)) })
	t.Run("DeleteElection", func(t *testing.T) { testDeleteElection(t, newStore(t)) })
	t.Run("ElectionsAreCopied", func(t *testing.T) { testElectionsAreCopied(t, newStore(t)) })
}

func newElection(code string, status domain.Status) *domain.Election {
	return &domain.Election{
		ID:        uuid.New(),
		Title:     "Board election " + code,
		Code:      code,
		Status:    status,
		Round:     1,
		CreatedAt: base,
	}
}

func mustElection(t *testing.T, s ports.ElectionStore, code string, status domain.Status) *domain.Election {
	t.Helper()
	e := newElection(code, status)
	require.NoError(t, s.CreateElection(context.Background(), e))
	return e
}

func mustCandidate(t *testing.T, s ports.ElectionStore, electionID uuid.UUID, name string) *domain.Candidate {
	t.Helper()
	c := &domain.Candidate{ID: uuid.New(), ElectionID: electionID, Name: name, CreatedAt: base}
	require.NoError(t, s.AddCandidate(context.Background(), c))
	return c
}

func mustVoter(t *testing.T, s ports.ElectionStore, electionID uuid.UUID, identifier *string) *domain.Voter {
	t.Helper()
	v := &domain.Voter{ID: uuid.New(), ElectionID: electionID, Name: "Ada", Age: 30, Identifier: identifier, CreatedAt: base}
	require.NoError(t, s.AddVoter(context.Background(), v))
	return v
}

func vote(electionID, voterID, candidateID uuid.UUID, at time.Time) *domain.Vote {
	return &domain.Vote{ID: uuid.New(), ElectionID: electionID, VoterID: voterID, CandidateID: candidateID, CreatedAt: at}
}

func ptr[T any](v T) *T { return &v }

func testCreateAndFindElection(t *testing.T, s ports.ElectionStore) {
	ctx := context.Background()
	end := base.Add(time.Hour)
	e := newElection("ABCD2345", domain.StatusDraft)
	e.Description = "yearly"
	e.StartDate = ptr(base)
	e.EndDate = &end
	require.NoError(t, s.CreateElection(ctx, e))

	got, err := s.GetElectionByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Title, got.Title)
	assert.Equal(t, "yearly", got.Description)
	assert.Equal(t, domain.StatusDraft, got.Status)
	assert.Equal(t, 1, got.Round)
	assert.Nil(t, got.ParentID)
	require.NotNil(t, got.EndDate)
	assert.True(t, end.Equal(*got.EndDate))

	byCode, err := s.GetElectionByCode(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.Equal(t, e.ID, byCode.ID)

	exists, err := s.ElectionCodeExists(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.ElectionCodeExists(ctx, "ZZZZ9999")
	require.NoError(t, err)
	assert.False(t, exists)

	err = s.CreateElection(ctx, newElection("ABCD2345", domain.StatusDraft))
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = s.GetElectionByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetElectionByCode(ctx, "NOPE2345")
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)

	parentID := e.ID
	runoff := newElection("RUNF2345", domain.StatusOpen)
	runoff.Round = 2
	runoff.ParentID = &parentID
	runoff.CreatedAt = base.Add(time.Minute)
	require.NoError(t, s.CreateElection(ctx, runoff))

	all, err := s.ListElections(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, runoff.ID, all[0].ID, "newest first")
	require.NotNil(t, all[0].ParentID)
	assert.Equal(t, e.ID, *all[0].ParentID)
}

func testUpdateElectionFields(t *testing.T, s ports.ElectionStore) {
	ctx := context.Background()
	e := mustElection(t, s, "UPDT2345", domain.StatusDraft)

	end := base.Add(2 * time.Hour)
	updated, err := s.UpdateElectionFields(ctx, e.ID, domain.ElectionFields{
		Title:   ptr("Renamed"),
		EndDate: &end,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, e.Description, updated.Description)
	require.NotNil(t, updated.EndDate)
	assert.True(t, end.Equal(*updated.EndDate))

	got, err := s.GetElectionByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	_, err = s.UpdateElectionFields(ctx, uuid.New(), domain.ElectionFields{Title: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)

	require.NoError(t, s.SetElectionStatus(ctx, e.ID, domain.StatusOpen))
	got, err = s.GetElectionByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, got.Status)
	assert.ErrorIs(t, s.SetElectionStatus(ctx, uuid.New(), domain.StatusOpen), domain.ErrElectionNotFound)
}

func testCloseExpiredElection(t *testing.T, s ports.ElectionStore) {
	ctx := context.Background()
	now := base.Add(3 * time.Hour)

	expired := mustElectionEnding(t, s, "EXPD2345", domain.StatusOpen, base.Add(time.Hour))
	running := mustElectionEnding(t, s, "RUNN2345", domain.StatusOpen, base.Add(5*time.Hour))
	draft := mustElectionEnding(t, s, "DRFT2345", domain.StatusDraft, base.Add(time.Hour))
	mustElection(t, s, "NOEND234", domain.StatusOpen)

	list, err := s.ListExpiredElections(ctx, now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, expired.ID, list[0].ID)

	closed, err := s.CloseExpiredElection(ctx, expired.ID, now)
	require.NoError(t, err)
	assert.True(t, closed)

	closed, err = s.CloseExpiredElection(ctx, expired.ID, now)
	require.NoError(t, err)
	assert.False(t, closed, "second close must not report a transition")

	got, err := s.GetElectionByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, got.Status)

	for _, id := range []uuid.UUID{running.ID, draft.ID} {
		closed, err = s.CloseExpiredElection(ctx, id, now)
		require.NoError(t, err)
		assert.False(t, closed)
	}

	_, err = s.CloseExpiredElection(ctx, uuid.New(), now)
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)

	list, err = s.ListExpiredElections(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func mustElectionEnding(t *testing.T, s ports.ElectionStore, code string, status domain.Status, end time.Time) *domain.Election {
	t.Helper()
	e := newElection(code, status)
	e.StartDate = ptr(base)
	e.EndDate = &end
	require.NoError(t, s.CreateElection(context.Background(), e))
	return e
}

func testSetElectionCode(t *testing.T, s ports.ElectionStore) {
	ctx := context.Background()
	a := mustElection(t, s, "AAAA2345", domain.StatusDraft)
	mustElection(t, s, "BBBB2345", domain.StatusDraft)

	assert.ErrorIs(t, s.SetElectionCode(ctx, a.ID, "BBBB2345"), domain.ErrDuplicateCode)
	require.NoError(t, s.SetElectionCode(ctx, a.ID, "CCCC2345"))

	got, err := s.GetElectionByCode(ctx, "CCCC2345")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	exists, err := s.ElectionCodeExists(ctx, "AAAA2345")
	require.NoError(t, err)
	assert.False(t, exists, "old code is released")

	assert.ErrorIs(t, s.SetElectionCode(ctx, uuid.New(), "DDDD2345"), domain.ErrElectionNotFound)
}

func testCandidatePositions(t *testing.T, s ports.ElectionStore) {
	ctx := context.Background()
	e := mustElection(t, s, "CAND2345", domain.StatusOpen)
	other := mustElection(t, s, "OTHR2345", domain.StatusOpen)

	var added []*domain.Candidate
	for i := range 11 {
		added = append(added, mustCandidate(t, s, e.ID, fmt.Sprintf("Candidate %d", i+1)))
	}
	for i, c := range added {
		assert.Equal(t, i+1, c.Position)
		assert.Equal(t, domain.Palette[i%len(domain.Palette)], c.ColorCode)
	}
	assert.Equal(t, domain.Palette[0], added[10].ColorCode, "palette wraps after ten")

	first := mustCandidate(t, s, other.ID, "Elsewhere")
	assert.Equal(t, 1, first.Position, "ordinals are per election")

	require.NoError(t, s.DeleteCandidate(ctx, added[1].ID))
	next := mustCandidate(t, s, e.ID, "Late entry")
	assert.Equal(t, 12, next.Position, "deleted ordinals are not reused")

	list, err := s.ListCandidates(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, list, 11)
	assert.Equal(t, 1, list[0].Position)
	assert.Equal(t, int64(0), list[0].Votes)
	assert.Nil(t, list[0].LastVoteTimestamp)

	empty, err := s.ListCandidates(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)

	err = s.AddCandidate(ctx, &domain.Candidate{ID: uuid.New(), ElectionID: uuid.New(), Name: "Ghost", CreatedAt: base})
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)

	_, err = s.GetCandidateByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrCandidateNotFound)
}

func testInsertVote(t *testing.T, s ports.ElectionStore) {
	ctx := context.Background()
	e := mustElection(t, s, "VOTE2345", domain.StatusOpen)
	c := mustCandidate(t, s, e.ID, "Grace")
	v := mustVoter(t, s, e.ID, nil)

	voted, err := s.HasVoted(ctx, e.ID, v.ID)
	require.NoError(t, err)
	assert.False(t, voted)

	at := base.Add(10 * time.Minute)
	require.NoError(t, s.InsertVote(ctx, vote(e.ID, v.ID, c.ID, at)))

	voted, err = s.HasVoted(ctx, e.ID, v.ID)
	require.NoError(t, err)
	assert.True(t, voted)

	got, err := s.GetCandidateByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Votes)
	require.NotNil(t, got.LastVoteTimestamp)
	assert.True(t, at.Equal(*got.LastVoteTimestamp))

	err = s.InsertVote(ctx, vote(e.ID, v.ID, c.ID, at.Add(time.Minute)))
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, domain.ConstraintVoteVoter, conflict.Constraint)

	got, err = s.GetCandidateByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Votes, "rejected vote leaves the counter alone")
	assert.True(t, at.Equal(*got.LastVoteTimestamp))

	n, err := s.CountVotes(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.IncrementCandidateVotes(ctx, c.ID, 2, at))
	got, err = s.GetCandidateByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Votes)
}

func testConcurrentDuplicateVotes(t *testing.T, s ports.ElectionStore) {
	ctx := context.Background()
	e := mustElection(t, s, "CONC2345", domain.StatusOpen)
	c := mustCandidate(t, s, e.ID, "Linus")
	v := mustVoter(t, s, e.ID, nil)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.InsertVote(ctx, vote(e.ID, v.ID, c.ID, base))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrAlreadyVoted):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)

	got, err := s.GetCandidateByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Votes)
}

func testVoterIdentifiers(t *testing.T, s ports.ElectionStore) {
	ctx := context.Background()
	e := mustElection(t, s, "IDNT2345", domain.StatusOpen)
	other := mustElection(t, s, "IDNO2345", domain.StatusOpen)

	mustVoter(t, s, e.ID, ptr("emp-42"))
	err := s.AddVoter(ctx, &domain.Voter{ID: uuid.New(), ElectionID: e.ID, Name: "Bob", Age: 40, Identifier: ptr("emp-42"), CreatedAt: base})
	assert.ErrorIs(t, err, domain.ErrDuplicateIdentifier)
	assert.ErrorIs(t, err, domain.ErrConflict)

	mustVoter(t, s, other.ID, ptr("emp-42"))
	mustVoter(t, s, e.ID, nil)
	anon := mustVoter(t, s, e.ID, nil)

	got, err := s.GetVoterByID(ctx, anon.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Identifier)
	assert.False(t, got.IsFake)
	assert.Equal(t, e.ID, got.ElectionID)

	n, err := s.CountRealVoters(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = s.GetVoterByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrVoterNotFound)
}

func testFakeVoters(t *testing.T, s ports.ElectionStore) {
	ctx := context.Background()
	e := mustElection(t, s, "FAKE2345", domain.StatusOpen)
	other := mustElection(t, s, "FAKO2345", domain.StatusOpen)
	a := mustCandidate(t, s, e.ID, "A")
	b := mustCandidate(t, s, e.ID, "B")
	real := mustVoter(t, s, e.ID, nil)

	require.NoError(t, s.InsertVote(ctx, vote(e.ID, real.ID, b.ID, base)))
	require.NoError(t, s.AddFakeVoters(ctx, e.ID, a.ID, 3, base.Add(time.Minute)))

	got, err := s.GetCandidateByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Votes)

	fakes, err := s.CountFakeVotes(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fakes)

	reals, err := s.CountRealVoters(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reals)

	votes, err := s.CountVotes(ctx, e.ID)
	require.NoError(t, err)

	candidates, err := s.ListCandidates(ctx, e.ID)
	require.NoError(t, err)
	var sum int64
	for _, c := range candidates {
		sum += c.Votes
	}
	assert.Equal(t, votes+fakes, sum, "counters match vote rows plus fake voters")

	err = s.AddFakeVoters(ctx, other.ID, a.ID, 1, base)
	assert.ErrorIs(t, err, domain.ErrCandidateNotInElection)
	err = s.AddFakeVoters(ctx, e.ID, uuid.New(), 1, base)
	assert.ErrorIs(t, err, domain.ErrCandidateNotFound)
}

func testFraudFlags(t *testing.T, s ports.ElectionStore) {
	ctx := context.Background()
	e := mustElection(t, s, "FRAU2345", domain.StatusOpen)
	a := mustCandidate(t, s, e.ID, "A")
	b := mustCandidate(t, s, e.ID, "B")

	require.NoError(t, s.SetFraudSuspected(ctx, map[uuid.UUID]bool{a.ID: true, b.ID: false}))
	got, err := s.GetCandidateByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.FraudSuspected)

	require.NoError(t, s.SetFraudSuspected(ctx, map[uuid.UUID]bool{a.ID: false}))
	got, err = s.GetCandidateByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.FraudSuspected)
}

func testDeleteCandidate(t *testing.T, s ports.ElectionStore) {
	ctx := context.Background()
	e := mustElection(t, s, "DELC2345", domain.StatusOpen)
	a := mustCandidate(t, s, e.ID, "A")
	b := mustCandidate(t, s, e.ID, "B")
	v := mustVoter(t, s, e.ID, nil)

	require.NoError(t, s.InsertVote(ctx, vote(e.ID, v.ID, a.ID, base)))
	require.NoError(t, s.AddFakeVoters(ctx, e.ID, a.ID, 2, base))
	require.NoError(t, s.DeleteCandidate(ctx, a.ID))

	voted, err := s.HasVoted(ctx, e.ID, v.ID)
	require.NoError(t, err)
	assert.False(t, voted, "votes for a deleted candidate are dropped")

	fakes, err := s.CountFakeVotes(ctx, e.ID)
	require.NoError(t, err)
	assert.Zero(t, fakes)

	require.NoError(t, s.InsertVote(ctx, vote(e.ID, v.ID, b.ID, base)))
	assert.ErrorIs(t, s.DeleteCandidate(ctx, a.ID), domain.ErrCandidateNotFound)
}

func testDeleteElection(t *testing.T, s ports.ElectionStore) {
	ctx := context.Background()
	e := mustElection(t, s, "DELE2345", domain.StatusOpen)
	keep := mustElection(t, s, "KEEP2345", domain.StatusOpen)
	c := mustCandidate(t, s, e.ID, "A")
	v := mustVoter(t, s, e.ID, ptr("id-1"))
	require.NoError(t, s.InsertVote(ctx, vote(e.ID, v.ID, c.ID, base)))
	kept := mustCandidate(t, s, keep.ID, "B")
	runoff := newElection("RUNO2345", domain.StatusOpen)
	runoff.Round = 2
	runoff.ParentID = ptr(e.ID)
	require.NoError(t, s.CreateElection(ctx, runoff))

	require.NoError(t, s.DeleteElection(ctx, e.ID))

	_, err := s.GetElectionByID(ctx, e.ID)
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)
	_, err = s.GetCandidateByID(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrCandidateNotFound)
	_, err = s.GetVoterByID(ctx, v.ID)
	assert.ErrorIs(t, err, domain.ErrVoterNotFound)
	n, err := s.CountVotes(ctx, e.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	exists, err := s.ElectionCodeExists(ctx, "DELE2345")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.GetCandidateByID(ctx, kept.ID)
	assert.NoError(t, err, "other elections are untouched")

	got, err := s.GetElectionByID(ctx, runoff.ID)
	require.NoError(t, err, "runoffs outlive their parent")
	assert.Nil(t, got.ParentID)
	assert.Equal(t, 2, got.Round)

	assert.ErrorIs(t, s.DeleteElection(ctx, e.ID), domain.ErrElectionNotFound)
}

func testElectionsAreCopied(t *testing.T, s ports.ElectionStore) {
	ctx := context.Background()
	parent := mustElection(t, s, "PARE2345", domain.StatusOpen)
	end := base.Add(time.Hour)
	e := newElection("COPY2345", domain.StatusOpen)
	e.StartDate = ptr(base)
	e.EndDate = &end
	e.ParentID = ptr(parent.ID)
	require.NoError(t, s.CreateElection(ctx, e))

	// 1. Changing the caller's value after create does not reach the store
	*e.StartDate = base.Add(-time.Hour)
	*e.EndDate = base.Add(48 * time.Hour)
	*e.ParentID = uuid.New()

	got, err := s.GetElectionByID(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.StartDate)
	require.NotNil(t, got.EndDate)
	require.NotNil(t, got.ParentID)
	assert.True(t, base.Equal(*got.StartDate))
	assert.True(t, base.Add(time.Hour).Equal(*got.EndDate))
	assert.Equal(t, parent.ID, *got.ParentID)

	// 2. Changing a returned value does not reach the store either
	*got.EndDate = base
	*got.ParentID = uuid.New()

	again, err := s.GetElectionByCode(ctx, "COPY2345")
	require.NoError(t, err)
	assert.True(t, base.Add(time.Hour).Equal(*again.EndDate))
	assert.Equal(t, parent.ID, *again.ParentID)
}
