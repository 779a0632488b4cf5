// Package memory keeps all election state in process. It backs tests and
// single-node runs where STORE_DRIVER=memory.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type identifierKey struct {
	electionID uuid.UUID
	identifier string
}

type ballotKey struct {
	electionID uuid.UUID
	voterID    uuid.UUID
}

// Store guards every map with one lock, so each method is atomic.
type Store struct {
	mu          sync.RWMutex
	elections   map[uuid.UUID]*domain.Election
	candidates  map[uuid.UUID]*domain.Candidate
	voters      map[uuid.UUID]*domain.Voter
	votes       map[uuid.UUID]*domain.Vote
	codes       map[string]uuid.UUID
	identifiers map[identifierKey]uuid.UUID
	ballots     map[ballotKey]uuid.UUID
	positions   map[uuid.UUID]int
}

var _ ports.ElectionStore = (*Store)(nil)

func New() *Store {
	return &Store{
		elections:   make(map[uuid.UUID]*domain.Election),
		candidates:  make(map[uuid.UUID]*domain.Candidate),
		voters:      make(map[uuid.UUID]*domain.Voter),
		votes:       make(map[uuid.UUID]*domain.Vote),
		codes:       make(map[string]uuid.UUID),
		identifiers: make(map[identifierKey]uuid.UUID),
		ballots:     make(map[ballotKey]uuid.UUID),
		positions:   make(map[uuid.UUID]int),
	}
}

func (s *Store) CreateElection(_ context.Context, election *domain.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.codes[election.Code]; taken {
		return domain.ErrDuplicateCode
	}
	stored := copyElection(election)
	s.elections[stored.ID] = stored
	s.codes[stored.Code] = stored.ID
	return nil
}

func (s *Store) GetElectionByID(_ context.Context, id uuid.UUID) (*domain.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.elections[id]
	if !ok {
		return nil, domain.ErrElectionNotFound
	}
	return copyElection(e), nil
}

func (s *Store) GetElectionByCode(_ context.Context, code string) (*domain.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.codes[code]
	if !ok {
		return nil, domain.ErrElectionNotFound
	}
	return copyElection(s.elections[id]), nil
}

func (s *Store) ElectionCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.codes[code]
	return ok, nil
}

// ListElections returns the newest elections first.
func (s *Store) ListElections(_ context.Context) ([]*domain.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Election, 0, len(s.elections))
	for _, e := range s.elections {
		out = append(out, copyElection(e))
	}
	slices.SortFunc(out, func(a, b *domain.Election) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (s *Store) ListExpiredElections(_ context.Context, now time.Time) ([]*domain.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Election
	for _, e := range s.elections {
		if e.Expired(now) {
			out = append(out, copyElection(e))
		}
	}
	return out, nil
}

func (s *Store) UpdateElectionFields(_ context.Context, id uuid.UUID, fields domain.ElectionFields) (*domain.Election, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.elections[id]
	if !ok {
		return nil, domain.ErrElectionNotFound
	}
	updated := fields.Apply(*e)
	s.elections[id] = copyElection(&updated)
	return copyElection(&updated), nil
}

func (s *Store) SetElectionStatus(_ context.Context, id uuid.UUID, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.elections[id]
	if !ok {
		return domain.ErrElectionNotFound
	}
	e.Status = status
	return nil
}

func (s *Store) CloseExpiredElection(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.elections[id]
	if !ok {
		return false, domain.ErrElectionNotFound
	}
	if !e.Expired(now) {
		return false, nil
	}
	e.Status = domain.StatusClosed
	return true, nil
}

func (s *Store) SetElectionCode(_ context.Context, id uuid.UUID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.elections[id]
	if !ok {
		return domain.ErrElectionNotFound
	}
	if owner, taken := s.codes[code]; taken && owner != id {
		return domain.ErrDuplicateCode
	}
	delete(s.codes, e.Code)
	e.Code = code
	s.codes[code] = id
	return nil
}

func (s *Store) DeleteElection(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.elections[id]
	if !ok {
		return domain.ErrElectionNotFound
	}

	for vid, v := range s.votes {
		if v.ElectionID == id {
			delete(s.votes, vid)
		}
	}
	for vid, v := range s.voters {
		if v.ElectionID == id {
			delete(s.voters, vid)
		}
	}
	for cid, c := range s.candidates {
		if c.ElectionID == id {
			delete(s.candidates, cid)
		}
	}
	for k := range s.identifiers {
		if k.electionID == id {
			delete(s.identifiers, k)
		}
	}
	for k := range s.ballots {
		if k.electionID == id {
			delete(s.ballots, k)
		}
	}
	for _, other := range s.elections {
		if other.ParentID != nil && *other.ParentID == id {
			other.ParentID = nil
		}
	}
	delete(s.positions, id)
	delete(s.codes, e.Code)
	delete(s.elections, id)
	return nil
}

func (s *Store) AddCandidate(_ context.Context, candidate *domain.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elections[candidate.ElectionID]; !ok {
		return domain.ErrElectionNotFound
	}

	s.positions[candidate.ElectionID]++
	candidate.Position = s.positions[candidate.ElectionID]
	candidate.ColorCode = domain.ColorForPosition(candidate.Position)
	candidate.Votes = 0
	candidate.LastVoteTimestamp = nil
	candidate.FraudSuspected = false

	stored := *candidate
	s.candidates[stored.ID] = &stored
	return nil
}

func (s *Store) GetCandidateByID(_ context.Context, id uuid.UUID) (*domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.candidates[id]
	if !ok {
		return nil, domain.ErrCandidateNotFound
	}
	return copyCandidate(c), nil
}

// ListCandidates returns candidates in creation order.
func (s *Store) ListCandidates(_ context.Context, electionID uuid.UUID) ([]domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Candidate{}
	for _, c := range s.candidates {
		if c.ElectionID == electionID {
			out = append(out, *copyCandidate(c))
		}
	}
	slices.SortFunc(out, func(a, b domain.Candidate) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return out, nil
}

// DeleteCandidate drops the candidate together with the votes and fake voters
// counted for it, so counters and rows stay in step.
func (s *Store) DeleteCandidate(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.candidates[id]; !ok {
		return domain.ErrCandidateNotFound
	}

	for vid, v := range s.votes {
		if v.CandidateID == id {
			delete(s.ballots, ballotKey{electionID: v.ElectionID, voterID: v.VoterID})
			delete(s.votes, vid)
		}
	}
	for vid, v := range s.voters {
		if v.VotedFor != nil && *v.VotedFor == id {
			delete(s.voters, vid)
		}
	}
	delete(s.candidates, id)
	return nil
}

func (s *Store) IncrementCandidateVotes(_ context.Context, id uuid.UUID, n int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[id]
	if !ok {
		return domain.ErrCandidateNotFound
	}
	bump(c, n, at)
	return nil
}

func (s *Store) SetFraudSuspected(_ context.Context, flags map[uuid.UUID]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, suspected := range flags {
		if c, ok := s.candidates[id]; ok {
			c.FraudSuspected = suspected
		}
	}
	return nil
}

func (s *Store) AddVoter(_ context.Context, voter *domain.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elections[voter.ElectionID]; !ok {
		return domain.ErrElectionNotFound
	}

	if voter.Identifier != nil {
		key := identifierKey{electionID: voter.ElectionID, identifier: *voter.Identifier}
		if _, taken := s.identifiers[key]; taken {
			return domain.ErrDuplicateIdentifier
		}
		s.identifiers[key] = voter.ID
	}

	stored := *voter
	s.voters[stored.ID] = &stored
	return nil
}

func (s *Store) GetVoterByID(_ context.Context, id uuid.UUID) (*domain.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.voters[id]
	if !ok {
		return nil, domain.ErrVoterNotFound
	}
	out := *v
	return &out, nil
}

func (s *Store) CountRealVoters(_ context.Context, electionID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, v := range s.voters {
		if v.ElectionID == electionID && !v.IsFake {
			n++
		}
	}
	return n, nil
}

func (s *Store) AddFakeVoters(_ context.Context, electionID, candidateID uuid.UUID, count int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[candidateID]
	if !ok {
		return domain.ErrCandidateNotFound
	}
	if c.ElectionID != electionID {
		return domain.ErrCandidateNotInElection
	}

	for range count {
		v := domain.NewFakeVoter(electionID, candidateID, at)
		s.voters[v.ID] = &v
	}
	bump(c, int64(count), at)
	return nil
}

func (s *Store) CountFakeVotes(_ context.Context, electionID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, v := range s.voters {
		if v.ElectionID == electionID && v.IsFake && v.VotedFor != nil {
			n++
		}
	}
	return n, nil
}

func (s *Store) HasVoted(_ context.Context, electionID, voterID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.ballots[ballotKey{electionID: electionID, voterID: voterID}]
	return ok, nil
}

func (s *Store) InsertVote(_ context.Context, vote *domain.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ballotKey{electionID: vote.ElectionID, voterID: vote.VoterID}
	if _, ok := s.ballots[key]; ok {
		return domain.ErrAlreadyVoted
	}
	c, ok := s.candidates[vote.CandidateID]
	if !ok {
		return domain.ErrCandidateNotFound
	}
	if _, ok := s.voters[vote.VoterID]; !ok {
		return domain.ErrVoterNotFound
	}

	stored := *vote
	s.votes[stored.ID] = &stored
	s.ballots[key] = stored.ID
	bump(c, 1, stored.CreatedAt)
	return nil
}

func (s *Store) CountVotes(_ context.Context, electionID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, v := range s.votes {
		if v.ElectionID == electionID {
			n++
		}
	}
	return n, nil
}

func bump(c *domain.Candidate, n int64, at time.Time) {
	c.Votes += n
	ts := at
	c.LastVoteTimestamp = &ts
}

func copyElection(e *domain.Election) *domain.Election {
	out := *e
	if e.StartDate != nil {
		ts := *e.StartDate
		out.StartDate = &ts
	}
	if e.EndDate != nil {
		ts := *e.EndDate
		out.EndDate = &ts
	}
	if e.ParentID != nil {
		id := *e.ParentID
		out.ParentID = &id
	}
	return &out
}

func copyCandidate(c *domain.Candidate) *domain.Candidate {
	out := *c
	if c.LastVoteTimestamp != nil {
		ts := *c.LastVoteTimestamp
		out.LastVoteTimestamp = &ts
	}
	return &out
}
