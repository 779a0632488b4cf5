package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
)

// ElectionRepository owns election rows. CreateElection and SetElectionCode
// fail with domain.ErrDuplicateCode when the code is taken.
type ElectionRepository interface {
	CreateElection(ctx context.Context, election *domain.Election) error
	GetElectionByID(ctx context.Context, id uuid.UUID) (*domain.Election, error)
	GetElectionByCode(ctx context.Context, code string) (*domain.Election, error)
	ElectionCodeExists(ctx context.Context, code string) (bool, error)
	ListElections(ctx context.Context) ([]*domain.Election, error)
	ListExpiredElections(ctx context.Context, now time.Time) ([]*domain.Election, error)
	UpdateElectionFields(ctx context.Context, id uuid.UUID, fields domain.ElectionFields) (*domain.Election, error)
	SetElectionStatus(ctx context.Context, id uuid.UUID, status domain.Status) error
	// CloseExpiredElection flips an open election whose end date is before now
	// to closed and reports whether this call made the transition.
	CloseExpiredElection(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	SetElectionCode(ctx context.Context, id uuid.UUID, code string) error
	// DeleteElection removes the election with its candidates, voters and votes.
	DeleteElection(ctx context.Context, id uuid.UUID) error
}

// CandidateRepository owns candidate rows and their vote counters.
type CandidateRepository interface {
	// AddCandidate assigns the next ordinal within the election, the matching
	// palette color and zeroed counters.
	AddCandidate(ctx context.Context, candidate *domain.Candidate) error
	GetCandidateByID(ctx context.Context, id uuid.UUID) (*domain.Candidate, error)
	ListCandidates(ctx context.Context, electionID uuid.UUID) ([]domain.Candidate, error)
	// DeleteCandidate removes the candidate and every vote cast for it.
	DeleteCandidate(ctx context.Context, id uuid.UUID) error
	IncrementCandidateVotes(ctx context.Context, id uuid.UUID, n int64, at time.Time) error
	SetFraudSuspected(ctx context.Context, flags map[uuid.UUID]bool) error
}

type VoterRepository interface {
	// AddVoter fails with domain.ErrDuplicateIdentifier when the identifier is
	// already registered in the same election.
	AddVoter(ctx context.Context, voter *domain.Voter) error
	GetVoterByID(ctx context.Context, id uuid.UUID) (*domain.Voter, error)
	CountRealVoters(ctx context.Context, electionID uuid.UUID) (int64, error)
	// AddFakeVoters inserts count fake voters for the candidate and bumps its
	// counter by count in one atomic step.
	AddFakeVoters(ctx context.Context, electionID, candidateID uuid.UUID, count int, at time.Time) error
	CountFakeVotes(ctx context.Context, electionID uuid.UUID) (int64, error)
}

type VoteRepository interface {
	HasVoted(ctx context.Context, electionID, voterID uuid.UUID) (bool, error)
	// InsertVote stores the vote and increments the candidate counter in one
	// atomic step. A second vote by the same voter fails with
	// domain.ErrAlreadyVoted and leaves the counter untouched.
	InsertVote(ctx context.Context, vote *domain.Vote) error
	CountVotes(ctx context.Context, electionID uuid.UUID) (int64, error)
}

// ElectionStore is the single owner of all mutable election state.
type ElectionStore interface {
	ElectionRepository
	CandidateRepository
	VoterRepository
	VoteRepository
}

type Clock interface {
	Now() time.Time
}
