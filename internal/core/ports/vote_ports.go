package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
)

type VoteInput struct {
	ElectionID  uuid.UUID
	VoterID     uuid.UUID
	CandidateID uuid.UUID
}

type FakeVotesInput struct {
	ElectionID  uuid.UUID
	CandidateID uuid.UUID
	Count       int
}

type VoteService interface {
	CastVote(ctx context.Context, input VoteInput) error
	// InjectFakeVotes simulates ballot stuffing. It bypasses the one-vote rule.
	InjectFakeVotes(ctx context.Context, input FakeVotesInput) error
}

type RegisterVoterInput struct {
	ElectionID uuid.UUID
	Name       string
	Age        int
	Identifier string
}

type VoterService interface {
	RegisterVoter(ctx context.Context, input RegisterVoterInput) (*domain.Voter, error)
}

type CandidateService interface {
	AddCandidate(ctx context.Context, electionID uuid.UUID, name string) (*domain.Candidate, error)
	DeleteCandidate(ctx context.Context, id uuid.UUID) error
	ListCandidates(ctx context.Context, electionID uuid.UUID) ([]domain.Candidate, error)
}
