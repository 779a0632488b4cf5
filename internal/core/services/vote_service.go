package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type voteService struct {
	electionRepo  ports.ElectionRepository
	candidateRepo ports.CandidateRepository
	voterRepo     ports.VoterRepository
	voteRepo      ports.VoteRepository
	clock         ports.Clock
	logger        *slog.Logger
	metrics       *Metrics
}

func NewVoteService(
	electionRepo ports.ElectionRepository,
	candidateRepo ports.CandidateRepository,
	voterRepo ports.VoterRepository,
	voteRepo ports.VoteRepository,
	opts Options,
) ports.VoteService {
	opts = opts.withDefaults()
	return &voteService{
		electionRepo:  electionRepo,
		candidateRepo: candidateRepo,
		voterRepo:     voterRepo,
		voteRepo:      voteRepo,
		clock:         opts.Clock,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
	}
}

func (s *voteService) CastVote(ctx context.Context, input ports.VoteInput) error {
	election, err := s.electionRepo.GetElectionByID(ctx, input.ElectionID)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if !election.AcceptingVotes(now) {
		return domain.ErrElectionNotOpen
	}

	if _, err := s.candidateIn(ctx, input.ElectionID, input.CandidateID); err != nil {
		return err
	}

	voter, err := s.voterRepo.GetVoterByID(ctx, input.VoterID)
	if err != nil {
		return err
	}
	if voter.ElectionID != input.ElectionID {
		return domain.ErrVoterNotInElection
	}

	// Only gives a quick answer to the common case. Two requests for the same
	// voter can both get past it; InsertVote's unique constraint settles them.
	hasVoted, err := s.voteRepo.HasVoted(ctx, input.ElectionID, input.VoterID)
	if err != nil {
		return err
	}
	if hasVoted {
		s.metrics.voteConflicts.Inc()
		return domain.ErrAlreadyVoted
	}

	vote := &domain.Vote{
		ID:          uuid.New(),
		ElectionID:  input.ElectionID,
		VoterID:     input.VoterID,
		CandidateID: input.CandidateID,
		CreatedAt:   now,
	}
	if err := s.voteRepo.InsertVote(ctx, vote); err != nil {
		if errors.Is(err, domain.ErrAlreadyVoted) {
			s.metrics.voteConflicts.Inc()
		}
		return err
	}

	s.metrics.votesRecorded.Inc()
	s.logger.Debug("vote recorded",
		"election_id", input.ElectionID,
		"candidate_id", input.CandidateID,
	)
	return nil
}

func (s *voteService) InjectFakeVotes(ctx context.Context, input ports.FakeVotesInput) error {
	if input.Count < 1 || input.Count > domain.MaxFakeVotes {
		return domain.ErrInvalidFakeVoteCount
	}

	if _, err := s.electionRepo.GetElectionByID(ctx, input.ElectionID); err != nil {
		return err
	}
	if _, err := s.candidateIn(ctx, input.ElectionID, input.CandidateID); err != nil {
		return err
	}

	if err := s.voterRepo.AddFakeVoters(ctx, input.ElectionID, input.CandidateID, input.Count, s.clock.Now()); err != nil {
		return err
	}

	s.metrics.fakeVotesInjected.Add(float64(input.Count))
	s.logger.Warn("fake votes injected",
		"election_id", input.ElectionID,
		"candidate_id", input.CandidateID,
		"count", input.Count,
	)
	return nil
}

func (s *voteService) candidateIn(ctx context.Context, electionID, candidateID uuid.UUID) (*domain.Candidate, error) {
	candidate, err := s.candidateRepo.GetCandidateByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if candidate.ElectionID != electionID {
		return nil, domain.ErrCandidateNotInElection
	}
	return candidate, nil
}
