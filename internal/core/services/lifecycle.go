package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type lifecycleService struct {
	electionRepo  ports.ElectionRepository
	candidateRepo ports.CandidateRepository
	runoffs       ports.RunoffFactory
	clock         ports.Clock
	logger        *slog.Logger
	metrics       *Metrics
}

func NewLifecycleService(
	electionRepo ports.ElectionRepository,
	candidateRepo ports.CandidateRepository,
	runoffs ports.RunoffFactory,
	opts Options,
) ports.LifecycleService {
	opts = opts.withDefaults()
	return &lifecycleService{
		electionRepo:  electionRepo,
		candidateRepo: candidateRepo,
		runoffs:       runoffs,
		clock:         opts.Clock,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
	}
}

// Tick closes the election if its end date has passed. Only the caller whose
// conditional close succeeds goes on to check for a tie, so concurrent ticks
// spawn at most one runoff. Runoff failures are logged and never fail the tick.
func (s *lifecycleService) Tick(ctx context.Context, electionID uuid.UUID) (*ports.TickResult, error) {
	election, err := s.electionRepo.GetElectionByID(ctx, electionID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !election.Expired(now) {
		return &ports.TickResult{Election: election}, nil
	}

	closed, err := s.electionRepo.CloseExpiredElection(ctx, electionID, now)
	if err != nil {
		return nil, err
	}
	if !closed {
		// lost the race; someone else closed or reopened it
		election, err = s.electionRepo.GetElectionByID(ctx, electionID)
		if err != nil {
			return nil, err
		}
		return &ports.TickResult{Election: election}, nil
	}

	election.Status = domain.StatusClosed
	s.metrics.electionsAutoClosed.Inc()
	s.logger.Info("election auto-closed", "election_id", electionID, "end_date", election.EndDate)

	result := &ports.TickResult{Election: election, Closed: true}
	result.Runoff = s.runoffOnTie(ctx, election)
	return result, nil
}

func (s *lifecycleService) runoffOnTie(ctx context.Context, election *domain.Election) *domain.Election {
	candidates, err := s.candidateRepo.ListCandidates(ctx, election.ID)
	if err != nil {
		s.metrics.runoffFailures.Inc()
		s.logger.Error("failed to load candidates for tie check", "election_id", election.ID, "error", err)
		return nil
	}

	tally := domain.ComputeTally(candidates)
	if !tally.IsTie {
		return nil
	}

	tied := make([]domain.Candidate, 0, len(tally.TiedCandidates))
	for _, c := range tally.TiedCandidates {
		tied = append(tied, c.Candidate)
	}

	runoff, err := s.runoffs.CreateRunoff(ctx, election, tied)
	if err != nil {
		s.metrics.runoffFailures.Inc()
		s.logger.Error("failed to create runoff", "election_id", election.ID, "error", err)
		return nil
	}
	return runoff
}
