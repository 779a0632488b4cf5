package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type candidateService struct {
	electionRepo  ports.ElectionRepository
	candidateRepo ports.CandidateRepository
	clock         ports.Clock
	logger        *slog.Logger
}

func NewCandidateService(electionRepo ports.ElectionRepository, candidateRepo ports.CandidateRepository, opts Options) ports.CandidateService {
	opts = opts.withDefaults()
	return &candidateService{
		electionRepo:  electionRepo,
		candidateRepo: candidateRepo,
		clock:         opts.Clock,
		logger:        opts.Logger,
	}
}

func (s *candidateService) AddCandidate(ctx context.Context, electionID uuid.UUID, name string) (*domain.Candidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}

	election, err := s.electionRepo.GetElectionByID(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if election.Status == domain.StatusClosed {
		return nil, domain.ErrElectionClosed
	}

	candidate := &domain.Candidate{
		ID:         uuid.New(),
		ElectionID: electionID,
		Name:       name,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.candidateRepo.AddCandidate(ctx, candidate); err != nil {
		return nil, err
	}

	s.logger.Info("candidate added",
		"election_id", electionID,
		"candidate_id", candidate.ID,
		"position", candidate.Position,
	)
	return candidate, nil
}

func (s *candidateService) DeleteCandidate(ctx context.Context, id uuid.UUID) error {
	if err := s.candidateRepo.DeleteCandidate(ctx, id); err != nil {
		return err
	}
	s.logger.Info("candidate deleted", "candidate_id", id)
	return nil
}

func (s *candidateService) ListCandidates(ctx context.Context, electionID uuid.UUID) ([]domain.Candidate, error) {
	if _, err := s.electionRepo.GetElectionByID(ctx, electionID); err != nil {
		return nil, err
	}

	candidates, err := s.candidateRepo.ListCandidates(ctx, electionID)
	if err != nil {
		return nil, err
	}
	domain.SortCandidates(candidates)
	return candidates, nil
}
