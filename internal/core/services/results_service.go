package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type resultsService struct {
	lifecycle     ports.LifecycleService
	candidateRepo ports.CandidateRepository
}

func NewResultsService(lifecycle ports.LifecycleService, candidateRepo ports.CandidateRepository) ports.ResultsService {
	return &resultsService{
		lifecycle:     lifecycle,
		candidateRepo: candidateRepo,
	}
}

func (s *resultsService) GetResults(ctx context.Context, electionID uuid.UUID) (*domain.Results, error) {
	tick, err := s.lifecycle.Tick(ctx, electionID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidateRepo.ListCandidates(ctx, electionID)
	if err != nil {
		return nil, err
	}

	results := domain.NewResults(*tick.Election, domain.ComputeTally(candidates))
	results.Runoff = tick.Runoff
	return &results, nil
}
