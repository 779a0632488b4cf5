package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type fraudService struct {
	electionRepo  ports.ElectionRepository
	candidateRepo ports.CandidateRepository
	voterRepo     ports.VoterRepository
	logger        *slog.Logger
	metrics       *Metrics
}

func NewFraudService(
	electionRepo ports.ElectionRepository,
	candidateRepo ports.CandidateRepository,
	voterRepo ports.VoterRepository,
	opts Options,
) ports.FraudService {
	opts = opts.withDefaults()
	return &fraudService{
		electionRepo:  electionRepo,
		candidateRepo: candidateRepo,
		voterRepo:     voterRepo,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
	}
}

// DetectFraud flags every candidate holding more votes than the election has
// real voters and clears the flag on the rest. Flags are persisted.
func (s *fraudService) DetectFraud(ctx context.Context, electionID uuid.UUID) (*domain.FraudReport, error) {
	if _, err := s.electionRepo.GetElectionByID(ctx, electionID); err != nil {
		return nil, err
	}

	realVoters, err := s.voterRepo.CountRealVoters(ctx, electionID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidateRepo.ListCandidates(ctx, electionID)
	if err != nil {
		return nil, err
	}

	flags := make(map[uuid.UUID]bool, len(candidates))
	raised := 0
	for i := range candidates {
		suspected := domain.FraudSuspected(candidates[i], realVoters)
		candidates[i].FraudSuspected = suspected
		flags[candidates[i].ID] = suspected
		if suspected {
			raised++
		}
	}

	if err := s.candidateRepo.SetFraudSuspected(ctx, flags); err != nil {
		return nil, err
	}

	if raised > 0 {
		s.metrics.fraudFlagsRaised.Add(float64(raised))
		s.logger.Warn("fraud suspected",
			"election_id", electionID,
			"real_voters", realVoters,
			"flagged", raised,
		)
	}

	domain.SortCandidates(candidates)
	return &domain.FraudReport{
		ElectionID:     electionID,
		RealVoterCount: realVoters,
		Candidates:     candidates,
	}, nil
}
