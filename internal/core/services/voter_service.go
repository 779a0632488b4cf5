package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type voterService struct {
	electionRepo ports.ElectionRepository
	voterRepo    ports.VoterRepository
	clock        ports.Clock
	logger       *slog.Logger
}

func NewVoterService(electionRepo ports.ElectionRepository, voterRepo ports.VoterRepository, opts Options) ports.VoterService {
	opts = opts.withDefaults()
	return &voterService{
		electionRepo: electionRepo,
		voterRepo:    voterRepo,
		clock:        opts.Clock,
		logger:       opts.Logger,
	}
}

func (s *voterService) RegisterVoter(ctx context.Context, input ports.RegisterVoterInput) (*domain.Voter, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if input.Age < domain.MinVoterAge {
		return nil, domain.ErrUnderage
	}

	if _, err := s.electionRepo.GetElectionByID(ctx, input.ElectionID); err != nil {
		return nil, err
	}

	voter := &domain.Voter{
		ID:         uuid.New(),
		ElectionID: input.ElectionID,
		Name:       name,
		Age:        input.Age,
		CreatedAt:  s.clock.Now(),
	}
	if identifier := strings.TrimSpace(input.Identifier); identifier != "" {
		voter.Identifier = &identifier
	}

	if err := s.voterRepo.AddVoter(ctx, voter); err != nil {
		return nil, err
	}

	s.logger.Info("voter registered", "election_id", voter.ElectionID, "voter_id", voter.ID)
	return voter, nil
}
