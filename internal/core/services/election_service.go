package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type electionService struct {
	repo   ports.ElectionRepository
	codes  *codeGenerator
	clock  ports.Clock
	logger *slog.Logger
}

func NewElectionService(repo ports.ElectionRepository, opts Options) ports.ElectionService {
	opts = opts.withDefaults()
	return &electionService{
		repo:   repo,
		codes:  newCodeGenerator(repo, opts.Metrics),
		clock:  opts.Clock,
		logger: opts.Logger,
	}
}

func (s *electionService) CreateElection(ctx context.Context, input ports.CreateElectionInput) (*domain.Election, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domain.ErrTitleRequired
	}

	round := input.Round
	if round == 0 {
		round = 1
	}
	if round < 1 {
		return nil, domain.ErrInvalidRound
	}

	if err := domain.ValidateSchedule(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}

	election := &domain.Election{
		ID:          uuid.New(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.StatusDraft,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Round:       round,
		CreatedAt:   s.clock.Now(),
	}

	_, err := s.codes.assign(ctx, func(code string) error {
		election.Code = code
		return s.repo.CreateElection(ctx, election)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("election created",
		"election_id", election.ID,
		"code", election.Code,
		"round", election.Round,
	)
	return election, nil
}

func (s *electionService) GetElection(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	return s.repo.GetElectionByID(ctx, id)
}

func (s *electionService) ListElections(ctx context.Context) ([]*domain.Election, error) {
	return s.repo.ListElections(ctx)
}

func (s *electionService) UpdateElection(ctx context.Context, id uuid.UUID, input ports.UpdateElectionInput) (*domain.Election, error) {
	fields := domain.ElectionFields{
		Description: input.Description,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, domain.ErrTitleRequired
		}
		fields.Title = &title
	}

	current, err := s.repo.GetElectionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := fields.Apply(*current)
	if err := domain.ValidateSchedule(merged.StartDate, merged.EndDate); err != nil {
		return nil, err
	}

	return s.repo.UpdateElectionFields(ctx, id, fields)
}

func (s *electionService) JoinElection(ctx context.Context, code string) (*domain.Election, error) {
	code = domain.NormalizeCode(code)
	if !domain.ValidCode(code) {
		return nil, domain.ErrElectionNotFound
	}

	election, err := s.repo.GetElectionByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	switch {
	case election.Status == domain.StatusDraft:
		return nil, domain.ErrElectionDraft
	case election.Status == domain.StatusClosed, election.Expired(s.clock.Now()):
		return nil, domain.ErrElectionClosed
	}
	return election, nil
}

func (s *electionService) SetElectionStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Election, error) {
	target, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	election, err := s.repo.GetElectionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetElectionStatus(ctx, id, target); err != nil {
		return nil, err
	}

	s.logger.Info("election status changed",
		"election_id", id,
		"from", election.Status,
		"to", target,
	)
	election.Status = target
	return election, nil
}

func (s *electionService) RegenerateCode(ctx context.Context, id uuid.UUID) (string, error) {
	if _, err := s.repo.GetElectionByID(ctx, id); err != nil {
		return "", err
	}

	code, err := s.codes.assign(ctx, func(code string) error {
		return s.repo.SetElectionCode(ctx, id, code)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("election code regenerated", "election_id", id, "code", code)
	return code, nil
}

func (s *electionService) DeleteElection(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteElection(ctx, id); err != nil {
		return err
	}
	s.logger.Info("election deleted", "election_id", id)
	return nil
}
