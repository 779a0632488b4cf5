package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type runoffFactory struct {
	electionRepo  ports.ElectionRepository
	candidateRepo ports.CandidateRepository
	codes         *codeGenerator
	clock         ports.Clock
	logger        *slog.Logger
	metrics       *Metrics
}

func NewRunoffFactory(electionRepo ports.ElectionRepository, candidateRepo ports.CandidateRepository, opts Options) ports.RunoffFactory {
	opts = opts.withDefaults()
	return &runoffFactory{
		electionRepo:  electionRepo,
		candidateRepo: candidateRepo,
		codes:         newCodeGenerator(electionRepo, opts.Metrics),
		clock:         opts.Clock,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
	}
}

// CreateRunoff spawns the next round between the tied candidates. The runoff
// is built as a draft and only opened once every candidate is in place; on
// any failure the partial election is removed.
func (f *runoffFactory) CreateRunoff(ctx context.Context, original *domain.Election, tied []domain.Candidate) (*domain.Election, error) {
	if len(tied) < 2 {
		return nil, fmt.Errorf("runoff needs at least two candidates, got %d: %w", len(tied), domain.ErrValidation)
	}

	now := f.clock.Now()
	end := now.Add(domain.RunoffWindow)
	parentID := original.ID
	runoff := &domain.Election{
		ID:          uuid.New(),
		Title:       domain.RunoffTitlePrefix + original.Title,
		Description: fmt.Sprintf("Runoff round for election %s", original.ID),
		Status:      domain.StatusDraft,
		StartDate:   &now,
		EndDate:     &end,
		Round:       original.Round + 1,
		ParentID:    &parentID,
		CreatedAt:   now,
	}

	if _, err := f.codes.assign(ctx, func(code string) error {
		runoff.Code = code
		return f.electionRepo.CreateElection(ctx, runoff)
	}); err != nil {
		return nil, err
	}

	if err := f.populate(ctx, runoff, tied, now); err != nil {
		if delErr := f.electionRepo.DeleteElection(ctx, runoff.ID); delErr != nil {
			f.logger.Error("failed to remove partial runoff",
				"runoff_id", runoff.ID,
				"error", delErr,
			)
		}
		return nil, err
	}

	runoff.Status = domain.StatusOpen
	f.metrics.runoffsCreated.Inc()
	f.logger.Info("runoff created",
		"election_id", original.ID,
		"runoff_id", runoff.ID,
		"round", runoff.Round,
		"candidates", len(tied),
	)
	return runoff, nil
}

func (f *runoffFactory) populate(ctx context.Context, runoff *domain.Election, tied []domain.Candidate, now time.Time) error {
	for _, c := range tied {
		candidate := &domain.Candidate{
			ID:         uuid.New(),
			ElectionID: runoff.ID,
			Name:       c.Name,
			CreatedAt:  now,
		}
		if err := f.candidateRepo.AddCandidate(ctx, candidate); err != nil {
			return fmt.Errorf("failed to copy candidate %q into runoff: %w", c.Name, err)
		}
	}
	return f.electionRepo.SetElectionStatus(ctx, runoff.ID, domain.StatusOpen)
}
