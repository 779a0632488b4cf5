package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
)

type CreateElectionInput struct {
	Title       string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	Round       int
}

type UpdateElectionInput struct {
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
}

type ElectionService interface {
	CreateElection(ctx context.Context, input CreateElectionInput) (*domain.Election, error)
	GetElection(ctx context.Context, id uuid.UUID) (*domain.Election, error)
	ListElections(ctx context.Context) ([]*domain.Election, error)
	UpdateElection(ctx context.Context, id uuid.UUID, input UpdateElectionInput) (*domain.Election, error)
	// JoinElection resolves a voter-typed code to an open election.
	JoinElection(ctx context.Context, code string) (*domain.Election, error)
	SetElectionStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Election, error)
	RegenerateCode(ctx context.Context, id uuid.UUID) (string, error)
	DeleteElection(ctx context.Context, id uuid.UUID) error
}

type TickResult struct {
	Election *domain.Election
	// Closed is true when this tick performed the auto-close transition.
	Closed bool
	Runoff *domain.Election
}

// LifecycleService runs the time-based part of the state machine.
type LifecycleService interface {
	Tick(ctx context.Context, electionID uuid.UUID) (*TickResult, error)
}

type RunoffFactory interface {
	CreateRunoff(ctx context.Context, original *domain.Election, tied []domain.Candidate) (*domain.Election, error)
}

// ResultsService computes results on demand. GetResults is not a pure read:
// it auto-closes an expired election first and may spawn a runoff.
type ResultsService interface {
	GetResults(ctx context.Context, electionID uuid.UUID) (*domain.Results, error)
}

type FraudService interface {
	DetectFraud(ctx context.Context, electionID uuid.UUID) (*domain.FraudReport, error)
}

type SweepService interface {
	CloseExpiredElections(ctx context.Context) (int, error)
}
