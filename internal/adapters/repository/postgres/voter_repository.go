package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type voterRepository struct {
	db *sql.DB
}

func NewVoterRepository(db *sql.DB) ports.VoterRepository {
	return &voterRepository{
		db: db,
	}
}

func (r *voterRepository) AddVoter(ctx context.Context, voter *domain.Voter) error {
	query := `
		INSERT INTO voters (id, election_id, name, age, identifier, is_fake, voted_for, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		voter.ID, voter.ElectionID, voter.Name, voter.Age, voter.Identifier,
		voter.IsFake, voter.VotedFor, voter.CreatedAt,
	)
	if err != nil {
		return mapError(err, "insert voter")
	}
	return nil
}

func (r *voterRepository) GetVoterByID(ctx context.Context, id uuid.UUID) (*domain.Voter, error) {
	query := `
		SELECT id, election_id, name, age, identifier, is_fake, voted_for, created_at
		FROM voters
		WHERE id = $1
	`
	var (
		v          domain.Voter
		identifier sql.NullString
		votedFor   uuid.NullUUID
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.ElectionID, &v.Name, &v.Age, &identifier, &v.IsFake, &votedFor, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVoterNotFound
		}
		return nil, fmt.Errorf("failed to get voter: %w", err)
	}
	if identifier.Valid {
		v.Identifier = &identifier.String
	}
	if votedFor.Valid {
		v.VotedFor = &votedFor.UUID
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return &v, nil
}

func (r *voterRepository) CountRealVoters(ctx context.Context, electionID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM voters WHERE election_id = $1 AND NOT is_fake`, electionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count voters: %w", err)
	}
	return n, nil
}

// AddFakeVoters locks the candidate row while the fake voters go in, so the
// counter and the voter rows move together.
func (r *voterRepository) AddFakeVoters(ctx context.Context, electionID, candidateID uuid.UUID, count int, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var owner uuid.UUID
	err = tx.QueryRowContext(ctx,
		`SELECT election_id FROM candidates WHERE id = $1 FOR UPDATE`, candidateID,
	).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrCandidateNotFound
		}
		return fmt.Errorf("failed to lock candidate: %w", err)
	}
	if owner != electionID {
		return domain.ErrCandidateNotInElection
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO voters (id, election_id, name, age, is_fake, voted_for, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare fake voter statement: %w", err)
	}
	defer stmt.Close()

	for range count {
		v := domain.NewFakeVoter(electionID, candidateID, at)
		if _, err := stmt.ExecContext(ctx, v.ID, v.ElectionID, v.Name, v.Age, v.VotedFor, v.CreatedAt); err != nil {
			return mapError(err, "insert fake voter")
		}
	}

	if err := incrementVotes(ctx, tx, candidateID, int64(count), at); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *voterRepository) CountFakeVotes(ctx context.Context, electionID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM voters WHERE election_id = $1 AND is_fake AND voted_for IS NOT NULL`, electionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count fake votes: %w", err)
	}
	return n, nil
}
