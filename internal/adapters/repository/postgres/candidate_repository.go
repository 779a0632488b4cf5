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

const candidateColumns = `id, election_id, name, position, votes, color_code, last_vote_timestamp, fraud_suspected, created_at`

type candidateRepository struct {
	db *sql.DB
}

func NewCandidateRepository(db *sql.DB) ports.CandidateRepository {
	return &candidateRepository{
		db: db,
	}
}

// AddCandidate takes the next ordinal from the election row, which also
// serializes concurrent inserts into the same election.
func (r *candidateRepository) AddCandidate(ctx context.Context, candidate *domain.Candidate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRowContext(ctx,
		`UPDATE elections SET candidate_seq = candidate_seq + 1 WHERE id = $1 RETURNING candidate_seq`,
		candidate.ElectionID,
	).Scan(&position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrElectionNotFound
		}
		return fmt.Errorf("failed to reserve candidate position: %w", err)
	}

	candidate.Position = position
	candidate.ColorCode = domain.ColorForPosition(position)
	candidate.Votes = 0
	candidate.LastVoteTimestamp = nil
	candidate.FraudSuspected = false

	query := `
		INSERT INTO candidates (id, election_id, name, position, color_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.ExecContext(ctx, query,
		candidate.ID, candidate.ElectionID, candidate.Name, candidate.Position, candidate.ColorCode, candidate.CreatedAt,
	)
	if err != nil {
		return mapError(err, "insert candidate")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *candidateRepository) GetCandidateByID(ctx context.Context, id uuid.UUID) (*domain.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1`
	c, err := scanCandidate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return c, nil
}

func (r *candidateRepository) ListCandidates(ctx context.Context, electionID uuid.UUID) ([]domain.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE election_id = $1 ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	candidates := []domain.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}
	return candidates, nil
}

// DeleteCandidate relies on ON DELETE CASCADE to drop the votes and fake
// voters counted for the candidate.
func (r *candidateRepository) DeleteCandidate(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	return requireRow(res, domain.ErrCandidateNotFound)
}

func (r *candidateRepository) IncrementCandidateVotes(ctx context.Context, id uuid.UUID, n int64, at time.Time) error {
	return incrementVotes(ctx, r.db, id, n, at)
}

func (r *candidateRepository) SetFraudSuspected(ctx context.Context, flags map[uuid.UUID]bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE candidates SET fraud_suspected = $2 WHERE id = $1`)
	if err != nil {
		return fmt.Errorf("failed to prepare fraud statement: %w", err)
	}
	defer stmt.Close()

	for id, suspected := range flags {
		if _, err := stmt.ExecContext(ctx, id, suspected); err != nil {
			return fmt.Errorf("failed to flag candidate %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func incrementVotes(ctx context.Context, db execer, id uuid.UUID, n int64, at time.Time) error {
	query := `UPDATE candidates SET votes = votes + $2, last_vote_timestamp = $3 WHERE id = $1`
	res, err := db.ExecContext(ctx, query, id, n, at)
	if err != nil {
		return fmt.Errorf("failed to increment candidate votes: %w", err)
	}
	return requireRow(res, domain.ErrCandidateNotFound)
}

func scanCandidate(row rowScanner) (*domain.Candidate, error) {
	var (
		c          domain.Candidate
		lastVoteAt sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.ElectionID, &c.Name, &c.Position, &c.Votes,
		&c.ColorCode, &lastVoteAt, &c.FraudSuspected, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastVoteAt.Valid {
		t := lastVoteAt.Time.UTC()
		c.LastVoteTimestamp = &t
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
