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

const electionColumns = `id, title, description, code, status, start_date, end_date, round, parent_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type electionRepository struct {
	db *sql.DB
}

func NewElectionRepository(db *sql.DB) ports.ElectionRepository {
	return &electionRepository{
		db: db,
	}
}

func (r *electionRepository) CreateElection(ctx context.Context, election *domain.Election) error {
	query := `
		INSERT INTO elections (id, title, description, code, status, start_date, end_date, round, parent_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		election.ID, election.Title, election.Description, election.Code, election.Status,
		election.StartDate, election.EndDate, election.Round, election.ParentID, election.CreatedAt,
	)
	if err != nil {
		return mapError(err, "insert election")
	}
	return nil
}

func (r *electionRepository) GetElectionByID(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *electionRepository) GetElectionByCode(ctx context.Context, code string) (*domain.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE code = $1`
	return r.getOne(ctx, query, code)
}

func (r *electionRepository) getOne(ctx context.Context, query string, arg any) (*domain.Election, error) {
	election, err := scanElection(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrElectionNotFound
		}
		return nil, fmt.Errorf("failed to get election: %w", err)
	}
	return election, nil
}

func (r *electionRepository) ElectionCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM elections WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check election code: %w", err)
	}
	return exists, nil
}

func (r *electionRepository) ListElections(ctx context.Context) ([]*domain.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}
	defer rows.Close()

	return scanElections(rows)
}

func (r *electionRepository) ListExpiredElections(ctx context.Context, now time.Time) ([]*domain.Election, error) {
	query := `
		SELECT ` + electionColumns + `
		FROM elections
		WHERE status = 'open' AND end_date IS NOT NULL AND end_date < $1
		ORDER BY end_date
	`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired elections: %w", err)
	}
	defer rows.Close()

	return scanElections(rows)
}

func (r *electionRepository) UpdateElectionFields(ctx context.Context, id uuid.UUID, fields domain.ElectionFields) (*domain.Election, error) {
	query := `
		UPDATE elections
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    start_date = COALESCE($4, start_date),
		    end_date = COALESCE($5, end_date)
		WHERE id = $1
		RETURNING ` + electionColumns
	election, err := scanElection(r.db.QueryRowContext(ctx, query,
		id, fields.Title, fields.Description, fields.StartDate, fields.EndDate,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrElectionNotFound
		}
		return nil, fmt.Errorf("failed to update election: %w", err)
	}
	return election, nil
}

func (r *electionRepository) SetElectionStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE elections SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to set election status: %w", err)
	}
	return requireRow(res, domain.ErrElectionNotFound)
}

func (r *electionRepository) CloseExpiredElection(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE elections
		SET status = 'closed'
		WHERE id = $1 AND status = 'open' AND end_date IS NOT NULL AND end_date < $2
	`
	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return false, fmt.Errorf("failed to close election: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	if _, err := r.GetElectionByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *electionRepository) SetElectionCode(ctx context.Context, id uuid.UUID, code string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE elections SET code = $2 WHERE id = $1`, id, code)
	if err != nil {
		return mapError(err, "set election code")
	}
	return requireRow(res, domain.ErrElectionNotFound)
}

func (r *electionRepository) DeleteElection(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM elections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete election: %w", err)
	}
	return requireRow(res, domain.ErrElectionNotFound)
}

func scanElection(row rowScanner) (*domain.Election, error) {
	var (
		e         domain.Election
		startDate sql.NullTime
		endDate   sql.NullTime
		parentID  uuid.NullUUID
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Code, &e.Status,
		&startDate, &endDate, &e.Round, &parentID, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startDate.Valid {
		t := startDate.Time.UTC()
		e.StartDate = &t
	}
	if endDate.Valid {
		t := endDate.Time.UTC()
		e.EndDate = &t
	}
	if parentID.Valid {
		id := parentID.UUID
		e.ParentID = &id
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

func scanElections(rows *sql.Rows) ([]*domain.Election, error) {
	var elections []*domain.Election
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating elections: %w", err)
	}
	return elections, nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
