// Package sqlite stores elections in an embedded SQLite database through gorm.
package sqlite

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ ports.ElectionStore = (*Store)(nil)

// Open opens the database at path and creates the schema. An empty path gets
// a private in-memory database, which is what the tests use.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var dsn string
	if path == "" {
		dsn = fmt.Sprintf("file:election-%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", uuid.NewString())
	} else {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	// One connection serializes writers and keeps a shared in-memory
	// database alive for the life of the store.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to enable tracing: %w", err)
	}

	for _, model := range models {
		logger.Debug(fmt.Sprintf("creating table: %T", model))
		if err := db.AutoMigrate(model); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}

	logger.Info("sqlite store ready", "path", path)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateElection(ctx context.Context, e *domain.Election) error {
	if err := s.db.WithContext(ctx).Create(electionFromDomain(e)).Error; err != nil {
		return mapError(err, "insert election")
	}
	return nil
}

func (s *Store) GetElectionByID(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	return getElection(s.db.WithContext(ctx), "id = ?", id)
}

func (s *Store) GetElectionByCode(ctx context.Context, code string) (*domain.Election, error) {
	return getElection(s.db.WithContext(ctx), "code = ?", code)
}

func getElection(db *gorm.DB, cond string, arg any) (*domain.Election, error) {
	var m election
	if err := db.Where(cond, arg).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrElectionNotFound
		}
		return nil, fmt.Errorf("failed to get election: %w", err)
	}
	return m.toDomain(), nil
}

func (s *Store) ElectionCodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&election{}).Where("code = ?", code).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check election code: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ListElections(ctx context.Context) ([]*domain.Election, error) {
	var rows []election
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}

	out := make([]*domain.Election, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	slices.SortFunc(out, func(a, b *domain.Election) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

// ListExpiredElections compares end dates in Go; SQLite keeps times as text.
func (s *Store) ListExpiredElections(ctx context.Context, now time.Time) ([]*domain.Election, error) {
	var rows []election
	err := s.db.WithContext(ctx).
		Where("status = ? AND end_date IS NOT NULL", string(domain.StatusOpen)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired elections: %w", err)
	}

	var out []*domain.Election
	for i := range rows {
		if e := rows[i].toDomain(); e.Expired(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) UpdateElectionFields(ctx context.Context, id uuid.UUID, fields domain.ElectionFields) (*domain.Election, error) {
	var updated *domain.Election
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getElection(tx, "id = ?", id)
		if err != nil {
			return err
		}
		merged := fields.Apply(*current)
		err = tx.Model(&election{}).Where("id = ?", id).Updates(map[string]any{
			"title":       merged.Title,
			"description": merged.Description,
			"start_date":  utcPtr(merged.StartDate),
			"end_date":    utcPtr(merged.EndDate),
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update election: %w", err)
		}
		updated = &merged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) SetElectionStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	res := s.db.WithContext(ctx).Model(&election{}).Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return fmt.Errorf("failed to set election status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrElectionNotFound
	}
	return nil
}

func (s *Store) CloseExpiredElection(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	closed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getElection(tx, "id = ?", id)
		if err != nil {
			return err
		}
		if !current.Expired(now) {
			return nil
		}
		res := tx.Model(&election{}).
			Where("id = ? AND status = ?", id, string(domain.StatusOpen)).
			Update("status", string(domain.StatusClosed))
		if res.Error != nil {
			return fmt.Errorf("failed to close election: %w", res.Error)
		}
		closed = res.RowsAffected == 1
		return nil
	})
	return closed, err
}

func (s *Store) SetElectionCode(ctx context.Context, id uuid.UUID, code string) error {
	res := s.db.WithContext(ctx).Model(&election{}).Where("id = ?", id).Update("code", code)
	if res.Error != nil {
		return mapError(res.Error, "set election code")
	}
	if res.RowsAffected == 0 {
		return domain.ErrElectionNotFound
	}
	return nil
}

func (s *Store) DeleteElection(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&vote{}, &voter{}, &candidate{}} {
			if err := tx.Where("election_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete election rows: %w", err)
			}
		}
		if err := tx.Model(&election{}).Where("parent_id = ?", id).Update("parent_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach runoffs: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&election{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete election: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrElectionNotFound
		}
		return nil
	})
}

func (s *Store) AddCandidate(ctx context.Context, c *domain.Candidate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&election{}).Where("id = ?", c.ElectionID).
			UpdateColumn("candidate_seq", gorm.Expr("candidate_seq + 1"))
		if res.Error != nil {
			return fmt.Errorf("failed to reserve candidate position: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrElectionNotFound
		}

		var seq election
		if err := tx.Select("candidate_seq").Where("id = ?", c.ElectionID).Take(&seq).Error; err != nil {
			return fmt.Errorf("failed to read candidate position: %w", err)
		}

		c.Position = seq.CandidateSeq
		c.ColorCode = domain.ColorForPosition(c.Position)
		c.Votes = 0
		c.LastVoteTimestamp = nil
		c.FraudSuspected = false

		m := &candidate{
			ID:         c.ID,
			ElectionID: c.ElectionID,
			Name:       c.Name,
			Position:   c.Position,
			ColorCode:  c.ColorCode,
			CreatedAt:  c.CreatedAt.UTC(),
		}
		if err := tx.Create(m).Error; err != nil {
			return mapError(err, "insert candidate")
		}
		return nil
	})
}

func (s *Store) GetCandidateByID(ctx context.Context, id uuid.UUID) (*domain.Candidate, error) {
	return getCandidate(s.db.WithContext(ctx), id)
}

func getCandidate(db *gorm.DB, id uuid.UUID) (*domain.Candidate, error) {
	var m candidate
	if err := db.Where("id = ?", id).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	c := m.toDomain()
	return &c, nil
}

func (s *Store) ListCandidates(ctx context.Context, electionID uuid.UUID) ([]domain.Candidate, error) {
	var rows []candidate
	err := s.db.WithContext(ctx).Where("election_id = ?", electionID).Order("position").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	out := make([]domain.Candidate, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) DeleteCandidate(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("candidate_id = ?", id).Delete(&vote{}).Error; err != nil {
			return fmt.Errorf("failed to delete candidate votes: %w", err)
		}
		if err := tx.Where("voted_for = ?", id).Delete(&voter{}).Error; err != nil {
			return fmt.Errorf("failed to delete fake voters: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&candidate{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete candidate: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrCandidateNotFound
		}
		return nil
	})
}

func (s *Store) IncrementCandidateVotes(ctx context.Context, id uuid.UUID, n int64, at time.Time) error {
	return incrementVotes(s.db.WithContext(ctx), id, n, at)
}

func incrementVotes(db *gorm.DB, id uuid.UUID, n int64, at time.Time) error {
	res := db.Model(&candidate{}).Where("id = ?", id).Updates(map[string]any{
		"votes":               gorm.Expr("votes + ?", n),
		"last_vote_timestamp": at.UTC(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to increment candidate votes: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrCandidateNotFound
	}
	return nil
}

func (s *Store) SetFraudSuspected(ctx context.Context, flags map[uuid.UUID]bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, suspected := range flags {
			if err := tx.Model(&candidate{}).Where("id = ?", id).Update("fraud_suspected", suspected).Error; err != nil {
				return fmt.Errorf("failed to flag candidate %s: %w", id, err)
			}
		}
		return nil
	})
}

func (s *Store) AddVoter(ctx context.Context, v *domain.Voter) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getElection(tx, "id = ?", v.ElectionID); err != nil {
			return err
		}
		if err := tx.Create(voterFromDomain(v)).Error; err != nil {
			return mapError(err, "insert voter")
		}
		return nil
	})
}

func (s *Store) GetVoterByID(ctx context.Context, id uuid.UUID) (*domain.Voter, error) {
	return getVoter(s.db.WithContext(ctx), id)
}

func getVoter(db *gorm.DB, id uuid.UUID) (*domain.Voter, error) {
	var m voter
	if err := db.Where("id = ?", id).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrVoterNotFound
		}
		return nil, fmt.Errorf("failed to get voter: %w", err)
	}
	return m.toDomain(), nil
}

func (s *Store) CountRealVoters(ctx context.Context, electionID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&voter{}).
		Where("election_id = ? AND is_fake = ?", electionID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count voters: %w", err)
	}
	return n, nil
}

func (s *Store) AddFakeVoters(ctx context.Context, electionID, candidateID uuid.UUID, count int, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := getCandidate(tx, candidateID)
		if err != nil {
			return err
		}
		if c.ElectionID != electionID {
			return domain.ErrCandidateNotInElection
		}

		fakes := make([]*voter, 0, count)
		for range count {
			v := domain.NewFakeVoter(electionID, candidateID, at)
			fakes = append(fakes, voterFromDomain(&v))
		}
		if err := tx.CreateInBatches(fakes, 50).Error; err != nil {
			return mapError(err, "insert fake voters")
		}
		return incrementVotes(tx, candidateID, int64(count), at)
	})
}

func (s *Store) CountFakeVotes(ctx context.Context, electionID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&voter{}).
		Where("election_id = ? AND is_fake = ? AND voted_for IS NOT NULL", electionID, true).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count fake votes: %w", err)
	}
	return n, nil
}

func (s *Store) HasVoted(ctx context.Context, electionID, voterID uuid.UUID) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&vote{}).
		Where("election_id = ? AND voter_id = ?", electionID, voterID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check existing vote: %w", err)
	}
	return n > 0, nil
}

func (s *Store) InsertVote(ctx context.Context, v *domain.Vote) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getCandidate(tx, v.CandidateID); err != nil {
			return err
		}
		if _, err := getVoter(tx, v.VoterID); err != nil {
			return err
		}

		m := &vote{
			ID:          v.ID,
			ElectionID:  v.ElectionID,
			VoterID:     v.VoterID,
			CandidateID: v.CandidateID,
			CreatedAt:   v.CreatedAt.UTC(),
		}
		if err := tx.Create(m).Error; err != nil {
			return mapError(err, "save vote")
		}
		return incrementVotes(tx, v.CandidateID, 1, v.CreatedAt)
	})
}

func (s *Store) CountVotes(ctx context.Context, electionID uuid.UUID) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&vote{}).Where("election_id = ?", electionID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}
