package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/lib/pq"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

// Store bundles the four repositories over one connection pool.
type Store struct {
	ports.ElectionRepository
	ports.CandidateRepository
	ports.VoterRepository
	ports.VoteRepository
}

var _ ports.ElectionStore = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{
		ElectionRepository:  NewElectionRepository(db),
		CandidateRepository: NewCandidateRepository(db),
		VoterRepository:     NewVoterRepository(db),
		VoteRepository:      NewVoteRepository(db),
	}
}

// ConnString builds a lib/pq URL.
func ConnString(user, password, host, port, dbName, sslMode string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     host + ":" + port,
		Path:     dbName,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// Open connects and pings.
func Open(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}
