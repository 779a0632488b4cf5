package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vncsmyrnk/election/internal/core/domain"
	"gorm.io/gorm"
)

const uniqueFailed = "UNIQUE constraint failed: "

// uniqueIndexes maps the column list SQLite reports for a unique violation to
// the index declared in models.go.
var uniqueIndexes = map[string]string{
	"elections.code":                              domain.ConstraintElectionCode,
	"voters.election_id, voters.identifier":       domain.ConstraintVoterIdentifier,
	"votes.election_id, votes.voter_id":           domain.ConstraintVoteVoter,
	"candidates.election_id, candidates.position": "candidates_election_position_key",
}

// mapError reads the columns out of SQLite's unique-constraint message, since
// the driver does not report the index name.
func mapError(err error, op string) error {
	if i := strings.Index(err.Error(), uniqueFailed); i >= 0 {
		columns := err.Error()[i+len(uniqueFailed):]
		if j := strings.Index(columns, " ("); j >= 0 {
			columns = columns[:j]
		}
		if constraint, ok := uniqueIndexes[columns]; ok {
			return domain.ConflictFor(constraint)
		}
		return &domain.ConflictError{Constraint: columns}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("failed to %s: %w", op, domain.ErrConflict)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
