package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/vncsmyrnk/election/internal/core/domain"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// mapError turns constraint violations into domain errors and wraps the rest
// with the failed operation.
func mapError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return domain.ConflictFor(pqErr.Constraint)
		case foreignKeyViolation:
			return missingReference(pqErr.Constraint)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func missingReference(constraint string) error {
	switch {
	case strings.HasSuffix(constraint, "_candidate_id_fkey"), strings.HasSuffix(constraint, "_voted_for_fkey"):
		return domain.ErrCandidateNotFound
	case strings.HasSuffix(constraint, "_voter_id_fkey"):
		return domain.ErrVoterNotFound
	default:
		return domain.ErrElectionNotFound
	}
}
