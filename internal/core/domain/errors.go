package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrInternal   = errors.New("internal error")
)

// Uniqueness constraints enforced by every store.
const (
	ConstraintElectionCode    = "elections_code_key"
	ConstraintVoterIdentifier = "voters_election_identifier_key"
	ConstraintVoteVoter       = "votes_election_voter_key"
)

var (
	ErrElectionNotFound  = fmt.Errorf("election %w", ErrNotFound)
	ErrCandidateNotFound = fmt.Errorf("candidate %w", ErrNotFound)
	ErrVoterNotFound     = fmt.Errorf("voter %w", ErrNotFound)

	ErrNameRequired           = fmt.Errorf("%w: name is required", ErrValidation)
	ErrTitleRequired          = fmt.Errorf("%w: title is required", ErrValidation)
	ErrUnderage               = fmt.Errorf("%w: voter must be at least %d years old", ErrValidation, MinVoterAge)
	ErrInvalidStatus          = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrInvalidRound           = fmt.Errorf("%w: round must be at least 1", ErrValidation)
	ErrInvalidSchedule        = fmt.Errorf("%w: end date must be after start date", ErrValidation)
	ErrInvalidFakeVoteCount   = fmt.Errorf("%w: fake vote count must be between 1 and %d", ErrValidation, MaxFakeVotes)
	ErrCandidateNotInElection = fmt.Errorf("%w: candidate does not belong to this election", ErrValidation)
	ErrVoterNotInElection     = fmt.Errorf("%w: voter is not registered in this election", ErrValidation)

	ErrElectionDraft      = fmt.Errorf("%w: election has not been opened yet", ErrForbidden)
	ErrElectionClosed     = fmt.Errorf("%w: election is closed", ErrForbidden)
	ErrElectionNotOpen    = fmt.Errorf("%w: election is not open for voting", ErrForbidden)
	ErrCodeSpaceExhausted = fmt.Errorf("%w: could not generate a unique election code", ErrConflict)
)

var (
	ErrAlreadyVoted = &ConflictError{
		Constraint: ConstraintVoteVoter,
		Message:    "voter has already voted in this election",
	}
	ErrDuplicateIdentifier = &ConflictError{
		Constraint: ConstraintVoterIdentifier,
		Message:    "identifier is already registered in this election",
	}
	ErrDuplicateCode = &ConflictError{
		Constraint: ConstraintElectionCode,
		Message:    "election code is already in use",
	}
)

// ConflictError reports a violated uniqueness constraint.
type ConflictError struct {
	Constraint string
	Message    string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("conflict on %s", e.Constraint)
	}
	return e.Message
}

// Is matches ErrConflict and any ConflictError on the same constraint.
func (e *ConflictError) Is(target error) bool {
	if target == ErrConflict {
		return true
	}
	t, ok := target.(*ConflictError)
	return ok && t.Constraint == e.Constraint
}

// ConflictFor returns the canonical error for a constraint name.
func ConflictFor(constraint string) error {
	switch constraint {
	case ConstraintVoteVoter:
		return ErrAlreadyVoted
	case ConstraintVoterIdentifier:
		return ErrDuplicateIdentifier
	case ConstraintElectionCode:
		return ErrDuplicateCode
	default:
		return &ConflictError{Constraint: constraint}
	}
}
