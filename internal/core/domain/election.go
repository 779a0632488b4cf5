package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDraft  Status = "draft"
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// ParseStatus accepts only the three lifecycle states, case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusDraft, StatusOpen, StatusClosed:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusOpen, StatusClosed:
		return true
	}
	return false
}

const (
	// RunoffTitlePrefix is prepended to the title of every runoff election.
	RunoffTitlePrefix = "[Runoff] "
	// RunoffWindow is how long a runoff stays open after it is spawned.
	RunoffWindow = time.Hour
)

type Election struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Code        string     `json:"code"`
	Status      Status     `json:"status"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Round       int        `json:"round"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Expired reports whether an open election has passed its end date and is due
// for auto-close.
func (e *Election) Expired(now time.Time) bool {
	return e.Status == StatusOpen && e.EndDate != nil && now.After(*e.EndDate)
}

// AcceptingVotes is true while the election is open and not yet expired.
func (e *Election) AcceptingVotes(now time.Time) bool {
	return e.Status == StatusOpen && !e.Expired(now)
}

// ElectionFields holds an admin edit; nil fields are left untouched.
type ElectionFields struct {
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
}

// Apply returns a copy of e with the non-nil fields replaced.
func (f ElectionFields) Apply(e Election) Election {
	if f.Title != nil {
		e.Title = *f.Title
	}
	if f.Description != nil {
		e.Description = *f.Description
	}
	if f.StartDate != nil {
		e.StartDate = f.StartDate
	}
	if f.EndDate != nil {
		e.EndDate = f.EndDate
	}
	return e
}

// ValidateSchedule rejects an end date that is not after the start date.
func ValidateSchedule(start, end *time.Time) error {
	if start != nil && end != nil && !end.After(*start) {
		return ErrInvalidSchedule
	}
	return nil
}
