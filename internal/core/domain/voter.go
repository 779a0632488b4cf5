package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinVoterAge  = 18
	MaxFakeVotes = 100

	// FakeVoterName is stored on every injected fake voter.
	FakeVoterName = "Fake"
)

type Voter struct {
	ID         uuid.UUID  `json:"id"`
	ElectionID uuid.UUID  `json:"election_id"`
	Name       string     `json:"name"`
	Age        int        `json:"age"`
	Identifier *string    `json:"-"`
	IsFake     bool       `json:"is_fake"`
	VotedFor   *uuid.UUID `json:"-"` // set only on injected fake voters
	CreatedAt  time.Time  `json:"created_at"`
}

// NewFakeVoter builds an injected voter already counted for candidateID.
func NewFakeVoter(electionID, candidateID uuid.UUID, at time.Time) Voter {
	votedFor := candidateID
	return Voter{
		ID:         uuid.New(),
		ElectionID: electionID,
		Name:       FakeVoterName,
		IsFake:     true,
		VotedFor:   &votedFor,
		CreatedAt:  at,
	}
}
