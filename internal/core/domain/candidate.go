package domain

import (
	"time"

	"github.com/google/uuid"
)

// Palette is the fixed set of chart colors handed out to candidates.
var Palette = []string{
	"#6366f1", "#8b5cf6", "#ec4899", "#f43f5e", "#f97316",
	"#eab308", "#22c55e", "#14b8a6", "#0ea5e9", "#3b82f6",
}

// ColorForPosition maps a 1-based ordinal within an election to a palette color.
func ColorForPosition(position int) string {
	if position < 1 {
		position = 1
	}
	return Palette[(position-1)%len(Palette)]
}

type Candidate struct {
	ID                uuid.UUID  `json:"id"`
	ElectionID        uuid.UUID  `json:"election_id"`
	Name              string     `json:"name"`
	Position          int        `json:"position"`
	Votes             int64      `json:"votes"`
	ColorCode         string     `json:"color_code"`
	LastVoteTimestamp *time.Time `json:"last_vote_timestamp,omitempty"`
	FraudSuspected    bool       `json:"fraud_suspected"`
	CreatedAt         time.Time  `json:"created_at"`
}
