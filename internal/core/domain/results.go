package domain

import (
	"math"
	"slices"
	"strconv"

	"github.com/google/uuid"
)

type CandidateResult struct {
	Candidate
	Percentage string `json:"percentage"`
}

// Tally is the derived view of an election's candidate counters.
type Tally struct {
	Candidates     []CandidateResult
	TotalVotes     int64
	IsTie          bool
	TiedCandidates []CandidateResult
	Leader         *CandidateResult
}

// Results is what a results read returns. Runoff is set only when this read
// closed the election on a tie and spawned a runoff.
type Results struct {
	Election       Election          `json:"election"`
	Candidates     []CandidateResult `json:"candidates"`
	TotalVotes     int64             `json:"totalVotes"`
	IsTie          bool              `json:"isTie"`
	TiedCandidates []CandidateResult `json:"tiedCandidates"`
	Leader         *CandidateResult  `json:"leader"`
	Runoff         *Election         `json:"runoff,omitempty"`
}

// NewResults combines an election with its tally.
func NewResults(e Election, t Tally) Results {
	return Results{
		Election:       e,
		Candidates:     t.Candidates,
		TotalVotes:     t.TotalVotes,
		IsTie:          t.IsTie,
		TiedCandidates: t.TiedCandidates,
		Leader:         t.Leader,
	}
}

// Percentage formats votes/total as a percentage with one decimal place.
// Halves round up.
func Percentage(votes, total int64) string {
	if total <= 0 {
		return "0.0"
	}
	tenths := math.Round(float64(votes) * 1000 / float64(total))
	return strconv.FormatFloat(tenths/10, 'f', 1, 64)
}

// SortCandidates orders by votes descending, then by who reached the count
// first, then by creation ordinal. Candidates without votes sort after those
// with a timestamp.
func SortCandidates(cs []Candidate) {
	slices.SortStableFunc(cs, compareCandidates)
}

func compareCandidates(a, b Candidate) int {
	if a.Votes != b.Votes {
		if a.Votes > b.Votes {
			return -1
		}
		return 1
	}
	switch {
	case a.LastVoteTimestamp != nil && b.LastVoteTimestamp == nil:
		return -1
	case a.LastVoteTimestamp == nil && b.LastVoteTimestamp != nil:
		return 1
	case a.LastVoteTimestamp != nil && b.LastVoteTimestamp != nil:
		if c := a.LastVoteTimestamp.Compare(*b.LastVoteTimestamp); c != 0 {
			return c
		}
	}
	return a.Position - b.Position
}

// ComputeTally derives percentages, the tie set and the leader. Display order
// never affects tie detection: every candidate on the maximum count is tied.
func ComputeTally(candidates []Candidate) Tally {
	sorted := slices.Clone(candidates)
	SortCandidates(sorted)

	var total int64
	for _, c := range sorted {
		total += c.Votes
	}

	t := Tally{
		Candidates:     make([]CandidateResult, 0, len(sorted)),
		TotalVotes:     total,
		TiedCandidates: []CandidateResult{},
	}
	for _, c := range sorted {
		t.Candidates = append(t.Candidates, CandidateResult{
			Candidate:  c,
			Percentage: Percentage(c.Votes, total),
		})
	}

	if len(t.Candidates) < 2 || t.Candidates[0].Votes == 0 {
		return t
	}

	maxVotes := t.Candidates[0].Votes
	var tied []CandidateResult
	for _, c := range t.Candidates {
		if c.Votes == maxVotes {
			tied = append(tied, c)
		}
	}
	if len(tied) > 1 {
		t.IsTie = true
		t.TiedCandidates = tied
		return t
	}

	leader := t.Candidates[0]
	t.Leader = &leader
	return t
}

type FraudReport struct {
	ElectionID     uuid.UUID   `json:"election_id"`
	RealVoterCount int64       `json:"realVoterCount"`
	Candidates     []Candidate `json:"candidates"`
}

// FraudSuspected is the ballot-stuffing heuristic: more votes than real voters.
func FraudSuspected(c Candidate, realVoterCount int64) bool {
	return c.Votes > realVoterCount
}
