package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

// VotingHandler serves the anonymous voter flow: join by code, register,
// list candidates, vote and read results.
type VotingHandler struct {
	elections  ports.ElectionService
	voters     ports.VoterService
	candidates ports.CandidateService
	votes      ports.VoteService
	results    ports.ResultsService
}

func NewVotingHandler(
	elections ports.ElectionService,
	voters ports.VoterService,
	candidates ports.CandidateService,
	votes ports.VoteService,
	results ports.ResultsService,
) *VotingHandler {
	return &VotingHandler{
		elections:  elections,
		voters:     voters,
		candidates: candidates,
		votes:      votes,
		results:    results,
	}
}

type joinRequest struct {
	Code string `json:"code"`
}

func (h *VotingHandler) JoinElection(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decode(w, r, &req) {
		return
	}

	election, err := h.elections.JoinElection(r.Context(), req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

type registerRequest struct {
	Name       string `json:"name"`
	Age        int    `json:"age"`
	Identifier string `json:"identifier"`
}

func (h *VotingHandler) RegisterVoter(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	voter, err := h.voters.RegisterVoter(r.Context(), ports.RegisterVoterInput{
		ElectionID: electionID,
		Name:       req.Name,
		Age:        req.Age,
		Identifier: req.Identifier,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, voter)
}

func (h *VotingHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	candidates, err := h.candidates.ListCandidates(r.Context(), electionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

type voteRequest struct {
	VoterID     uuid.UUID `json:"voterId"`
	CandidateID uuid.UUID `json:"candidateId"`
}

func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req voteRequest
	if !decode(w, r, &req) {
		return
	}
	if req.VoterID == uuid.Nil || req.CandidateID == uuid.Nil {
		badRequest(w, "voterId and candidateId are required")
		return
	}

	err := h.votes.CastVote(r.Context(), ports.VoteInput{
		ElectionID:  electionID,
		VoterID:     req.VoterID,
		CandidateID: req.CandidateID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

// GetResults may close an expired election as a side effect.
func (h *VotingHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	results, err := h.results.GetResults(r.Context(), electionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}
