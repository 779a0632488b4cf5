package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type AdminHandler struct {
	password   string
	elections  ports.ElectionService
	candidates ports.CandidateService
	votes      ports.VoteService
	fraud      ports.FraudService
	lifecycle  ports.LifecycleService
	sweep      ports.SweepService
}

func NewAdminHandler(
	password string,
	elections ports.ElectionService,
	candidates ports.CandidateService,
	votes ports.VoteService,
	fraud ports.FraudService,
	lifecycle ports.LifecycleService,
	sweep ports.SweepService,
) *AdminHandler {
	return &AdminHandler{
		password:   password,
		elections:  elections,
		candidates: candidates,
		votes:      votes,
		fraud:      fraud,
		lifecycle:  lifecycle,
		sweep:      sweep,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	if !passwordMatches(req.Password, h.password) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "wrong password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AdminHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.elections.ListElections(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if elections == nil {
		elections = []*domain.Election{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"elections": elections})
}

type createElectionRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Round       int        `json:"round"`
}

func (h *AdminHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req createElectionRequest
	if !decode(w, r, &req) {
		return
	}

	election, err := h.elections.CreateElection(r.Context(), ports.CreateElectionInput{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Round:       req.Round,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, election)
}

func (h *AdminHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	election, err := h.elections.GetElection(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

type updateElectionRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

func (h *AdminHandler) UpdateElection(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req updateElectionRequest
	if !decode(w, r, &req) {
		return
	}

	election, err := h.elections.UpdateElection(r.Context(), id, ports.UpdateElectionInput(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

func (h *AdminHandler) DeleteElection(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.elections.DeleteElection(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandler) SetElectionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}

	election, err := h.elections.SetElectionStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

func (h *AdminHandler) RegenerateCode(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	code, err := h.elections.RegenerateCode(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

type addCandidateRequest struct {
	Name string `json:"name"`
}

func (h *AdminHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req addCandidateRequest
	if !decode(w, r, &req) {
		return
	}

	candidate, err := h.candidates.AddCandidate(r.Context(), electionID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, candidate)
}

func (h *AdminHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.candidates.DeleteCandidate(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type fakeVotesRequest struct {
	CandidateID uuid.UUID `json:"candidateId"`
	Count       int       `json:"count"`
}

func (h *AdminHandler) InjectFakeVotes(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req fakeVotesRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.votes.InjectFakeVotes(r.Context(), ports.FakeVotesInput{
		ElectionID:  electionID,
		CandidateID: req.CandidateID,
		Count:       req.Count,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "count": req.Count})
}

func (h *AdminHandler) DetectFraud(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	report, err := h.fraud.DetectFraud(r.Context(), electionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type tickResponse struct {
	Election *domain.Election `json:"election"`
	Closed   bool             `json:"closed"`
	Runoff   *domain.Election `json:"runoff,omitempty"`
}

func (h *AdminHandler) Tick(w http.ResponseWriter, r *http.Request) {
	electionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.lifecycle.Tick(r.Context(), electionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tickResponse(*result))
}

func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	closed, err := h.sweep.CloseExpiredElections(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"closed": closed})
}
