package services

import "github.com/vncsmyrnk/election/internal/core/ports"

// Services is the full engine wired over one store.
type Services struct {
	Elections  ports.ElectionService
	Candidates ports.CandidateService
	Voters     ports.VoterService
	Votes      ports.VoteService
	Lifecycle  ports.LifecycleService
	Results    ports.ResultsService
	Fraud      ports.FraudService
	Sweep      ports.SweepService
}

func New(store ports.ElectionStore, opts Options) *Services {
	opts = opts.withDefaults()
	runoffs := NewRunoffFactory(store, store, opts)
	lifecycle := NewLifecycleService(store, store, runoffs, opts)
	return &Services{
		Elections:  NewElectionService(store, opts),
		Candidates: NewCandidateService(store, store, opts),
		Voters:     NewVoterService(store, store, opts),
		Votes:      NewVoteService(store, store, store, store, opts),
		Lifecycle:  lifecycle,
		Results:    NewResultsService(lifecycle, store),
		Fraud:      NewFraudService(store, store, store, opts),
		Sweep:      NewSweepService(store, lifecycle, opts),
	}
}
