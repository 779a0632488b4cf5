package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the engine counters. Built with a nil registerer they are live
// but unregistered.
type Metrics struct {
	votesRecorded       prometheus.Counter
	voteConflicts       prometheus.Counter
	fakeVotesInjected   prometheus.Counter
	electionsAutoClosed prometheus.Counter
	runoffsCreated      prometheus.Counter
	runoffFailures      prometheus.Counter
	codeCollisions      prometheus.Counter
	fraudFlagsRaised    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		votesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "election_votes_recorded_total",
			Help: "votes accepted by the vote recorder",
		}),
		voteConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "election_vote_conflicts_total",
			Help: "votes rejected because the voter had already voted",
		}),
		fakeVotesInjected: factory.NewCounter(prometheus.CounterOpts{
			Name: "election_fake_votes_injected_total",
			Help: "synthetic votes added through fake-vote injection",
		}),
		electionsAutoClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "election_auto_closed_total",
			Help: "elections closed because their end date passed",
		}),
		runoffsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "election_runoffs_created_total",
			Help: "runoff elections spawned from ties",
		}),
		runoffFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "election_runoff_failures_total",
			Help: "runoff creations that failed and were swallowed",
		}),
		codeCollisions: factory.NewCounter(prometheus.CounterOpts{
			Name: "election_code_collisions_total",
			Help: "generated election codes that were already taken",
		}),
		fraudFlagsRaised: factory.NewCounter(prometheus.CounterOpts{
			Name: "election_fraud_flags_raised_total",
			Help: "candidates flagged by the fraud heuristic",
		}),
	}
}
