package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
}

func NewHandler(voting *VotingHandler, admin *AdminHandler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{
				"status": "ok",
				"time":   time.Now().UTC().Format(time.RFC3339),
			})
		})

		r.Route("/elections", func(r chi.Router) {
			r.Post("/join", voting.JoinElection)
			r.Route("/{id}", func(r chi.Router) {
				r.Post("/register", voting.RegisterVoter)
				r.Get("/candidates", voting.ListCandidates)
				r.Post("/vote", voting.CastVote)
				r.Get("/results", voting.GetResults)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", admin.Login)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin(admin.password))

				r.Post("/sweep", admin.Sweep)
				r.Delete("/candidates/{id}", admin.DeleteCandidate)

				r.Route("/elections", func(r chi.Router) {
					r.Get("/", admin.ListElections)
					r.Post("/", admin.CreateElection)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", admin.GetElection)
						r.Patch("/", admin.UpdateElection)
						r.Delete("/", admin.DeleteElection)
						r.Patch("/status", admin.SetElectionStatus)
						r.Post("/regenerate-code", admin.RegenerateCode)
						r.Post("/candidates", admin.AddCandidate)
						r.Post("/fake-votes", admin.InjectFakeVotes)
						r.Get("/fraud", admin.DetectFraud)
						r.Post("/tick", admin.Tick)
					})
				})
			})
		})
	})

	return r
}
