package services

import (
	"log/slog"
	"time"

	"github.com/vncsmyrnk/election/internal/core/ports"
)

// Options carries the collaborators every service shares.
type Options struct {
	Clock   ports.Clock
	Logger  *slog.Logger
	Metrics *Metrics
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = NewMetrics(nil)
	}
	return o
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
