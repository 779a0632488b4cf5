package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type sweepService struct {
	electionRepo ports.ElectionRepository
	lifecycle    ports.LifecycleService
	clock        ports.Clock
}

func NewSweepService(electionRepo ports.ElectionRepository, lifecycle ports.LifecycleService, opts Options) ports.SweepService {
	opts = opts.withDefaults()
	return &sweepService{
		electionRepo: electionRepo,
		lifecycle:    lifecycle,
		clock:        opts.Clock,
	}
}

// CloseExpiredElections ticks every open election past its end date and
// returns how many this sweep closed. Errors from individual elections are
// joined; the rest of the sweep still runs.
func (s *sweepService) CloseExpiredElections(ctx context.Context) (int, error) {
	elections, err := s.electionRepo.ListExpiredElections(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to list expired elections: %w", err)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		closed int
	)
	errChan := make(chan error, len(elections))

	for _, election := range elections {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			result, err := s.lifecycle.Tick(ctx, id)
			if err != nil {
				errChan <- fmt.Errorf("failed to close election %s: %w", id, err)
				return
			}
			if result.Closed {
				mu.Lock()
				closed++
				mu.Unlock()
			}
		}(election.ID)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	return closed, errors.Join(errs...)
}
