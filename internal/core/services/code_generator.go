package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

const maxCodeAttempts = 10

// codeGenerator hands out election codes. The existence check only saves a
// round trip; the store's unique constraint decides, and a duplicate on write
// counts as one more collision.
type codeGenerator struct {
	repo    ports.ElectionRepository
	random  func() (string, error)
	metrics *Metrics
}

func newCodeGenerator(repo ports.ElectionRepository, metrics *Metrics) *codeGenerator {
	return &codeGenerator{
		repo:    repo,
		random:  randomCode,
		metrics: metrics,
	}
}

func randomCode() (string, error) {
	alphabetSize := big.NewInt(int64(len(domain.CodeAlphabet)))
	code := make([]byte, domain.CodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		code[i] = domain.CodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// assign generates codes until apply stores one, giving up after
// maxCodeAttempts collisions.
func (g *codeGenerator) assign(ctx context.Context, apply func(code string) error) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := g.random()
		if err != nil {
			return "", fmt.Errorf("failed to generate election code: %w", err)
		}

		exists, err := g.repo.ElectionCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if exists {
			g.metrics.codeCollisions.Inc()
			continue
		}

		err = apply(code)
		if errors.Is(err, domain.ErrDuplicateCode) {
			g.metrics.codeCollisions.Inc()
			continue
		}
		if err != nil {
			return "", err
		}
		return code, nil
	}
	return "", domain.ErrCodeSpaceExhausted
}
