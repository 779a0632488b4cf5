package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

func TestDetectFraud(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, cs := f.openElection(t, "Suspicious", "A", "B")

	// 1. Three real voters, all for A
	f.votes(t, e.ID, cs[0].ID, 3)

	report, err := f.svc.Fraud.DetectFraud(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.RealVoterCount)
	for _, c := range report.Candidates {
		assert.False(t, c.FraudSuspected, "3 votes against 3 voters is not fraud")
	}

	// 2. One stuffed ballot pushes A past the real voter count
	require.NoError(t, f.svc.Votes.InjectFakeVotes(ctx, ports.FakeVotesInput{ElectionID: e.ID, CandidateID: cs[0].ID, Count: 1}))

	report, err = f.svc.Fraud.DetectFraud(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.RealVoterCount, "fake voters are not real voters")
	require.Len(t, report.Candidates, 2)
	assert.Equal(t, "A", report.Candidates[0].Name)
	assert.Equal(t, int64(4), report.Candidates[0].Votes)
	assert.True(t, report.Candidates[0].FraudSuspected)
	assert.False(t, report.Candidates[1].FraudSuspected)

	stored, err := f.store.GetCandidateByID(ctx, cs[0].ID)
	require.NoError(t, err)
	assert.True(t, stored.FraudSuspected, "flag is persisted")
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.fraudFlagsRaised))

	// 3. Flags clear once the count is back in range
	f.votes(t, e.ID, cs[1].ID, 1)
	report, err = f.svc.Fraud.DetectFraud(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, report.Candidates[0].FraudSuspected)

	stored, err = f.store.GetCandidateByID(ctx, cs[0].ID)
	require.NoError(t, err)
	assert.False(t, stored.FraudSuspected)
}

func TestDetectFraudUnknownElection(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Fraud.DetectFraud(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)
}
