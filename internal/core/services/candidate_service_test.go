package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/election/internal/core/domain"
)

func TestAddCandidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, cs := f.openElection(t, "Candidates", "A", "B")

	assert.Equal(t, 1, cs[0].Position)
	assert.Equal(t, domain.Palette[1], cs[1].ColorCode)

	_, err := f.svc.Candidates.AddCandidate(ctx, e.ID, "  ")
	assert.ErrorIs(t, err, domain.ErrNameRequired)

	_, err = f.svc.Candidates.AddCandidate(ctx, uuid.New(), "Ghost")
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)

	_, err = f.svc.Elections.SetElectionStatus(ctx, e.ID, "closed")
	require.NoError(t, err)
	_, err = f.svc.Candidates.AddCandidate(ctx, e.ID, "Late")
	assert.ErrorIs(t, err, domain.ErrElectionClosed)
}

func TestListCandidatesSorted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, cs := f.openElection(t, "Sorted", "A", "B", "C")
	f.votes(t, e.ID, cs[2].ID, 2)
	f.votes(t, e.ID, cs[1].ID, 1)

	list, err := f.svc.Candidates.ListCandidates(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "C", list[0].Name)
	assert.Equal(t, "B", list[1].Name)
	assert.Equal(t, "A", list[2].Name)
}

func TestDeleteCandidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, cs := f.openElection(t, "Delete", "A", "B")
	f.votes(t, e.ID, cs[0].ID, 2)

	require.NoError(t, f.svc.Candidates.DeleteCandidate(ctx, cs[0].ID))

	n, err := f.store.CountVotes(ctx, e.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.ErrorIs(t, f.svc.Candidates.DeleteCandidate(ctx, cs[0].ID), domain.ErrCandidateNotFound)
}
