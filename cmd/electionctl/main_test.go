package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/election/internal/adapters/repository"
	"github.com/vncsmyrnk/election/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/election/internal/config"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type nopCloser struct{ closed *int }

func (c nopCloser) Close() error {
	*c.closed++
	return nil
}

// sharedStore hands the same in-memory store to every invocation so state
// survives between commands.
func sharedStore(t *testing.T) (storeOpener, *int) {
	t.Helper()
	store := memory.New()
	closed := new(int)
	return func(context.Context, *config.Config, *slog.Logger) (ports.ElectionStore, io.Closer, error) {
		return store, nopCloser{closed: closed}, nil
	}, closed
}

func run(t *testing.T, open storeOpener, out any, args ...string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&app{open: open})
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	require.NoError(t, cmd.ExecuteContext(context.Background()), stderr.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(stdout.Bytes(), out), stdout.String())
	}
}

func TestElectionLifecycleCommands(t *testing.T) {
	t.Chdir(t.TempDir())
	open, closed := sharedStore(t)

	// 1. Create an election with a voting window
	var e domain.Election
	run(t, open, &e, "elections", "create", "--title", "Board", "--duration", "1h")
	assert.Equal(t, "Board", e.Title)
	assert.Equal(t, domain.StatusDraft, e.Status)
	require.NotNil(t, e.EndDate)

	// 2. Add candidates and open it
	var a, b domain.Candidate
	run(t, open, &a, "candidates", "add", e.ID.String(), "Alice")
	run(t, open, &b, "candidates", "add", e.ID.String(), "Bob")
	assert.Equal(t, 2, b.Position)

	var opened domain.Election
	run(t, open, &opened, "elections", "status", e.ID.String(), "open")
	assert.Equal(t, domain.StatusOpen, opened.Status)

	// 3. Read-only views
	var list []domain.Election
	run(t, open, &list, "elections", "list")
	require.Len(t, list, 1)

	var candidates []domain.Candidate
	run(t, open, &candidates, "candidates", "list", e.ID.String())
	assert.Len(t, candidates, 2)

	var results domain.Results
	run(t, open, &results, "results", e.ID.String())
	assert.Equal(t, domain.StatusOpen, results.Election.Status)
	assert.Zero(t, results.TotalVotes)

	var report domain.FraudReport
	run(t, open, &report, "fraud", e.ID.String())
	assert.Zero(t, report.RealVoterCount)

	var tick map[string]any
	run(t, open, &tick, "tick", e.ID.String())
	assert.Equal(t, false, tick["closed"])

	var sweep map[string]int
	run(t, open, &sweep, "sweep")
	assert.Zero(t, sweep["closed"])

	// 4. Rotate the code, then clean up
	var code map[string]string
	run(t, open, &code, "elections", "regenerate-code", e.ID.String())
	assert.NotEqual(t, e.Code, code["code"])

	run(t, open, nil, "candidates", "delete", a.ID.String())
	run(t, open, nil, "elections", "delete", e.ID.String())
	run(t, open, &list, "elections", "list")
	assert.Empty(t, list)

	assert.Equal(t, 14, *closed, "store is closed after every command")
}

func TestCommandErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	open, _ := sharedStore(t)

	cmd := newRootCommand(&app{open: open})
	cmd.SetArgs([]string{"elections", "status", "not-a-uuid", "open"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	assert.Error(t, cmd.ExecuteContext(context.Background()))

	cmd = newRootCommand(&app{open: open})
	cmd.SetArgs([]string{"elections", "create"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	assert.Error(t, cmd.ExecuteContext(context.Background()), "--title is required")

	cmd = newRootCommand(&app{open: open})
	cmd.SetArgs([]string{"--store", "cassandra", "elections", "list"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	assert.Error(t, cmd.ExecuteContext(context.Background()))
}

func TestStoreFlagSelectsDriver(t *testing.T) {
	t.Chdir(t.TempDir())

	var list []domain.Election
	run(t, repository.Open, &list, "--store", "memory", "elections", "list")
	assert.Empty(t, list)
}
