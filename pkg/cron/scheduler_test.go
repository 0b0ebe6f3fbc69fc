package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	cutoff time.Time
	calls  int
	err    error
}

func (f *fakePruner) Prune(_ context.Context, cutoff time.Time) (int, error) {
	f.calls++
	f.cutoff = cutoff
	return 2, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_PruneArchive(t *testing.T) {
	pruner := &fakePruner{}
	s := NewScheduler(pruner, 720*time.Hour, "", testLogger())
	now := time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.pruneArchive()

	assert.Equal(t, 1, pruner.calls)
	assert.Equal(t, now.Add(-720*time.Hour), pruner.cutoff)

	pruner.err = errors.New("disk full")
	s.pruneArchive()
	assert.Equal(t, 2, pruner.calls)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(&fakePruner{}, time.Hour, "*/5 * * * *", testLogger())
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	<-s.Stop().Done()
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := NewScheduler(&fakePruner{}, time.Hour, "not a schedule", testLogger())
	assert.Error(t, s.Start())
}
