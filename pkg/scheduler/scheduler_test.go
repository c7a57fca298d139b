package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_InvalidSpec(t *testing.T) {
	s := New(time.UTC)
	_, err := s.Add("reconcile", "not a cron spec", func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestAdd_RunsWithSchedulerContext(t *testing.T) {
	s := New(time.UTC)

	var got context.Context
	id, err := s.Add("reconcile", "0 2 * * *", func(ctx context.Context) error {
		got = ctx
		return errors.New("boom")
	})
	require.NoError(t, err)

	s.cron.Entry(id).WrappedJob.Run()
	require.NotNil(t, got)
	assert.NoError(t, got.Err())

	s.Stop(context.Background())
	assert.ErrorIs(t, got.Err(), context.Canceled)
}

func TestNext_UsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Lisbon")
	require.NoError(t, err)

	s := New(loc)
	id, err := s.Add("dispatch", "0 8 * * *", func(context.Context) error { return nil })
	require.NoError(t, err)

	s.Start()
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool { return !s.Next(id).IsZero() }, time.Second, 10*time.Millisecond)
	next := s.Next(id).In(loc)
	assert.Equal(t, 8, next.Hour())
	assert.Equal(t, 0, next.Minute())
}

func TestRecoverFromPanic(t *testing.T) {
	s := New(nil)
	id, err := s.Add("panicky", "@daily", func(context.Context) error { panic("bad") })
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.cron.Entry(id).WrappedJob.Run() })
}
