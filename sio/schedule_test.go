package sio

import (
	"context"
	"testing"
	"time"

	"github.com/Comcast/fernspiel/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedule(t *testing.T) {
	s, err := NewSchedule("0 */5 * * * * *", "rering")
	require.NoError(t, err)
	assert.Equal(t, core.Extension("rering"), s.Symbol)

	from := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC), s.Next(from))

	_, err = NewSchedule("every now and then", "rering")
	assert.Error(t, err)

	_, err = NewSchedule("* * * * *", " ")
	assert.ErrorIs(t, err, core.ErrEmptySymbol)
}

func TestScheduleRun(t *testing.T) {
	s, err := NewSchedule("* * * * * * *", "p")
	require.NoError(t, err)

	es := NewEvents(4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, es)
	}()

	ev, err := es.Next(withTimeout(t, 3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, core.SymbolEvent{Symbol: core.PickUp()}, ev)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestScheduleStopsWhenClosed(t *testing.T) {
	s, err := NewSchedule("0 0 0 1 1 * 2099", "p")
	require.NoError(t, err)

	es := NewEvents(1)
	es.Close()
	assert.NoError(t, s.Run(context.Background(), es))
}

func withTimeout(t *testing.T, d time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}
