package sio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Comcast/fernspiel/core"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func state(t *testing.T, b *core.Book, id string) *core.State {
	s, err := b.Lookup(id)
	require.NoError(t, err)
	return s
}

func TestActionsCommands(t *testing.T) {
	b := loadFixture(t)
	as := NewActions(nil)

	cs := as.Commands(nil, state(t, b, "introduce"))
	require.Equal(t, []string{"play:intro", "play:hum"}, ops(cs))
	intro := cs[0]
	assert.True(t, intro.Loop)
	assert.Equal(t, 0.8, intro.Volume)
	assert.Equal(t, 500*time.Millisecond, intro.Backoff)
	assert.Equal(t, "introduce", intro.State)
	assert.Equal(t, "hum.wav", cs[1].File)
	assert.Zero(t, intro.StartOffset)

	cs = as.Commands(state(t, b, "quiet"), state(t, b, "talk"))
	require.Equal(t, []string{"play:talk", "play:hum"}, ops(cs))
	assert.Equal(t, 250*time.Millisecond, cs[0].StartOffset)

	cs = as.Commands(state(t, b, "talk"), state(t, b, "goodbye"))
	assert.Equal(t, []string{"stop:talk", "stop:hum", "play:bye"}, ops(cs))

	// Stops come before plays and the ring comes last.
	cs = as.Commands(state(t, b, "quiet"), state(t, b, "ring"))
	assert.Equal(t, []string{"stop:hum", "ring:"}, ops(cs))

	cs = as.Commands(state(t, b, "pause"), state(t, b, "pause"))
	assert.Empty(t, cs)
}

func TestQueueDelivers(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	record := func(tag string) Actuator {
		return ActuatorFunc(func(ctx context.Context, c *Command) error {
			mu.Lock()
			got = append(got, tag+":"+string(c.Op))
			mu.Unlock()
			return nil
		})
	}
	failing := ActuatorFunc(func(ctx context.Context, c *Command) error {
		return errors.New("no speaker")
	})

	q := NewQueue(4, nil, record("a"), failing, record("b"))
	as := NewActions(q)

	b := loadFixture(t)
	as.Apply(context.Background(), state(t, b, "quiet"), state(t, b, "ring"))
	q.Close()

	require.NoError(t, q.Run(context.Background()))
	assert.Equal(t, []string{"a:stop", "b:stop", "a:ring", "b:ring"}, got)
}

func TestQueueDropsWhenFull(t *testing.T) {
	m := NewMetrics(nil)
	q := NewQueue(1, m)

	assert.True(t, q.Enqueue(&Command{Op: OpRing}))
	assert.False(t, q.Enqueue(&Command{Op: OpRing}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.droppedCommand))

	q.Close()
	assert.False(t, q.Enqueue(&Command{Op: OpRing}))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.droppedCommand))
}

func TestQueueRunCanceled(t *testing.T) {
	q := NewQueue(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Run(ctx), context.Canceled)
}
