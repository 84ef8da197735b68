package sio

import (
	"context"
	"testing"
	"time"

	"github.com/Comcast/fernspiel/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const endingBook = `
initial: speak
states:
  speak: {sounds: [speech, bed]}
  listen: {sounds: [bed]}
transitions:
  speak:
    on: {end: listen}
  listen:
    pick_up: speak
sounds:
  speech: {speech: Hello.}
  bed: {loop: true, file: bed.wav}
`

func awaiting(t *testing.T, en *Ending, state string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		s, have := en.Awaiting()
		return s == state && have == n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEndingTransition(t *testing.T) {
	b, err := core.ParseBook([]byte(endingBook))
	require.NoError(t, err)

	h := newHarness(t, b)
	en := NewEnding(h.engine.Events())
	h.engine.AddObserver(en)
	assert.Equal(t, "speak", h.start().To)
	awaiting(t, en, "speak", 1)

	ctx := context.Background()

	ended, err := en.Done(ctx, "", "bed")
	require.NoError(t, err)
	assert.False(t, ended, "looping sounds aren't awaited")

	ended, err = en.Done(ctx, "listen", "speech")
	require.NoError(t, err)
	assert.False(t, ended, "report for another state")

	ended, err = en.Done(ctx, "speak", "speech")
	require.NoError(t, err)
	assert.True(t, ended)

	tr := h.await()
	assert.Equal(t, "listen", tr.To)
	assert.Equal(t, "end", tr.Event)
	assert.Equal(t, core.FromState, tr.Origin)

	// Nothing to wait for in listen.
	awaiting(t, en, "listen", 0)
	ended, err = en.Done(ctx, "", "speech")
	require.NoError(t, err)
	assert.False(t, ended)

	// Re-entering waits again.
	assert.Equal(t, "speak", h.symbol(core.PickUp()).To)
	awaiting(t, en, "speak", 1)
	ended, err = en.Done(ctx, "", "speech")
	require.NoError(t, err)
	assert.True(t, ended)
	assert.Equal(t, "listen", h.await().To)
}

func TestEndingWaitsForEverySound(t *testing.T) {
	es := NewEvents(4)
	en := NewEnding(es)
	ctx := context.Background()

	en.Observe(ctx, &Transition{To: "talk", Commands: []*Command{
		{Op: OpStop, Sound: "intro"},
		{Op: OpPlay, Sound: "a"},
		{Op: OpPlay, Sound: "b"},
		{Op: OpRing, Ring: 1},
	}})

	ended, err := en.Done(ctx, "talk", "a")
	require.NoError(t, err)
	assert.False(t, ended)
	assert.Empty(t, drain(es))

	ended, err = en.Done(ctx, "talk", "a")
	require.NoError(t, err)
	assert.False(t, ended, "duplicate report")

	ended, err = en.Done(ctx, "talk", "b")
	require.NoError(t, err)
	assert.True(t, ended)
	assert.Equal(t, core.Symbols(core.End()), drain(es))
}

func TestParseDone(t *testing.T) {
	r, err := ParseDone([]byte(" talk\n"))
	require.NoError(t, err)
	assert.Equal(t, &DoneReport{Sound: "talk"}, r)

	r, err = ParseDone([]byte(`{"op":"play","state":"talk","sound":"talk","start_offset":250000000}`))
	require.NoError(t, err)
	assert.Equal(t, &DoneReport{State: "talk", Sound: "talk"}, r)

	_, err = ParseDone([]byte("  "))
	assert.ErrorIs(t, err, ErrNoSound)

	_, err = ParseDone([]byte(`{"state":"talk"}`))
	assert.ErrorIs(t, err, ErrNoSound)

	_, err = ParseDone([]byte(`{"sound":`))
	assert.Error(t, err)
}
