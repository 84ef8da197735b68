package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(t *testing.T, b *Book, from string, ev Event, armed Generation) *Stride {
	t.Helper()
	stride, err := b.Step(index(t, b, from), ev, armed)
	require.NoError(t, err)
	require.NotNil(t, stride)
	assert.Equal(t, ev, stride.Consumed)
	return stride
}

func assertTo(t *testing.T, b *Book, stride *Stride, id string, origin Origin) {
	t.Helper()
	require.True(t, stride.Transitioned(), "reason %s", stride.Reason)
	assert.Equal(t, id, b.States()[stride.To].Id)
	assert.Equal(t, origin, stride.Origin)
}

func TestStepTimeoutSelfLoop(t *testing.T) {
	b := loadFixture(t)

	stride := step(t, b, "ring", TimeoutElapsed{Generation: 7}, 7)
	assertTo(t, b, stride, "ring", FromTimeout)
	assert.Equal(t, stride.From, stride.To)
}

func TestStepStaleTimeout(t *testing.T) {
	b := loadFixture(t)

	for _, g := range []Generation{1, 2, 3, 5} {
		stride := step(t, b, "introduce", TimeoutElapsed{Generation: g}, 4)
		assert.Equal(t, Stale, stride.Reason)
		assert.False(t, stride.Transitioned())
		assert.Equal(t, stride.From, stride.To)
	}

	// Nothing is armed at all.
	stride := step(t, b, "talk", TimeoutElapsed{Generation: 4}, 0)
	assert.Equal(t, Stale, stride.Reason)
}

func TestStepDial(t *testing.T) {
	b := loadFixture(t)

	stride := step(t, b, "introduce", SymbolEvent{MustDial(1)}, 3)
	assertTo(t, b, stride, "talk", FromState)

	stride = step(t, b, "talk", SymbolEvent{MustDial(1)}, 0)
	assertTo(t, b, stride, "quiet", FromState)

	stride = step(t, b, "quiet", SymbolEvent{MustDial(1)}, 0)
	assertTo(t, b, stride, "talk", FromState)
}

func TestStepUnhandledDigit(t *testing.T) {
	b := loadFixture(t)

	stride := step(t, b, "talk", SymbolEvent{MustDial(7)}, 0)
	assert.Equal(t, Unhandled, stride.Reason)
	assert.Empty(t, stride.Origin)

	stride = step(t, b, "talk", SymbolEvent{Extension("rering")}, 0)
	assert.Equal(t, Unhandled, stride.Reason)
}

func TestStepUniversalHangUp(t *testing.T) {
	b := loadFixture(t)

	stride := step(t, b, "pause", SymbolEvent{HangUp()}, 9)
	assertTo(t, b, stride, "pause", FromAny)
}

func TestStepUniversalPickUpEverywhere(t *testing.T) {
	b := loadFixture(t)

	for _, s := range b.States() {
		stride := step(t, b, s.Id, SymbolEvent{PickUp()}, 0)
		assertTo(t, b, stride, "introduce", FromAny)
	}
}

func TestStepStateShadowsAny(t *testing.T) {
	b, err := ParseBook([]byte(`
initial: a
states: {a: {}, b: {}, c: {}}
transitions:
  any: {pick_up: b}
  a: {pick_up: c}
`))
	require.NoError(t, err)

	stride, err := b.Step(index(t, b, "a"), SymbolEvent{PickUp()}, 0)
	require.NoError(t, err)
	assertTo(t, b, stride, "c", FromState)

	stride, err = b.Step(index(t, b, "c"), SymbolEvent{PickUp()}, 0)
	require.NoError(t, err)
	assertTo(t, b, stride, "b", FromAny)
}

func TestStepTerminalAcceptsRules(t *testing.T) {
	b := loadFixture(t)

	// goodbye is terminal, has a zero delay (so no timeout) and
	// only universal rules.
	stride := step(t, b, "goodbye", TimeoutElapsed{Generation: 1}, 1)
	assert.Equal(t, Unhandled, stride.Reason)

	stride = step(t, b, "goodbye", SymbolEvent{HangUp()}, 0)
	assertTo(t, b, stride, "pause", FromAny)
}

func TestStepShutdownAndReset(t *testing.T) {
	b := loadFixture(t)

	stride := step(t, b, "talk", Shutdown{}, 0)
	assert.Equal(t, Stopped, stride.Reason)
	assert.False(t, stride.Transitioned())

	stride = step(t, b, "talk", Reset{}, 0)
	assertTo(t, b, stride, "ring", FromReset)
}

func TestStepBadCurrent(t *testing.T) {
	b := loadFixture(t)

	_, err := b.Step(99, SymbolEvent{PickUp()}, 0)
	var fault *InternalConsistencyFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, 99, fault.Index)
}
