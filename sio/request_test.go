package sio

import (
	"testing"

	"github.com/Comcast/fernspiel/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestFor(t *testing.T, src string) []core.Event {
	r, err := ParseRequest([]byte(src))
	require.NoError(t, err)
	evs, err := r.Events()
	require.NoError(t, err)
	return evs
}

func TestRequestRun(t *testing.T) {
	evs := requestFor(t, `{
            "invoke":"run",
            "with": {
                "initial": "lonelystate",
                "states":{
                    "lonelystate":{}
                },
                "transitions":{}
            }
        }`)
	require.Len(t, evs, 1)
	load, is := evs[0].(core.Load)
	require.True(t, is)
	assert.Len(t, load.Book.States(), 1)
	assert.Equal(t, "lonelystate", load.Book.InitialState().Id)
}

func TestRequestReset(t *testing.T) {
	assert.Equal(t, []core.Event{core.Reset{}}, requestFor(t, `{"invoke":"reset"}`))
	assert.Equal(t, []core.Event{core.Reset{}}, requestFor(t, `invoke: reset`))
}

func TestRequestDial(t *testing.T) {
	evs := requestFor(t, `{"invoke":"dial", "with": "9 \t\nh"}`)
	assert.Equal(t, core.Symbols(core.MustDial(9), core.HangUp()), evs)
}

func TestRequestShutdown(t *testing.T) {
	assert.Equal(t, []core.Event{core.Shutdown{}}, requestFor(t, `{"invoke":"shutdown"}`))
}

func TestRequestErrors(t *testing.T) {
	_, err := ParseRequest([]byte(`{"with":"1"}`))
	assert.ErrorIs(t, err, ErrNoInvoke)

	_, err = ParseRequest([]byte(`{"invoke":`))
	assert.Error(t, err)

	r, err := ParseRequest([]byte(`{"invoke":"dance"}`))
	require.NoError(t, err)
	_, err = r.Events()
	var unknown *UnknownInvoke
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "dance", unknown.Invoke)

	r, err = ParseRequest([]byte(`{"invoke":"dial","with":12}`))
	require.NoError(t, err)
	_, err = r.Events()
	assert.Error(t, err)

	r, err = ParseRequest([]byte(`{"invoke":"run","with":{"initial":"x"}}`))
	require.NoError(t, err)
	_, err = r.Events()
	var fault *core.LoadFault
	assert.ErrorAs(t, err, &fault)

	r, err = ParseRequest([]byte(`{"invoke":"run"}`))
	require.NoError(t, err)
	_, err = r.Events()
	assert.Error(t, err)
}

func TestRequestRunYAML(t *testing.T) {
	evs := requestFor(t, `
invoke: run
with:
  initial: a
  states: {a: {}, b: {}}
  transitions:
    a:
      pick_up: b
      on: {end: b}
    any:
      hang_up: a
`)
	require.Len(t, evs, 1)
	b := evs[0].(core.Load).Book

	to, have := b.TransitionsFor(b.Initial()).Target(core.PickUp())
	require.True(t, have)
	assert.Equal(t, "b", b.States()[to].Id)

	_, have = b.TransitionsFor(b.Initial()).Target(core.End())
	assert.True(t, have)

	_, have = b.Universal().Target(core.HangUp())
	assert.True(t, have)
}

func TestRequestDialForms(t *testing.T) {
	want := core.Symbols(core.PickUp(), core.MustDial(1), core.HangUp())
	assert.Equal(t, want, requestFor(t, `{"invoke":"dial","with":"p1h"}`))
	assert.Equal(t, want, requestFor(t, "invoke: dial\nwith: p1h\n"))
}

func TestRequestWithDecodedMaps(t *testing.T) {
	r := &Request{
		Invoke: InvokeRun,
		With: map[interface{}]interface{}{
			"initial": "a",
			"states": map[interface{}]interface{}{
				"a": map[interface{}]interface{}{"ring": 1},
			},
		},
	}
	evs, err := r.Events()
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, 1.0, evs[0].(core.Load).Book.InitialState().Ring)
}
