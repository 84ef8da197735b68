package sio

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Comcast/fernspiel/core"
	"github.com/Comcast/fernspiel/util/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	assert.Empty(t, ParseLine("  "))
	assert.Empty(t, ParseLine("# p1"))
	assert.Equal(t, []core.Event{core.Reset{}}, ParseLine(" Reset "))
	assert.Equal(t, []core.Event{core.Shutdown{}}, ParseLine("quit"))
	assert.Equal(t,
		core.Symbols(core.PickUp(), core.MustDial(1), core.Extension("rering"), core.HangUp()),
		ParseLine("p1 :rering h"))
}

func drain(es *Events) []core.Event {
	var acc []core.Event
	for {
		select {
		case ev := <-es.c:
			acc = append(acc, ev)
		default:
			return acc
		}
	}
}

func TestStdioRun(t *testing.T) {
	var out bytes.Buffer
	s := &Stdio{
		In:        strings.NewReader("# comment\np\n\n1 1\nreset\n"),
		Out:       &out,
		EchoInput: true,
		Tags:      true,
		HaltOnEOF: true,
		InputEOF:  make(chan bool),
	}
	es := NewEvents(16)

	require.NoError(t, s.Run(context.Background(), es))

	want := append(core.Symbols(core.PickUp(), core.MustDial(1), core.MustDial(1)),
		core.Reset{}, core.Shutdown{})
	assert.Equal(t, want, drain(es))
	assert.Contains(t, out.String(), " input 1 1")

	_, open := <-s.InputEOF
	assert.False(t, open)
}

func TestStdioNoHalt(t *testing.T) {
	s := &Stdio{
		In: strings.NewReader("h"),
	}
	es := NewEvents(4)
	require.NoError(t, s.Run(context.Background(), es))
	assert.Equal(t, core.Symbols(core.HangUp()), drain(es))
}

func TestStdioShellExpand(t *testing.T) {
	s := &Stdio{
		In:          strings.NewReader("p<<echo 12>>h\n"),
		ShellExpand: true,
	}
	es := NewEvents(8)
	require.NoError(t, s.Run(context.Background(), es))
	assert.Equal(t, core.Symbols(core.PickUp(), core.MustDial(1), core.MustDial(2), core.HangUp()), drain(es))
}

func TestStdioShellExpandFailure(t *testing.T) {
	var logged bytes.Buffer
	ctx := logger.ToContext(context.Background(), logger.New(&logged))

	s := &Stdio{
		In:          strings.NewReader("p<<exit 3>>\nh\n"),
		ShellExpand: true,
	}
	es := NewEvents(8)
	require.NoError(t, s.Run(ctx, es))
	assert.Equal(t, core.Symbols(core.HangUp()), drain(es))
	assert.Contains(t, logged.String(), "p<<exit 3>>")
}

func TestStdioObserve(t *testing.T) {
	var out bytes.Buffer
	s := &Stdio{Out: &out, Tags: true, PrintCommands: true}

	s.Observe(context.Background(), &Transition{To: "ring", Origin: core.FromInitial})
	require.NoError(t, s.Actuate(context.Background(), &Command{Op: OpRing, State: "ring", Ring: 0.5}))

	s.Observe(context.Background(), &Transition{From: "ring", To: "introduce", Origin: core.FromAny, Event: "pick_up"})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, " enter - -> ring (initial)", lines[0])
	assert.Equal(t, `   cmd {"op":"ring","state":"ring","ring":0.5}`, lines[1])
	assert.Equal(t, " enter ring -> introduce (any pick_up)", lines[2])
}
