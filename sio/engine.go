/* Copyright 2026 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/Comcast/fernspiel/core"
	"github.com/Comcast/fernspiel/util/logger"
)

// Transition is what observers hear about every time the Engine
// enters a state.
type Transition struct {
	At         time.Time       `json:"at"`
	From       string          `json:"from,omitempty"`
	To         string          `json:"to"`
	Event      string          `json:"event,omitempty"`
	Origin     core.Origin     `json:"origin"`
	Generation core.Generation `json:"generation,omitempty"`
	Commands   []*Command      `json:"commands,omitempty"`
}

// Observer hears about Transitions.
//
// Observe is called on the Engine's loop, so it must not block.
type Observer interface {
	Observe(ctx context.Context, t *Transition)
}

// ObserverFunc is a function that's an Observer.
type ObserverFunc func(ctx context.Context, t *Transition)

func (f ObserverFunc) Observe(ctx context.Context, t *Transition) {
	f(ctx, t)
}

// Snapshot is a consistent view of the Engine that's safe to read
// from any goroutine.
type Snapshot struct {
	Book        *core.Book      `json:"-"`
	State       string          `json:"state"`
	Name        string          `json:"name,omitempty"`
	Generation  core.Generation `json:"generation,omitempty"`
	Transitions uint64          `json:"transitions"`
}

// EngineConf is optional Engine gear.
type EngineConf struct {
	// Clock defaults to RealClock.
	Clock Clock

	Metrics *Metrics

	Observers []Observer
}

// Engine is the single consumer of Events.  It owns the current
// state, the timer and the Book.
type Engine struct {
	book    *core.Book
	events  *Events
	actions *Actions
	timers  *Timers
	metrics *Metrics

	observers []Observer

	current     int
	transitions uint64

	snapshot atomic.Pointer[Snapshot]
	running  atomic.Bool
}

// ErrRunning is returned by a second call to Run.
var ErrRunning = errors.New("engine already running")

// NewEngine makes an Engine that's in the Book's initial state.
//
// Nothing is played and no timer is armed until Run.
func NewEngine(b *core.Book, events *Events, actions *Actions, conf *EngineConf) *Engine {
	if conf == nil {
		conf = &EngineConf{}
	}
	if actions == nil {
		actions = NewActions(nil)
	}

	e := &Engine{
		book:      b,
		events:    events,
		actions:   actions,
		metrics:   conf.Metrics,
		observers: conf.Observers,
		current:   b.Initial(),
	}

	e.timers = NewTimers(conf.Clock, func(te core.TimeoutElapsed) {
		if err := events.Post(context.Background(), te); err != nil && err != ErrClosed {
			logger.Logger().Warnw("timeout post", "generation", te.Generation, "error", err)
		}
	})

	e.publish()

	return e
}

// Events returns the queue the Engine consumes.
func (e *Engine) Events() *Events {
	return e.events
}

// Snapshot returns the latest Snapshot.
func (e *Engine) Snapshot() Snapshot {
	return *e.snapshot.Load()
}

// Current returns the id of the current state.
func (e *Engine) Current() string {
	return e.snapshot.Load().State
}

// Book returns the Book in use.
func (e *Engine) Book() *core.Book {
	return e.snapshot.Load().Book
}

// AddObserver must be called before Run.
func (e *Engine) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// Run enters the initial state and then processes events, one at a
// time, until Shutdown (which returns nil), the context is done (which
// returns the context's error) or an internal fault.
//
// The Events are closed when Run returns.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrRunning
	}

	ctx = logger.WithName(ctx, "engine")

	defer e.events.Close()
	defer e.timers.Cancel()

	if err := e.enter(ctx, nil, e.book.Initial(), core.FromInitial, nil); err != nil {
		return err
	}

	for {
		ev, err := e.events.Next(ctx)
		if err != nil {
			return err
		}
		stop, err := e.process(ctx, ev)
		if err != nil {
			logger.ErrorKV(ctx, "engine fault", "state", e.Current(), "event", ev, "error", err)
			return err
		}
		if stop {
			logger.InfoKV(ctx, "shutdown", "state", e.Current())
			return nil
		}
	}
}

func (e *Engine) process(ctx context.Context, ev core.Event) (bool, error) {
	e.metrics.Event(ev.Kind())

	if load, is := ev.(core.Load); is {
		if load.Book == nil {
			logger.WarnKV(ctx, "load without book")
			return false, nil
		}
		leaving, err := e.book.State(e.current)
		if err != nil {
			return false, err
		}
		e.book = load.Book
		logger.InfoKV(ctx, "loaded book", "initial", load.Book.InitialState().Id)
		return false, e.enter(ctx, leaving, e.book.Initial(), core.FromLoad, ev)
	}

	stride, err := e.book.Step(e.current, ev, e.timers.Armed())
	if err != nil {
		return false, err
	}

	switch stride.Reason {
	case core.Stopped:
		return true, nil
	case core.Stale:
		e.metrics.StaleTimeout()
		logger.DebugKV(ctx, "stale timeout", "event", ev, "armed", e.timers.Armed())
		return false, nil
	case core.Unhandled:
		e.metrics.Unhandled()
		logger.DebugKV(ctx, "unhandled", "event", ev, "state", e.Current())
		return false, nil
	}

	leaving, err := e.book.State(stride.From)
	if err != nil {
		return false, err
	}

	return false, e.enter(ctx, leaving, stride.To, stride.Origin, ev)
}

// enter makes the state at index to current and does everything that
// goes with that: commands, then the timer, then observers.
func (e *Engine) enter(ctx context.Context, leaving *core.State, to int, origin core.Origin, ev core.Event) error {
	entering, err := e.book.State(to)
	if err != nil {
		return err
	}

	e.current = to
	cs := e.actions.Apply(ctx, leaving, entering)
	g := e.timers.Rearm(e.book, to)

	from := ""
	if leaving != nil {
		from = leaving.Id
		e.metrics.Transition(from, entering.Id)
	}
	e.metrics.Current(from, entering.Id)

	e.transitions++
	e.publish()

	t := &Transition{
		At:         time.Now().UTC(),
		From:       from,
		To:         entering.Id,
		Origin:     origin,
		Generation: g,
		Commands:   cs,
	}
	if ev != nil {
		t.Event = eventString(ev)
	}

	logger.DebugKV(ctx, "entered", "from", from, "to", entering.Id, "origin", origin, "generation", g)

	for _, o := range e.observers {
		o.Observe(ctx, t)
	}

	return nil
}

func (e *Engine) publish() {
	s := e.book.States()[e.current]
	e.snapshot.Store(&Snapshot{
		Book:        e.book,
		State:       s.Id,
		Name:        s.Name,
		Generation:  e.timers.Armed(),
		Transitions: e.transitions,
	})
}

func eventString(ev core.Event) string {
	switch e := ev.(type) {
	case core.SymbolEvent:
		return e.Symbol.String()
	case core.TimeoutElapsed:
		return "timeout"
	default:
		return ev.Kind()
	}
}
