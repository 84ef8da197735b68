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
	"sync/atomic"
	"time"

	"github.com/Comcast/fernspiel/core"
)

// Stopper is the part of a *time.Timer that Timers needs.
type Stopper interface {
	Stop() bool
}

// Clock schedules functions.  Tests substitute their own.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// RealClock uses time.AfterFunc.
var RealClock Clock = realClock{}

// generations is shared by every Timers in the process so that no
// Generation is ever minted twice.
var generations atomic.Uint64

func nextGeneration() core.Generation {
	return core.Generation(generations.Add(1))
}

// Timers holds the single timeout armed for the current state.
//
// Timers is owned by the Engine's loop and is not safe for
// concurrent use.  The only thing that crosses goroutines is the
// TimeoutElapsed handed to post when a timer fires.
type Timers struct {
	clock Clock
	post  func(core.TimeoutElapsed)

	armed core.Generation
	timer Stopper
}

// NewTimers makes Timers that call post when a timer fires.
func NewTimers(clock Clock, post func(core.TimeoutElapsed)) *Timers {
	if clock == nil {
		clock = RealClock
	}
	return &Timers{
		clock: clock,
		post:  post,
	}
}

// Rearm cancels whatever is armed and then arms the timeout rule (if
// any) of the given state.
//
// The returned Generation is the newly armed one, which is zero when
// the state has no timeout rule.
func (ts *Timers) Rearm(b *core.Book, state int) core.Generation {
	ts.Cancel()

	t := b.TransitionsFor(state).Timeout
	if t == nil || t.Delay <= 0 {
		return 0
	}

	g := nextGeneration()
	post := ts.post
	ts.armed = g
	ts.timer = ts.clock.AfterFunc(t.Delay, func() {
		post(core.TimeoutElapsed{Generation: g})
	})

	return g
}

// Cancel releases the armed timer without posting anything.
func (ts *Timers) Cancel() {
	if ts.timer != nil {
		ts.timer.Stop()
		ts.timer = nil
	}
	ts.armed = 0
}

// Armed returns the currently armed Generation or zero.
func (ts *Timers) Armed() core.Generation {
	return ts.armed
}
