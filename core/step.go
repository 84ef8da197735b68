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

package core

// Reason says what became of an Event given to Step.
type Reason int

const (
	// Transitioned means the Stride moved From one state To
	// another (possibly the same) state.
	Transitioned Reason = iota

	// Unhandled means no rule applied.  The event was consumed
	// and nothing else happens.
	Unhandled

	// Stale means a TimeoutElapsed that doesn't belong to the
	// armed timer.  Consumed without effect.
	Stale

	// Stopped means Shutdown.
	Stopped
)

func (r Reason) String() string {
	switch r {
	case Transitioned:
		return "transitioned"
	case Unhandled:
		return "unhandled"
	case Stale:
		return "stale"
	case Stopped:
		return "stopped"
	default:
		return "?"
	}
}

// Origin says which rule produced a transition.
type Origin string

const (
	FromState   Origin = "state"
	FromAny     Origin = "any"
	FromTimeout Origin = "timeout"
	FromReset   Origin = "reset"

	// FromInitial and FromLoad are used by runtimes that enter a
	// state without a Step: at startup and when a new Book is
	// loaded.
	FromInitial Origin = "initial"
	FromLoad    Origin = "load"
)

// Stride represents what a single Step did.
type Stride struct {
	// From is the index of the state the event was given to.
	From int

	// To is the index of the next state.  Equal to From unless
	// the Stride Transitioned (a self-transition also has To ==
	// From).
	To int

	// Consumed is the event.  Every event is consumed exactly
	// once, whether or not it caused a transition.
	Consumed Event

	Reason Reason

	// Origin is empty unless the Stride Transitioned.
	Origin Origin
}

// Transitioned reports whether the Stride moved to a (maybe the same)
// state and therefore requires side effects.
func (s *Stride) Transitioned() bool {
	return s != nil && s.Reason == Transitioned
}

// Step is the fundamental operation that attempts to move from the
// given state with the given event.
//
// Step performs at most one transition.  It never looks at another
// event and never fabricates one: entering a state is not an event.
//
// A TimeoutElapsed only counts if its Generation is the armed one.
// Symbol rules of the current state shadow the universal rules.  An
// event that no rule handles is consumed with Reason Unhandled.
//
// The only error is *InternalConsistencyFault.
func (b *Book) Step(current int, ev Event, armed Generation) (*Stride, error) {
	if _, err := b.State(current); err != nil {
		return nil, err
	}

	stride := &Stride{
		From:     current,
		To:       current,
		Consumed: ev,
		Reason:   Unhandled,
	}

	switch e := ev.(type) {
	case Shutdown:
		stride.Reason = Stopped
	case TimeoutElapsed:
		if armed == 0 || e.Generation != armed {
			stride.Reason = Stale
			return stride, nil
		}
		if t := b.TransitionsFor(current).Timeout; t != nil {
			return b.take(stride, t.Target, FromTimeout)
		}
	case SymbolEvent:
		if to, have := b.TransitionsFor(current).Target(e.Symbol); have {
			return b.take(stride, to, FromState)
		}
		if to, have := b.Universal().Target(e.Symbol); have {
			return b.take(stride, to, FromAny)
		}
	case Reset:
		return b.take(stride, b.initial, FromReset)
	}

	return stride, nil
}

func (b *Book) take(stride *Stride, to int, origin Origin) (*Stride, error) {
	if _, err := b.State(to); err != nil {
		return nil, err
	}
	stride.To = to
	stride.Reason = Transitioned
	stride.Origin = origin
	return stride, nil
}
