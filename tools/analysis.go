/* Copyright 2018 Comcast Cable Communications Management, LLC
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

package tools

import (
	"fmt"
	"sort"

	"github.com/Comcast/fernspiel/core"
)

// Edge is a transition rule drawn as an arc.
type Edge struct {
	From string

	// Universal edges come from the "any" rules.  Their From is
	// core.AnyState.
	Universal bool

	To    string
	Label string

	// Symbol is the zero Symbol for a timeout rule.
	Symbol core.Symbol

	// Timeout is true for a timeout rule.
	Timeout bool
}

// Edges lists every rule of the Book: each state's rules in state
// order (symbols sorted by label, then the timeout) followed by the
// universal rules.
func Edges(b *core.Book) []*Edge {
	states := b.States()
	acc := make([]*Edge, 0, 4*len(states))

	symbols := func(from string, universal bool, ts *core.TransitionSet) {
		es := make([]*Edge, 0, len(ts.Symbols))
		for sym, to := range ts.Symbols {
			es = append(es, &Edge{
				From:      from,
				Universal: universal,
				To:        states[to].Id,
				Label:     sym.String(),
				Symbol:    sym,
			})
		}
		sort.Slice(es, func(i, j int) bool {
			return es[i].Label < es[j].Label
		})
		acc = append(acc, es...)
	}

	for i, s := range states {
		ts := b.TransitionsFor(i)
		symbols(s.Id, false, ts)
		if t := ts.Timeout; t != nil {
			acc = append(acc, &Edge{
				From:    s.Id,
				To:      states[t.Target].Id,
				Label:   fmt.Sprintf("after %s", t.Delay),
				Timeout: true,
			})
		}
	}
	symbols(core.AnyState, true, b.Universal())

	return acc
}

// BookAnalysis summarizes the structure of a Book.
type BookAnalysis struct {
	States      int
	Sounds      int
	Transitions int
	Timeouts    int
	Universal   int

	// Terminal states are the ones marked terminal.
	Terminal []string

	// Orphans can't be reached from the initial state.
	Orphans []string

	// DeadEnds are states that are not marked terminal but that no
	// rule leaves.
	DeadEnds []string

	// SelfLoops are states with a rule that targets the state
	// itself.
	SelfLoops []string

	// UnusedSounds are sounds that no state plays.
	UnusedSounds []string
}

// Analyze walks the Book.
func Analyze(b *core.Book) (*BookAnalysis, error) {
	states := b.States()
	a := &BookAnalysis{
		States: len(states),
		Sounds: len(b.Sounds()),
	}

	out := make(map[string][]string, len(states))
	var universal []string
	loops := make(map[string]bool)

	for _, e := range Edges(b) {
		a.Transitions++
		switch {
		case e.Universal:
			a.Universal++
			universal = append(universal, e.To)
		case e.Timeout:
			a.Timeouts++
		}
		if !e.Universal {
			out[e.From] = append(out[e.From], e.To)
			if e.From == e.To {
				loops[e.From] = true
			}
		}
	}

	played := make(map[string]bool)
	for _, s := range states {
		if s.Terminal {
			a.Terminal = append(a.Terminal, s.Id)
		}
		if len(out[s.Id]) == 0 && len(universal) == 0 && !s.Terminal {
			a.DeadEnds = append(a.DeadEnds, s.Id)
		}
		for _, snd := range s.Sounds {
			played[snd.Id] = true
		}
	}
	for _, snd := range b.Sounds() {
		if !played[snd.Id] {
			a.UnusedSounds = append(a.UnusedSounds, snd.Id)
		}
	}

	// Universal rules apply in every state, so their targets are
	// reachable as soon as anything is.
	reached := map[string]bool{}
	pending := append([]string{b.InitialState().Id}, universal...)
	for 0 < len(pending) {
		id := pending[0]
		pending = pending[1:]
		if reached[id] {
			continue
		}
		reached[id] = true
		pending = append(pending, out[id]...)
	}
	for _, s := range states {
		if !reached[s.Id] {
			a.Orphans = append(a.Orphans, s.Id)
		}
	}

	a.SelfLoops = keysToStringSlice(loops)

	return a, nil
}

// keysToStringSlice returns the sorted keys of the map.
func keysToStringSlice(m map[string]bool) []string {
	var list []string
	for key := range m {
		list = append(list, key)
	}
	sort.Strings(list)
	return list
}
