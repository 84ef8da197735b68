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
	"io"
	"strings"

	"github.com/Comcast/fernspiel/core"
)

type MermaidOpts struct {
	// ShowLabels will label each edge with its symbol or delay.
	ShowLabels bool `json:"showLabels"`

	// SoundFill is the fill color for states that play sounds.
	// Does not apply if SoundClass is set.
	SoundFill string `json:"soundFill,omitempty"`

	// SoundClass will be the CSS class for states that play
	// sounds.
	SoundClass string `json:"soundClass,omitempty"`

	// ExpandUniversal draws each universal rule from every state
	// instead of from a single "any" node.
	ExpandUniversal bool `json:"expandUniversal,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the given Book.
func Mermaid(b *core.Book, w io.Writer, opts *MermaidOpts, fromState, toState string) error {
	if opts == nil {
		opts = &MermaidOpts{
			ShowLabels: true,
			SoundFill:  "#bcf2db",
		}
	}

	fmt.Fprintf(w, "graph TB\n")

	nids := make(map[string]string)
	for i, s := range b.States() {
		nid := fmt.Sprintf("n%d", i+1)
		nids[s.Id] = nid

		name := s.Id
		if s.Terminal {
			fmt.Fprintf(w, "  %s([\"%s\"])\n", nid, name)
		} else {
			fmt.Fprintf(w, "  %s(\"%s\")\n", nid, name)
		}
		switch {
		case len(s.Sounds) == 0:
		case opts.SoundClass != "":
			fmt.Fprintf(w, "  class %s %s\n", nid, opts.SoundClass)
		case opts.SoundFill != "":
			fmt.Fprintf(w, "  style %s fill:%s\n", nid, opts.SoundFill)
		}
		if s.Id == toState {
			fmt.Fprintf(w, "  style %s stroke:red,stroke-width:3px\n", nid)
		}
	}

	edge := func(from, to string, e *Edge) {
		arrow := "-->"
		if e.Timeout {
			arrow = "-.->"
		}
		label := ""
		if opts.ShowLabels {
			label = "|\"" + strings.Replace(e.Label, `"`, `'`, -1) + "\"|"
		}
		fmt.Fprintf(w, "  %s %s%s %s\n", from, arrow, label, to)
	}

	anyNode := false
	for _, e := range Edges(b) {
		to := nids[e.To]
		if !e.Universal {
			edge(nids[e.From], to, e)
			continue
		}
		if opts.ExpandUniversal {
			for _, s := range b.States() {
				if _, shadowed := b.TransitionsFor(s.Index()).Target(e.Symbol); shadowed {
					continue
				}
				edge(nids[s.Id], to, e)
			}
			continue
		}
		if !anyNode {
			fmt.Fprintf(w, "  any{{\"any\"}}\n")
			anyNode = true
		}
		edge("any", to, e)
	}

	fmt.Fprintf(w, "\n")

	return nil
}
