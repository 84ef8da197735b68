package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"html"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Comcast/fernspiel/core"

	"gopkg.in/yaml.v2"
)

// Dot writes a Graphviz dot file for the given Book.
//
// The optional fromState and toState can be ids of states during a
// transition.  If not empty, the toState will be red and so will the
// edges between them.
func Dot(b *core.Book, w io.Writer, fromState, toState string) error {
	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	initial := b.InitialState().Id

	for _, s := range b.States() {
		label := html.EscapeString(s.Id)
		if s.Name != "" && s.Name != s.Id {
			label += "<BR/><FONT POINT-SIZE='10'>" + html.EscapeString(s.Name) + "</FONT>"
		}
		if details := stateDetails(s); details != "" {
			label += `<FONT POINT-SIZE="8"><BR/>` +
				strings.Replace(html.EscapeString(details), "\n", `<BR ALIGN="LEFT"/>`, -1) +
				`</FONT>`
		}

		var (
			color     = "black"
			fillcolor = "#99ddc8"
			style     = "rounded,filled"
		)
		if len(s.Sounds) == 0 {
			fillcolor = "#52aa5e"
		}
		if toState == s.Id {
			color = "red"
			fillcolor = "#f98b8b"
		}
		if s.Id == initial {
			style += ",bold"
		}
		if s.Terminal {
			style += ",dashed"
		}
		fmt.Fprintf(w, "  %q [style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			s.Id, style, color, fillcolor, label)
	}

	universal := false
	for _, e := range Edges(b) {
		color := "black"
		if fromState == e.From && toState == e.To {
			color = "red"
		}
		style := "solid"
		if e.Timeout {
			style = "dashed"
		}
		if e.Universal {
			if !universal {
				fmt.Fprintf(w, "  %q [shape=\"circle\", style=\"dotted\", label=\"any\"]\n", core.AnyState)
				universal = true
			}
			style = "dotted"
		}
		fmt.Fprintf(w, "  %q -> %q [ color=\"%s\" style=\"%s\" label = <%s> ]\n",
			e.From, e.To, color, style, html.EscapeString(e.Label))
	}

	fmt.Fprintf(w, "}\n")
	return nil
}

// stateDetails renders what a state does on entry as YAML.
func stateDetails(s *core.State) string {
	if len(s.Sounds) == 0 && s.Ring == 0 {
		return ""
	}
	details := yaml.MapSlice{}
	if 0 < len(s.Sounds) {
		ids := make([]string, len(s.Sounds))
		for i, snd := range s.Sounds {
			ids[i] = snd.Id
		}
		details = append(details, yaml.MapItem{Key: "sounds", Value: ids})
	}
	if 0 < s.Ring {
		details = append(details, yaml.MapItem{Key: "ring", Value: s.Ring})
	}
	bs, err := yaml.Marshal(details)
	if err != nil {
		return err.Error()
	}
	return strings.TrimSpace(string(bs))
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(b *core.Book, basename string, fromState, toState string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(b, dotfile, fromState, toState); err != nil {
		dotfile.Close()
		return pngname, err
	}
	if err := dotfile.Close(); err != nil {
		return pngname, err
	}
	if err := exec.Command("dot", "-Tpng", "-Gstart=1", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}
