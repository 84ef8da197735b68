package tools

import (
	"fmt"
	"html"
	"io"

	"github.com/Comcast/fernspiel/core"

	md "github.com/russross/blackfriday/v2"
)

// RenderBookHTML writes a table of states.  Descriptions are
// Markdown.
func RenderBookHTML(b *core.Book, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	edges := make(map[string][]*Edge)
	var universal []*Edge
	for _, e := range Edges(b) {
		if e.Universal {
			universal = append(universal, e)
		} else {
			edges[e.From] = append(edges[e.From], e)
		}
	}

	transitions := func(es []*Edge) {
		if len(es) == 0 {
			return
		}
		f(`<table class="transitions">`)
		for _, e := range es {
			f(`<tr><td><code>%s</code></td><td><a href="#%s"><code>%s</code></a></td></tr>`,
				html.EscapeString(e.Label), html.EscapeString(e.To), html.EscapeString(e.To))
		}
		f(`</table>`)
	}

	initial := b.InitialState().Id

	f(`<div class="states"><table>`)
	for _, s := range b.States() {
		class := "state"
		if s.Id == initial {
			class += " initial"
		}
		if s.Terminal {
			class += " terminal"
		}
		id := html.EscapeString(s.Id)
		f(`<tr class="%s"><td><span id="%s" class="stateId">%s</span></td><td>`, class, id, id)
		if s.Name != "" {
			f(`<div class="stateName">%s</div>`, html.EscapeString(s.Name))
		}
		if s.Description != "" {
			f(`<div class="stateDoc doc">%s</div>`, md.Run([]byte(s.Description)))
		}
		if 0 < len(s.Sounds) {
			f(`<ul class="sounds">`)
			for _, snd := range s.Sounds {
				f(`<li><span class="soundId">%s</span> %s</li>`, html.EscapeString(snd.Id), soundSummary(snd))
			}
			f(`</ul>`)
		}
		if 0 < s.Ring {
			f(`<div class="ring">ring %g</div>`, s.Ring)
		}
		transitions(edges[s.Id])
		f(`</td></tr>`)
	}
	if 0 < len(universal) {
		f(`<tr class="state any"><td><span class="stateId">%s</span></td><td>`, core.AnyState)
		transitions(universal)
		f(`</td></tr>`)
	}
	f(`</table></div>`)

	return nil
}

func soundSummary(snd *core.Sound) string {
	var s string
	if snd.Loop {
		s += "loop "
	}
	if snd.Speech != "" {
		s += fmt.Sprintf("says <q>%s</q> ", html.EscapeString(snd.Speech))
	}
	if snd.File != "" {
		s += fmt.Sprintf("plays <code>%s</code> ", html.EscapeString(snd.File))
	}
	if snd.Volume != 1 {
		s += fmt.Sprintf("at %g ", snd.Volume)
	}
	if 0 < snd.StartOffset {
		s += fmt.Sprintf("from %s ", snd.StartOffset)
	}
	return s
}

// RenderBookPage writes a complete HTML page.
func RenderBookPage(b *core.Book, out io.Writer, title string, cssFiles []string) error {
	if title == "" {
		title = "phonebook"
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, html.EscapeString(title))

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, html.EscapeString(title))

	if err := RenderBookHTML(b, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}
