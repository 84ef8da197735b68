package tools

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Comcast/fernspiel/core"
	"github.com/Comcast/fernspiel/sio"

	"github.com/jsccast/yaml"
)

// Step is a line of input and what should follow from it.
type Step struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Input is a line of console input (see sio.ParseLine) or
	// "timeout", which delivers the armed timeout.
	Input string `json:"input" yaml:"input"`

	// Expect is the id of the state after the input.
	Expect string `json:"expect" yaml:"expect"`

	// Plays, if not nil, are the sounds played by the last
	// transition, in order.
	Plays []string `json:"plays,omitempty" yaml:"plays,omitempty"`
}

// Session is a sequence of Steps that's checked against a Book
// without any real time passing.
type Session struct {
	// Doc is an opaque documentation string.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Book is the phonebook filename, relative to the session
	// file.
	Book string `json:"book,omitempty" yaml:"book,omitempty"`

	Steps []Step `json:"steps" yaml:"steps"`
}

// Failure is a Step that didn't go as expected.
type Failure struct {
	Step  int
	Input string
	Want  string
	Got   string
}

func (f *Failure) String() string {
	return fmt.Sprintf("step %d (%q): want %s, got %s", f.Step, f.Input, f.Want, f.Got)
}

// ReadSession reads a Session from YAML (or JSON) with %inline
// support.
func ReadSession(filename string) (*Session, error) {
	bs, err := ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	var s Session
	if err = yaml.Unmarshal(bs, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// walker mimics the Engine without goroutines: every step is
// processed to completion before the next.
type walker struct {
	book    *core.Book
	current int
	armed   core.Generation
	gen     core.Generation
	actions *sio.Actions
	played  []string
}

func (w *walker) enter(leaving *core.State, to int) error {
	entering, err := w.book.State(to)
	if err != nil {
		return err
	}
	w.current = to
	w.played = w.played[:0]
	for _, c := range w.actions.Commands(leaving, entering) {
		if c.Op == sio.OpPlay {
			w.played = append(w.played, c.Sound)
		}
	}
	w.armed = 0
	if t := w.book.TransitionsFor(to).Timeout; t != nil {
		w.gen++
		w.armed = w.gen
	}
	return nil
}

func (w *walker) deliver(ev core.Event) (bool, error) {
	if load, is := ev.(core.Load); is {
		leaving, _ := w.book.State(w.current)
		w.book = load.Book
		return false, w.enter(leaving, w.book.Initial())
	}
	stride, err := w.book.Step(w.current, ev, w.armed)
	if err != nil {
		return false, err
	}
	switch stride.Reason {
	case core.Stopped:
		return true, nil
	case core.Transitioned:
		leaving, _ := w.book.State(stride.From)
		return false, w.enter(leaving, stride.To)
	}
	return false, nil
}

// Run walks the Steps and returns the Failures.  The error is for
// anything that isn't a Failure.
func (s *Session) Run(b *core.Book) ([]*Failure, error) {
	w := &walker{
		book:    b,
		actions: sio.NewActions(nil),
	}
	if err := w.enter(nil, b.Initial()); err != nil {
		return nil, err
	}

	var fs []*Failure
	for i, step := range s.Steps {
		var evs []core.Event
		if strings.TrimSpace(step.Input) == "timeout" {
			evs = []core.Event{core.TimeoutElapsed{Generation: w.armed}}
		} else {
			evs = sio.ParseLine(step.Input)
		}

		for _, ev := range evs {
			stop, err := w.deliver(ev)
			if err != nil {
				return fs, err
			}
			if stop {
				break
			}
		}

		got := w.book.States()[w.current].Id
		if step.Expect != "" && got != step.Expect {
			fs = append(fs, &Failure{Step: i, Input: step.Input, Want: step.Expect, Got: got})
			continue
		}
		if step.Plays != nil {
			want := strings.Join(step.Plays, ",")
			if have := strings.Join(w.played, ","); have != want {
				fs = append(fs, &Failure{Step: i, Input: step.Input, Want: "plays " + want, Got: "plays " + have})
			}
		}
	}
	return fs, nil
}

// RunSessionFile reads the session and its Book (unless b isn't nil)
// and runs it.
func RunSessionFile(filename string, b *core.Book) ([]*Failure, error) {
	s, err := ReadSession(filename)
	if err != nil {
		return nil, err
	}
	if b == nil {
		if s.Book == "" {
			return nil, fmt.Errorf("session %s names no book", filename)
		}
		if b, err = LoadBookWithInlines(relativeTo(filename, s.Book)); err != nil {
			return nil, err
		}
	}
	return s.Run(b)
}

func relativeTo(filename, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(filename), name)
}
