package core

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jsccast/yaml"
)

// AnyState is the reserved transitions key for universal rules.
const AnyState = "any"

// BookSpec is the declarative phonebook as it appears in a file.
//
// A BookSpec must be Compiled into a Book before use.
type BookSpec struct {
	// Initial is the id of the state to start in.
	Initial string `json:"initial" yaml:"initial"`

	// States maps state ids to their attributes.
	States map[string]*StateSpec `json:"states,omitempty" yaml:"states,omitempty"`

	// Transitions maps state ids (or AnyState) to rules.
	Transitions map[string]*TransitionsSpec `json:"transitions,omitempty" yaml:"transitions,omitempty"`

	// Sounds maps sound ids to their attributes.
	Sounds map[string]*SoundSpec `json:"sounds,omitempty" yaml:"sounds,omitempty"`

	// Vendor is editor metadata (positions, tool version, ...).
	// This package never looks at it.
	Vendor interface{} `json:"vendor,omitempty" yaml:"vendor,omitempty"`
}

// StateSpec gives the attributes of a state.
type StateSpec struct {
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Sounds      []string `json:"sounds,omitempty" yaml:"sounds,omitempty"`

	// Ring is forwarded to the bell on entry.  Seconds of ringing.
	Ring     float64 `json:"ring,omitempty" yaml:"ring,omitempty"`
	Terminal bool    `json:"terminal,omitempty" yaml:"terminal,omitempty"`
}

// TransitionsSpec gives the rules for a single state.
type TransitionsSpec struct {
	// Dial maps digits ("0" through "9") to target states.
	Dial map[string]string `json:"dial,omitempty" yaml:"dial,omitempty"`

	PickUp string `json:"pick_up,omitempty" yaml:"pick_up,omitempty"`
	HangUp string `json:"hang_up,omitempty" yaml:"hang_up,omitempty"`

	// PickUpSpaced and HangUpSpaced accept the spelling used by
	// older phonebooks.
	PickUpSpaced string `json:"pick up,omitempty" yaml:"pick up,omitempty"`
	HangUpSpaced string `json:"hang up,omitempty" yaml:"hang up,omitempty"`

	// On maps any symbol (usually an extension symbol) to a
	// target state.
	On map[string]string `json:"on,omitempty" yaml:"on,omitempty"`

	Timeout *TimeoutSpec `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// TimeoutSpec is a timeout rule.  An After of zero disables the
// rule.
type TimeoutSpec struct {
	// After is in seconds.
	After float64 `json:"after" yaml:"after"`
	To    string  `json:"to,omitempty" yaml:"to,omitempty"`
}

// SoundSpec gives the attributes of a sound.
type SoundSpec struct {
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Loop   bool   `json:"loop,omitempty" yaml:"loop,omitempty"`
	Speech string `json:"speech,omitempty" yaml:"speech,omitempty"`
	File   string `json:"file,omitempty" yaml:"file,omitempty"`

	// Volume defaults to 1.
	Volume *float64 `json:"volume,omitempty" yaml:"volume,omitempty"`

	// Backoff is in seconds.
	Backoff float64 `json:"backoff,omitempty" yaml:"backoff,omitempty"`

	// StartOffset is where playback starts, in seconds.
	StartOffset float64 `json:"start_offset,omitempty" yaml:"start_offset,omitempty"`
}

// ParseBookSpec decodes YAML (or JSON) into a BookSpec.
func ParseBookSpec(src []byte) (*BookSpec, error) {
	var spec BookSpec
	if err := yaml.Unmarshal(src, &spec); err != nil {
		return nil, &LoadFault{Errors: []error{&BadAttribute{
			Where:     "phonebook",
			Attribute: "syntax",
			Reason:    err.Error(),
		}}}
	}
	return &spec, nil
}

// ParseBook decodes and compiles a phonebook.
func ParseBook(src []byte) (*Book, error) {
	spec, err := ParseBookSpec(src)
	if err != nil {
		return nil, err
	}
	return Compile(spec)
}

// LoadBook reads, decodes and compiles the phonebook at the given
// path.
func LoadBook(filename string) (*Book, error) {
	src, err := os.ReadFile(filepath.Clean(filename))
	if err != nil {
		return nil, err
	}
	return ParseBook(src)
}

// seconds converts a non-negative number of seconds.
func seconds(x float64) time.Duration {
	return time.Duration(math.Round(x * float64(time.Second)))
}

func sortedKeys[V any](m map[string]V) []string {
	acc := make([]string, 0, len(m))
	for k := range m {
		acc = append(acc, k)
	}
	sort.Strings(acc)
	return acc
}

// Compile validates the spec and builds a Book.
//
// All problems are reported together in a single *LoadFault.
func Compile(spec *BookSpec) (*Book, error) {
	if spec == nil {
		return nil, &LoadFault{Errors: []error{ErrMissingInitial}}
	}

	var (
		c = &compiler{
			spec: spec,
			book: &Book{
				index:      make(map[string]int, len(spec.States)),
				soundIndex: make(map[string]int, len(spec.Sounds)),
			},
		}
	)

	c.sounds()
	c.states()
	c.initial()
	c.transitions()

	if 0 < len(c.errs) {
		return nil, &LoadFault{Errors: c.errs}
	}

	return c.book, nil
}

type compiler struct {
	spec *BookSpec
	book *Book
	errs []error
}

func (c *compiler) fail(err error) {
	c.errs = append(c.errs, err)
}

func (c *compiler) sounds() {
	b := c.book
	for _, id := range sortedKeys(c.spec.Sounds) {
		ss := c.spec.Sounds[id]
		if ss == nil {
			ss = &SoundSpec{}
		}
		where := `sound "` + id + `"`
		volume := 1.0
		if ss.Volume != nil {
			volume = *ss.Volume
		}
		if volume < 0 || 1 < volume || math.IsNaN(volume) {
			c.fail(&BadAttribute{Where: where, Attribute: "volume", Reason: "must be within 0..1"})
		}
		if ss.Backoff < 0 {
			c.fail(&BadAttribute{Where: where, Attribute: "backoff", Reason: "must not be negative"})
		}
		if ss.StartOffset < 0 {
			c.fail(&BadAttribute{Where: where, Attribute: "start_offset", Reason: "must not be negative"})
		}
		name := ss.Name
		if name == "" {
			name = id
		}
		b.soundIndex[id] = len(b.sounds)
		b.sounds = append(b.sounds, &Sound{
			Id:      id,
			Name:    name,
			Loop:    ss.Loop,
			Speech:  ss.Speech,
			File:    ss.File,
			Volume:  volume,
			Backoff: seconds(ss.Backoff),

			StartOffset: seconds(ss.StartOffset),
		})
	}
}

func (c *compiler) states() {
	b := c.book
	for _, id := range sortedKeys(c.spec.States) {
		if id == AnyState || id == "" {
			c.fail(&BadAttribute{Where: `state "` + id + `"`, Attribute: "id", Reason: "reserved"})
			continue
		}
		ss := c.spec.States[id]
		if ss == nil {
			ss = &StateSpec{}
		}
		where := `state "` + id + `"`
		if ss.Ring < 0 {
			c.fail(&BadAttribute{Where: where, Attribute: "ring", Reason: "must not be negative"})
		}
		name := ss.Name
		if name == "" {
			name = id
		}
		st := &State{
			Id:          id,
			Name:        name,
			Description: ss.Description,
			Ring:        ss.Ring,
			Terminal:    ss.Terminal,
			index:       len(b.states),
		}
		for _, sid := range ss.Sounds {
			i, have := b.soundIndex[sid]
			if !have {
				c.fail(&BadReference{Where: where, Kind: "sound", Ref: sid})
				continue
			}
			st.Sounds = append(st.Sounds, b.sounds[i])
		}
		b.index[id] = st.index
		b.states = append(b.states, st)
	}

	b.transitions = make([]*TransitionSet, len(b.states))
	for i := range b.transitions {
		b.transitions[i] = newTransitionSet()
	}
	b.universal = newTransitionSet()
}

func (c *compiler) initial() {
	if c.spec.Initial == "" {
		c.fail(ErrMissingInitial)
		return
	}
	i, have := c.book.index[c.spec.Initial]
	if !have {
		c.fail(&BadReference{Where: "initial", Kind: "state", Ref: c.spec.Initial})
		return
	}
	c.book.initial = i
}

func (c *compiler) target(where, id string) (int, bool) {
	i, have := c.book.index[id]
	if !have {
		c.fail(&BadReference{Where: where, Kind: "state", Ref: id})
	}
	return i, have
}

func (c *compiler) transitions() {
	for _, from := range sortedKeys(c.spec.Transitions) {
		var (
			ts    = c.spec.Transitions[from]
			where = `transitions of "` + from + `"`
			set   *TransitionSet
		)
		if from == AnyState {
			set = c.book.universal
		} else if i, have := c.book.index[from]; have {
			set = c.book.transitions[i]
		} else {
			c.fail(&BadReference{Where: "transitions", Kind: "state", Ref: from})
			continue
		}
		if ts == nil {
			continue
		}

		add := func(sym Symbol, to string) {
			if to == "" {
				return
			}
			i, ok := c.target(where, to)
			if !ok {
				return
			}
			if prev, have := set.Symbols[sym]; have && prev != i {
				c.fail(&BadAttribute{Where: where, Attribute: sym.String(), Reason: "conflicting targets"})
				return
			}
			set.Symbols[sym] = i
		}

		for _, digit := range sortedKeys(ts.Dial) {
			sym, err := ParseSymbol(digit)
			if err != nil || sym.Kind != DialKind {
				c.fail(&BadAttribute{Where: where, Attribute: "dial " + digit, Reason: "not a digit"})
				continue
			}
			add(sym, ts.Dial[digit])
		}
		add(PickUp(), ts.PickUp)
		add(PickUp(), ts.PickUpSpaced)
		add(HangUp(), ts.HangUp)
		add(HangUp(), ts.HangUpSpaced)
		for _, name := range sortedKeys(ts.On) {
			sym, err := ParseSymbol(name)
			if err != nil {
				c.fail(&BadAttribute{Where: where, Attribute: "on", Reason: err.Error()})
				continue
			}
			if sym.Kind == ExtensionKind && sym.Name == "timeout" {
				c.fail(&BadAttribute{Where: where, Attribute: "on timeout", Reason: "use a timeout rule"})
				continue
			}
			add(sym, ts.On[name])
		}

		if ts.Timeout == nil {
			continue
		}
		switch {
		case from == AnyState:
			c.fail(&BadAttribute{Where: where, Attribute: "timeout", Reason: "universal rules cannot time out"})
		case ts.Timeout.After < 0 || math.IsNaN(ts.Timeout.After):
			c.fail(&BadAttribute{Where: where, Attribute: "timeout", Reason: "delay must not be negative"})
		case ts.Timeout.After == 0:
			// Zero means no timeout, and the rule is dropped
			// entirely.  Nothing is ever scheduled for it.
			if ts.Timeout.To != "" {
				c.target(where, ts.Timeout.To)
			}
		case ts.Timeout.To == "":
			c.fail(&BadAttribute{Where: where, Attribute: "timeout", Reason: "missing target"})
		default:
			if i, ok := c.target(where, ts.Timeout.To); ok {
				set.Timeout = &Timeout{
					Delay:  seconds(ts.Timeout.After),
					Target: i,
				}
			}
		}
	}
}
