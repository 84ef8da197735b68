package core

import "time"

// State is a named mode of the installation.
type State struct {
	Id          string
	Name        string
	Description string

	// Sounds are played, in order, on entry.
	Sounds []*Sound

	// Ring is handed to the bell on entry without interpretation.
	Ring float64

	// Terminal is informational.
	Terminal bool

	index int
}

// Index is the interned index of this state in its Book.
func (s *State) Index() int {
	return s.index
}

// HasSound reports whether the state plays the sound with the given
// id.
func (s *State) HasSound(id string) bool {
	for _, snd := range s.Sounds {
		if snd.Id == id {
			return true
		}
	}
	return false
}

// Sound is immutable reference data for something to play.
type Sound struct {
	Id   string
	Name string
	Loop bool

	// Speech, if not empty, is text for a speech synthesizer.
	Speech string

	// File, if not empty, is an audio file resolved by drivers.
	File string

	// Volume is within 0..1.
	Volume float64

	// Backoff is how far to rewind when the sound is re-entered
	// while overlapping with another.
	Backoff time.Duration

	// StartOffset is where playback starts.  A sound that is played
	// again after being stopped seeks back here, or to its position
	// less Backoff when that's later.
	StartOffset time.Duration
}

// Timeout is a timeout rule.  Delay is always positive.
type Timeout struct {
	Delay  time.Duration
	Target int
}

// TransitionSet holds the rules for a single state (or the universal
// rules).
type TransitionSet struct {
	// Timeout is nil when no timeout is configured.
	Timeout *Timeout

	// Symbols maps symbols to target state indexes.
	Symbols map[Symbol]int
}

func newTransitionSet() *TransitionSet {
	return &TransitionSet{
		Symbols: make(map[Symbol]int, 4),
	}
}

var emptyTransitionSet = newTransitionSet()

// Target returns the target state index for a symbol, if any.
func (ts *TransitionSet) Target(s Symbol) (int, bool) {
	if ts == nil {
		return 0, false
	}
	i, have := ts.Symbols[s]
	return i, have
}

// Book is a compiled phonebook.
//
// A Book is read-only.  It's safe to share between goroutines.
type Book struct {
	initial     int
	states      []*State
	index       map[string]int
	sounds      []*Sound
	soundIndex  map[string]int
	transitions []*TransitionSet
	universal   *TransitionSet
}

// Initial returns the index of the initial state.
func (b *Book) Initial() int {
	return b.initial
}

// InitialState returns the initial state.
func (b *Book) InitialState() *State {
	return b.states[b.initial]
}

// States returns all states ordered by index.  Do not modify.
func (b *Book) States() []*State {
	return b.states
}

// Sounds returns all sounds.  Do not modify.
func (b *Book) Sounds() []*Sound {
	return b.sounds
}

// Lookup finds a state by id.
func (b *Book) Lookup(id string) (*State, error) {
	i, have := b.index[id]
	if !have {
		return nil, &UnknownState{Id: id}
	}
	return b.states[i], nil
}

// State returns the state at the given index.
//
// An out-of-range index can only come from a bug, so the error is an
// *InternalConsistencyFault.
func (b *Book) State(i int) (*State, error) {
	if i < 0 || len(b.states) <= i {
		return nil, &InternalConsistencyFault{Index: i, States: len(b.states)}
	}
	return b.states[i], nil
}

// Sound finds a sound by id.
func (b *Book) Sound(id string) (*Sound, bool) {
	i, have := b.soundIndex[id]
	if !have {
		return nil, false
	}
	return b.sounds[i], true
}

// TransitionsFor returns the rules for the state at the given index
// or an empty set.
func (b *Book) TransitionsFor(i int) *TransitionSet {
	if i < 0 || len(b.transitions) <= i {
		return emptyTransitionSet
	}
	return b.transitions[i]
}

// Universal returns the "any" rules.
func (b *Book) Universal() *TransitionSet {
	if b.universal == nil {
		return emptyTransitionSet
	}
	return b.universal
}
