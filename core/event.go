package core

import "fmt"

// Generation tags an armed timer.  Generations are minted from a
// process-wide counter and are never reused.  The zero Generation
// means that no timer is armed.
type Generation uint64

// Event is something delivered to Step.
//
// The set of events is closed: SymbolEvent, TimeoutElapsed, Shutdown,
// Reset and Load.
type Event interface {
	isEvent()
	Kind() string
}

// SymbolEvent carries a symbol from a producer (hardware, remote,
// console or schedule).
type SymbolEvent struct {
	Symbol Symbol
}

// TimeoutElapsed is posted by the timer that was armed with the
// given Generation.
type TimeoutElapsed struct {
	Generation Generation
}

// Shutdown terminates the dispatch loop.
type Shutdown struct{}

// Reset starts over from the initial state.
type Reset struct{}

// Load replaces the running phonebook and starts over from the new
// phonebook's initial state.
type Load struct {
	Book *Book
}

func (SymbolEvent) isEvent()    {}
func (TimeoutElapsed) isEvent() {}
func (Shutdown) isEvent()       {}
func (Reset) isEvent()          {}
func (Load) isEvent()           {}

func (SymbolEvent) Kind() string    { return "symbol" }
func (TimeoutElapsed) Kind() string { return "timeout" }
func (Shutdown) Kind() string       { return "shutdown" }
func (Reset) Kind() string          { return "reset" }
func (Load) Kind() string           { return "load" }

func (e SymbolEvent) String() string {
	return "symbol(" + e.Symbol.String() + ")"
}

func (e TimeoutElapsed) String() string {
	return fmt.Sprintf("timeout(%d)", e.Generation)
}

// Symbols wraps each symbol in a SymbolEvent.
func Symbols(ss ...Symbol) []Event {
	acc := make([]Event, len(ss))
	for i, s := range ss {
		acc[i] = SymbolEvent{Symbol: s}
	}
	return acc
}
