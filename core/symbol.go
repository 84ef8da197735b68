package core

import (
	"errors"
	"strconv"
	"strings"
)

// SymbolKind enumerates the built-in kinds of symbols.
type SymbolKind int

const (
	// PickUpKind is the handset leaving the hook.
	PickUpKind SymbolKind = iota + 1
	// HangUpKind is the handset returning to the hook.
	HangUpKind
	// DialKind is a dialed digit 0-9.
	DialKind
	// ExtensionKind is an application-defined symbol identified by
	// its Name.
	ExtensionKind
)

// Symbol is a discrete external occurrence the engine can react to.
//
// Symbols are comparable and are used directly as transition table
// keys.
type Symbol struct {
	Kind SymbolKind

	// Digit is only meaningful for DialKind.
	Digit int

	// Name is only meaningful for ExtensionKind.
	Name string
}

var (
	// ErrEmptySymbol is returned by ParseSymbol for blank input.
	ErrEmptySymbol = errors.New("empty symbol")

	// ErrBadDigit is returned by Dial for anything outside 0-9.
	ErrBadDigit = errors.New("dial digit must be within 0-9")
)

// PickUp makes the pick-up symbol.
func PickUp() Symbol {
	return Symbol{Kind: PickUpKind}
}

// HangUp makes the hang-up symbol.
func HangUp() Symbol {
	return Symbol{Kind: HangUpKind}
}

// Dial makes the symbol for a dialed digit.
func Dial(digit int) (Symbol, error) {
	if digit < 0 || 9 < digit {
		return Symbol{}, ErrBadDigit
	}
	return Symbol{Kind: DialKind, Digit: digit}, nil
}

// MustDial is Dial that panics.  For tests and literals.
func MustDial(digit int) Symbol {
	s, err := Dial(digit)
	if err != nil {
		panic(err)
	}
	return s
}

// Extension makes an application-defined symbol.
func Extension(name string) Symbol {
	return Symbol{Kind: ExtensionKind, Name: name}
}

// EndName is the name of the extension symbol that says a state's
// sounds have all finished.
const EndName = "end"

// End makes the end-of-sounds symbol.
func End() Symbol {
	return Extension(EndName)
}

func (s Symbol) String() string {
	switch s.Kind {
	case PickUpKind:
		return "pick_up"
	case HangUpKind:
		return "hang_up"
	case DialKind:
		return strconv.Itoa(s.Digit)
	case ExtensionKind:
		return s.Name
	default:
		return "?"
	}
}

// ParseSymbol turns the textual form of a symbol into a Symbol.
//
// "pick_up", "pick up", "pickup" and "p" are pick-up; the hang-up
// forms are analogous.  A single digit is a dial symbol.  Anything
// else is an extension symbol with that name.
func ParseSymbol(s string) (Symbol, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Symbol{}, ErrEmptySymbol
	}
	switch strings.ToLower(s) {
	case "pick_up", "pick up", "pickup", "p":
		return PickUp(), nil
	case "hang_up", "hang up", "hangup", "h":
		return HangUp(), nil
	}
	if len(s) == 1 && '0' <= s[0] && s[0] <= '9' {
		return Dial(int(s[0] - '0'))
	}
	return Extension(s), nil
}

// ParseDialString decodes a remote or console dial sequence.
//
// 0-9 are digits, 'p' is picking up and 'h' is hanging up.  All
// other characters are ignored.
func ParseDialString(s string) []Symbol {
	acc := make([]Symbol, 0, len(s))
	for _, c := range s {
		switch {
		case '0' <= c && c <= '9':
			acc = append(acc, Symbol{Kind: DialKind, Digit: int(c - '0')})
		case c == 'p':
			acc = append(acc, PickUp())
		case c == 'h':
			acc = append(acc, HangUp())
		}
	}
	return acc
}
