package core

// Load faults are user errors: a phonebook that doesn't hold
// together.  An InternalConsistencyFault is our error.

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMissingInitial occurs when a phonebook doesn't name its initial
// state.
var ErrMissingInitial = errors.New("phonebook declares no initial state")

// BadReference occurs when a state or sound id is used but not
// declared.
type BadReference struct {
	// Where is the part of the phonebook with the reference.
	Where string

	// Kind is "state" or "sound".
	Kind string

	Ref string
}

func (e *BadReference) Error() string {
	return e.Kind + ` "` + e.Ref + `" referenced by ` + e.Where + ` does not exist`
}

// BadAttribute occurs when an attribute has a value we can't use.
type BadAttribute struct {
	Where     string
	Attribute string
	Reason    string
}

func (e *BadAttribute) Error() string {
	return e.Where + ": " + e.Attribute + ": " + e.Reason
}

// LoadFault collects everything wrong with a phonebook.  A phonebook
// with a LoadFault is never run.
type LoadFault struct {
	Errors []error
}

func (e *LoadFault) Error() string {
	if len(e.Errors) == 1 {
		return "phonebook: " + e.Errors[0].Error()
	}
	var b strings.Builder
	b.WriteString("phonebook: ")
	b.WriteString(strconv.Itoa(len(e.Errors)))
	b.WriteString(" problems:")
	for _, err := range e.Errors {
		b.WriteString("\n  ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes the individual problems to errors.Is and errors.As.
func (e *LoadFault) Unwrap() []error {
	return e.Errors
}

// UnknownState occurs when Lookup is given an id that isn't in the
// Book.
type UnknownState struct {
	Id string
}

func (e *UnknownState) Error() string {
	return `state "` + e.Id + `" not found`
}

// InternalConsistencyFault occurs when a compiled Book is asked for a
// state it doesn't have.  Compile should make that impossible, so
// this error means a bug.  Nobody should try to recover from it.
type InternalConsistencyFault struct {
	Index  int
	States int
}

func (e *InternalConsistencyFault) Error() string {
	return "internal consistency fault: state index " + strconv.Itoa(e.Index) +
		" outside of " + strconv.Itoa(e.States) + " states"
}
