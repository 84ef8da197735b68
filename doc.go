// Package fernspiel drives an interactive telephone installation from
// a declarative phonebook.
//
// The phonebook model and the transition step are in package 'core',
// the running engine and its producers and actuators are in 'sio', and
// the command-line tool is in `cmd/fernspiel`.
package fernspiel
