/* Copyright 2026 Comcast Cable Communications Management, LLC
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

// Package core provides the phonebook model and the transition step
// for a telephone installation driven by a declarative state machine.
//
// A phonebook is a set of states (each with sounds, a ring parameter
// and a terminal flag), a transition table keyed by state id, and a
// set of sounds.  The reserved transition key "any" holds universal
// rules that apply when the current state has no rule of its own for
// a symbol.
//
// The primary type is Book, which is built from a BookSpec by
// Compile().  Compile resolves every state and sound id to an index,
// so a Book never needs to look anything up by name at runtime.  The
// primary method is Step(), which takes the current state, a single
// Event and the currently armed timer Generation, and reports at most
// one transition as a Stride.
//
// Step has no side effects.  Rearming timers and starting or stopping
// sounds is the job of the caller (see package sio), which must do
// both exactly once for each Stride that transitioned.
//
// A Book is never modified after Compile.
package core
