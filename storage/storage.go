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

// Package storage journals transitions.
//
// The journal is a record of what happened.  Nothing reads it back
// into an Engine.
package storage

import (
	"context"

	"github.com/Comcast/fernspiel/sio"
)

// Entry is a journaled Transition.
type Entry struct {
	// Seq is assigned by the Journal and increases with each
	// Record.
	Seq uint64 `json:"seq"`

	Transition *sio.Transition `json:"transition"`
}

// Journal is a persistence interface for Entries.
type Journal interface {
	Open(ctx context.Context) error

	// Record assigns e.Seq and stores the entry.
	Record(ctx context.Context, e *Entry) error

	// Recent returns up to n of the latest entries, oldest first.
	Recent(ctx context.Context, n int) ([]*Entry, error)

	Close(ctx context.Context) error
}
