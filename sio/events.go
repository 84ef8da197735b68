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

package sio

import (
	"context"
	"errors"
	"sync"

	"github.com/Comcast/fernspiel/core"
)

var (
	// ErrClosed is returned by Post after the Events have been
	// closed.
	ErrClosed = errors.New("events closed")

	// DefaultEventsSize is the buffer size used by NewEvents when
	// given a non-positive size.
	DefaultEventsSize = 64
)

// Events is the single queue between all producers and the Engine.
//
// Any number of goroutines may Post.  Only the Engine calls Next.
// Events posted by one goroutine are delivered in the order posted,
// and every posted event is delivered exactly once.
type Events struct {
	c    chan core.Event
	done chan struct{}
	once sync.Once
}

// NewEvents makes Events with the given buffer size.
func NewEvents(size int) *Events {
	if size <= 0 {
		size = DefaultEventsSize
	}
	return &Events{
		c:    make(chan core.Event, size),
		done: make(chan struct{}),
	}
}

// Post queues an event.  Post blocks only while the buffer is full.
func (es *Events) Post(ctx context.Context, ev core.Event) error {
	select {
	case <-es.done:
		return ErrClosed
	default:
	}

	select {
	case es.c <- ev:
		return nil
	case <-es.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PostSymbols posts each symbol as a SymbolEvent, in order.
func (es *Events) PostSymbols(ctx context.Context, ss ...core.Symbol) error {
	for _, ev := range core.Symbols(ss...) {
		if err := es.Post(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Next waits for the next event.
func (es *Events) Next(ctx context.Context) (core.Event, error) {
	select {
	case ev := <-es.c:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close makes every subsequent Post fail with ErrClosed.  Events
// already queued are dropped with the Events.
func (es *Events) Close() {
	es.once.Do(func() {
		close(es.done)
	})
}

// Closed is closed by Close.
func (es *Events) Closed() <-chan struct{} {
	return es.done
}
