package storage

import (
	"context"
	"sync"

	"github.com/Comcast/fernspiel/sio"
	"github.com/Comcast/fernspiel/util/logger"
)

// Recorder is an sio.Observer that writes Transitions to a Journal
// from its own goroutine.
//
// When the Journal falls behind by more than the buffer, transitions
// are dropped and logged.
type Recorder struct {
	journal Journal
	c       chan *sio.Transition
	once    sync.Once
	done    chan struct{}
}

// NewRecorder makes a Recorder with the given buffer size.
func NewRecorder(j Journal, size int) *Recorder {
	if size <= 0 {
		size = 64
	}
	return &Recorder{
		journal: j,
		c:       make(chan *sio.Transition, size),
		done:    make(chan struct{}),
	}
}

// Observe queues the transition.
func (r *Recorder) Observe(ctx context.Context, t *sio.Transition) {
	select {
	case <-r.done:
		return
	default:
	}
	select {
	case r.c <- t:
	default:
		logger.WarnKV(ctx, "journal behind", "to", t.To)
	}
}

// Run writes queued transitions until Close (after which it drains
// what's queued) or the context is done.
func (r *Recorder) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "recorder")
	write := func(t *sio.Transition) {
		if err := r.journal.Record(ctx, &Entry{Transition: t}); err != nil {
			logger.WarnKV(ctx, "journal record", "to", t.To, "error", err)
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-r.c:
			write(t)
		case <-r.done:
			for {
				select {
				case t := <-r.c:
					write(t)
				default:
					return nil
				}
			}
		}
	}
}

// Close makes Run return once the queue is empty.
func (r *Recorder) Close() {
	r.once.Do(func() {
		close(r.done)
	})
}
