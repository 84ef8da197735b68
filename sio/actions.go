package sio

import (
	"context"
	"sync"
	"time"

	"github.com/Comcast/fernspiel/core"
	"github.com/Comcast/fernspiel/util/logger"
)

// Op is the kind of a Command.
type Op string

const (
	OpPlay Op = "play"
	OpStop Op = "stop"
	OpRing Op = "ring"
)

// Command is a single instruction for the sound and bell drivers.
type Command struct {
	Op Op `json:"op"`

	// State is the id of the state being entered.
	State string `json:"state"`

	// Sound is the sound id for OpPlay and OpStop.
	Sound   string        `json:"sound,omitempty"`
	Loop    bool          `json:"loop,omitempty"`
	Speech  string        `json:"speech,omitempty"`
	File    string        `json:"file,omitempty"`
	Volume  float64       `json:"volume,omitempty"`
	Backoff time.Duration `json:"backoff,omitempty"`

	StartOffset time.Duration `json:"start_offset,omitempty"`

	// Ring is the parameter for OpRing, handed on verbatim.
	Ring float64 `json:"ring,omitempty"`
}

// Actuator performs Commands.  An Actuator is called from a single
// goroutine, so it may block, but it should not block for long.
type Actuator interface {
	Actuate(ctx context.Context, c *Command) error
}

// ActuatorFunc is a function that's an Actuator.
type ActuatorFunc func(ctx context.Context, c *Command) error

func (f ActuatorFunc) Actuate(ctx context.Context, c *Command) error {
	return f(ctx, c)
}

// DefaultQueueSize is used by NewQueue when given a non-positive
// size.
var DefaultQueueSize = 128

// Queue hands Commands to Actuators without ever blocking the caller.
//
// When the queue is full, commands are dropped and counted.
type Queue struct {
	c         chan *Command
	actuators []Actuator
	metrics   *Metrics

	sync.Mutex
	closed bool
}

// NewQueue makes a Queue that delivers to the given actuators.
func NewQueue(size int, metrics *Metrics, actuators ...Actuator) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		c:         make(chan *Command, size),
		actuators: actuators,
		metrics:   metrics,
	}
}

// Enqueue adds the command to the queue if there's room.  Returns
// false if the command was dropped.
func (q *Queue) Enqueue(c *Command) bool {
	q.Lock()
	defer q.Unlock()

	if q.closed {
		q.metrics.DroppedCommand()
		return false
	}

	select {
	case q.c <- c:
		return true
	default:
		q.metrics.DroppedCommand()
		return false
	}
}

// Run delivers commands until the queue is closed and drained or the
// context is done.
//
// Each command is given to every actuator in the order the actuators
// were given to NewQueue.  An actuator error is logged and otherwise
// ignored.
func (q *Queue) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "queue")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-q.c:
			if !ok {
				return nil
			}
			for _, a := range q.actuators {
				if err := a.Actuate(ctx, c); err != nil {
					logger.WarnKV(ctx, "actuate", "op", c.Op, "sound", c.Sound, "error", err)
				}
			}
		}
	}
}

// Close stops accepting commands.  Run returns after delivering what
// remains.
func (q *Queue) Close() {
	q.Lock()
	defer q.Unlock()
	if !q.closed {
		q.closed = true
		close(q.c)
	}
}

// Actions computes the side effects of entering a state and hands
// them to a Queue.
type Actions struct {
	queue *Queue
}

// NewActions makes Actions that enqueue to the given queue, which may
// be nil for computation only.
func NewActions(q *Queue) *Actions {
	return &Actions{
		queue: q,
	}
}

// Commands computes the commands for moving from leaving to
// entering.
//
// First every sound of leaving that entering doesn't have is stopped.
// Then every sound of entering is played in the order declared.
// Finally the bell is rung if entering has a positive ring.
//
// A nil leaving means nothing was playing.  A sound that both states
// have is played again rather than stopped, and a driver that already
// has it playing should carry on.
func (as *Actions) Commands(leaving, entering *core.State) []*Command {
	var cs []*Command

	if leaving != nil {
		for _, snd := range leaving.Sounds {
			if entering.HasSound(snd.Id) {
				continue
			}
			cs = append(cs, &Command{
				Op:    OpStop,
				State: entering.Id,
				Sound: snd.Id,
			})
		}
	}

	for _, snd := range entering.Sounds {
		cs = append(cs, &Command{
			Op:      OpPlay,
			State:   entering.Id,
			Sound:   snd.Id,
			Loop:    snd.Loop,
			Speech:  snd.Speech,
			File:    snd.File,
			Volume:  snd.Volume,
			Backoff: snd.Backoff,

			StartOffset: snd.StartOffset,
		})
	}

	if 0 < entering.Ring {
		cs = append(cs, &Command{
			Op:    OpRing,
			State: entering.Id,
			Ring:  entering.Ring,
		})
	}

	return cs
}

// Apply enqueues the commands for moving from leaving to entering and
// returns them.  Apply never blocks.
func (as *Actions) Apply(ctx context.Context, leaving, entering *core.State) []*Command {
	cs := as.Commands(leaving, entering)
	if as.queue == nil {
		return cs
	}
	for _, c := range cs {
		if !as.queue.Enqueue(c) {
			logger.WarnKV(ctx, "dropped command", "op", c.Op, "sound", c.Sound, "state", c.State)
		}
	}
	return cs
}
