package sio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/Comcast/fernspiel/core"
	"github.com/Comcast/fernspiel/util/logger"
)

// ErrNoSound means a done report without a sound.
var ErrNoSound = errors.New("done report has no sound")

// Ending turns drivers' reports of finished sounds into the end
// symbol (core.End).
//
// When a state is entered, every non-looping sound it plays is
// awaited.  Once the last of them is reported Done, the end symbol is
// posted, so a phonebook can say
//
//	transitions:
//	  introduce:
//	    on: {end: talk}
//
// A state without non-looping sounds doesn't end this way.
type Ending struct {
	events *Events

	sync.Mutex
	state   string
	pending map[string]bool
}

// NewEnding makes an Ending that posts to the given events.
func NewEnding(events *Events) *Ending {
	return &Ending{
		events: events,
	}
}

// Observe starts waiting for the sounds of the entered state.
func (en *Ending) Observe(ctx context.Context, t *Transition) {
	en.Lock()
	defer en.Unlock()

	en.state = t.To
	en.pending = nil
	for _, c := range t.Commands {
		if c.Op != OpPlay || c.Loop {
			continue
		}
		if en.pending == nil {
			en.pending = make(map[string]bool, 2)
		}
		en.pending[c.Sound] = true
	}
}

// Awaiting returns the current state and how many of its sounds
// haven't finished.
func (en *Ending) Awaiting() (string, int) {
	en.Lock()
	defer en.Unlock()
	return en.state, len(en.pending)
}

// Done reports that a sound has finished.  The state is the one the
// sound was played for, and an empty state means whatever is current.
//
// Reports for another state or for sounds that aren't awaited are
// ignored.  Returns true if the end symbol was posted.
func (en *Ending) Done(ctx context.Context, state, sound string) (bool, error) {
	en.Lock()
	if (state != "" && state != en.state) || !en.pending[sound] {
		en.Unlock()
		logger.DebugKV(ctx, "ignoring done", "state", state, "sound", sound)
		return false, nil
	}
	delete(en.pending, sound)
	ended := len(en.pending) == 0
	if ended {
		en.pending = nil
	}
	current := en.state
	en.Unlock()

	if !ended {
		return false, nil
	}

	logger.DebugKV(ctx, "sounds ended", "state", current)
	if err := en.events.Post(ctx, core.SymbolEvent{Symbol: core.End()}); err != nil {
		return false, err
	}
	return true, nil
}

// DoneReport is what a driver sends when a sound has finished.  A
// driver can send back the play Command itself.
type DoneReport struct {
	State string `json:"state,omitempty"`
	Sound string `json:"sound"`
}

// ParseDone reads a DoneReport as JSON or, failing that, takes the
// whole payload as the sound id.
func ParseDone(payload []byte) (*DoneReport, error) {
	payload = bytes.TrimSpace(payload)
	var r DoneReport
	if bytes.HasPrefix(payload, []byte("{")) {
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, err
		}
	} else {
		r.Sound = string(payload)
	}
	r.Sound = strings.TrimSpace(r.Sound)
	if r.Sound == "" {
		return nil, ErrNoSound
	}
	return &r, nil
}
