package sio

import (
	"context"

	"github.com/Comcast/fernspiel/util/logger"
)

// LogActuator logs every command at info level.  It's the actuator of
// last resort when no sound or bell driver is connected.
type LogActuator struct{}

func (LogActuator) Actuate(ctx context.Context, c *Command) error {
	switch c.Op {
	case OpRing:
		logger.InfoKV(ctx, "ring", "state", c.State, "ring", c.Ring)
	case OpStop:
		logger.InfoKV(ctx, "stop", "state", c.State, "sound", c.Sound)
	default:
		logger.InfoKV(ctx, "play", "state", c.State, "sound", c.Sound, "loop", c.Loop,
			"volume", c.Volume, "backoff", c.Backoff, "speech", c.Speech, "file", c.File)
	}
	return nil
}
