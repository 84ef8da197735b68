package sio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Comcast/fernspiel/core"
	"github.com/Comcast/fernspiel/util/logger"

	"github.com/gorhill/cronexpr"
)

// Schedule posts a symbol at the times given by a cron expression.
//
// Expressions follow github.com/gorhill/cronexpr, so seven fields
// start with seconds.
type Schedule struct {
	Cron   string
	Symbol core.Symbol

	expr *cronexpr.Expression
}

// NewSchedule parses the cron expression and the symbol.
func NewSchedule(cron, symbol string) (*Schedule, error) {
	expr, err := cronexpr.Parse(cron)
	if err != nil {
		return nil, fmt.Errorf("bad cron %q: %w", cron, err)
	}
	sym, err := core.ParseSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return &Schedule{
		Cron:   cron,
		Symbol: sym,
		expr:   expr,
	}, nil
}

// Next returns the first time after from, which is zero if there
// isn't one.
func (s *Schedule) Next(from time.Time) time.Time {
	return s.expr.Next(from)
}

// Run posts the symbol at each scheduled time until the context is
// done, the Events are closed or the schedule runs out.
func (s *Schedule) Run(ctx context.Context, events *Events) error {
	ctx = logger.WithKV(ctx, "cron", s.Cron, "symbol", s.Symbol.String())
	for {
		now := time.Now()
		next := s.Next(now)
		if next.IsZero() {
			logger.InfoKV(ctx, "schedule exhausted")
			return nil
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-events.Closed():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		logger.DebugKV(ctx, "scheduled")
		if err := events.Post(ctx, core.SymbolEvent{Symbol: s.Symbol}); err != nil {
			if err == ErrClosed {
				return nil
			}
			return err
		}
	}
}

// RunSchedules runs all the schedules and waits for them.
func RunSchedules(ctx context.Context, events *Events, ss []*Schedule) {
	var wg sync.WaitGroup
	for _, s := range ss {
		wg.Add(1)
		go func(s *Schedule) {
			defer wg.Done()
			if err := s.Run(ctx, events); err != nil && err != context.Canceled {
				logger.WarnKV(ctx, "schedule", "cron", s.Cron, "error", err)
			}
		}(s)
	}
	wg.Wait()
}
