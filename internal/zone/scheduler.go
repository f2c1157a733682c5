package zone

import (
	"context"
	"time"

	"codeberg.org/mutker/smfanctl/internal/errors"
	"codeberg.org/mutker/smfanctl/internal/logger"
)

// Observer is notified after every tick that changed a controller's state,
// an applied level or a guard transition. The orchestrator uses it to
// record metrics snapshots; gated and steady ticks record nothing.
type Observer func(ctx context.Context, c *Controller)

// Scheduler drives all enabled zones from one goroutine, waking at half of
// the smallest polling interval so no zone's own gate can drift.
type Scheduler struct {
	controllers []*Controller
	wait        time.Duration
	observer    Observer
}

func NewScheduler(controllers []*Controller, observer Observer) (*Scheduler, error) {
	errFactory := errors.New()

	if len(controllers) == 0 {
		return nil, errFactory.New(errors.ErrNoZoneEnabled)
	}

	wait := controllers[0].Polling()
	for _, c := range controllers[1:] {
		if c.Polling() < wait {
			wait = c.Polling()
		}
	}
	wait /= 2
	// The ticker needs a positive period.
	if wait < 100*time.Millisecond {
		wait = 100 * time.Millisecond
	}

	logger.Debug().Dur("wait", wait).Msg("Scheduler initialized")

	return &Scheduler{controllers: controllers, wait: wait, observer: observer}, nil
}

// Run loops until the context is cancelled. A zone's tick failure is logged
// at ERROR and the remaining zones still run; cancellation is checked
// between ticks, so the granularity is "finish current tick, then stop".
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.wait)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, c := range s.controllers {
				changed, err := c.Tick(ctx)
				if err != nil {
					var appErr errors.Error
					if errors.As(err, &appErr) {
						logger.ErrorWithCode(appErr).Str("zone", c.Name()).Msg("Zone tick failed")
					} else {
						logger.Error().Err(err).Str("zone", c.Name()).Msg("Zone tick failed")
					}

					continue
				}
				if changed && s.observer != nil {
					s.observer(ctx, c)
				}
			}
		}
	}
}

// Wait returns the computed sleep interval between scheduler wake-ups.
func (s *Scheduler) Wait() time.Duration {
	return s.wait
}
