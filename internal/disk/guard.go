package disk

import (
	"context"
	"strings"
	"time"

	"codeberg.org/mutker/smfanctl/internal/errors"
	"codeberg.org/mutker/smfanctl/internal/logger"
)

const hoursPerSecond = 3600.0

// Guard synchronizes the power state of a disk array. Once enough disks
// have idled down on their own, the remaining active disks are forced to
// standby so the array does not thrash between mixed states. The reverse
// transition (any disk waking up) is observed and logged only.
type Guard struct {
	devices   []string
	limit     int
	querier   StandbyQuerier
	writer    StandbyWriter
	states    []bool
	standby   bool
	changedAt time.Time
}

// GuardEnabled reports whether an array of the given size should run a
// standby guard. A single disk cannot desynchronize from itself, so it is
// never guarded, the configured flag notwithstanding.
func GuardEnabled(configured bool, disks int) bool {
	return configured && disks > 1
}

// NewGuard performs one real query to seed the per-disk states and the
// aggregate flag. The limit must lie in [1, disk count]; a single-disk
// array cannot desynchronize from itself, so callers disable the guard
// instead of constructing one.
func NewGuard(ctx context.Context, devices []string, limit int, querier StandbyQuerier, writer StandbyWriter) (*Guard, error) {
	errFactory := errors.New()

	if len(devices) < 2 {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "standby guard needs at least two disks")
	}
	if limit < 1 || limit > len(devices) {
		return nil, errFactory.WithData(errors.ErrInvalidStandbyLimit, limit)
	}

	g := &Guard{
		devices: devices,
		limit:   limit,
		querier: querier,
		writer:  writer,
		states:  make([]bool, len(devices)),
	}

	count, err := g.refreshStates(ctx)
	if err != nil {
		return nil, err
	}
	g.standby = count == len(devices)
	g.changedAt = time.Now()

	logger.Debug().
		Int("disks", len(devices)).
		Int("standby_limit", limit).
		Bool("all_standby", g.standby).
		Msg("Standby guard initialized")

	return g, nil
}

// Run is invoked as a zone's pre-sample hook. It queries every disk once,
// forces the remainder of the array down when the limit is crossed, and
// flips the aggregate flag on wake-up. It reports whether the aggregate
// state transitioned.
func (g *Guard) Run(ctx context.Context) (bool, error) {
	count, err := g.refreshStates(ctx)
	if err != nil {
		return false, err
	}

	now := time.Now()

	switch {
	case !g.standby && count >= g.limit:
		logger.Info().
			Float64("hours", now.Sub(g.changedAt).Seconds()/hoursPerSecond).
			Str("states", g.StateString()).
			Msg("Standby guard: changing ACTIVE to STANDBY")
		if err := g.forceStandby(ctx); err != nil {
			return false, err
		}
		g.standby = true
		g.changedAt = now

		return true, nil
	case g.standby && count < len(g.devices):
		logger.Info().
			Float64("hours", now.Sub(g.changedAt).Seconds()/hoursPerSecond).
			Str("states", g.StateString()).
			Msg("Standby guard: changed STANDBY to ACTIVE")
		g.standby = false
		g.changedAt = now

		return true, nil
	}

	return false, nil
}

// refreshStates queries every disk in configured order and returns the
// number currently in standby.
func (g *Guard) refreshStates(ctx context.Context) (int, error) {
	count := 0
	for i, device := range g.devices {
		standby, err := g.querier.QueryStandby(ctx, device)
		if err != nil {
			return 0, err
		}
		g.states[i] = standby
		if standby {
			count++
		}
	}

	return count, nil
}

// forceStandby spins down every disk still reporting active, in configured
// order. The first write failure aborts the action.
func (g *Guard) forceStandby(ctx context.Context) error {
	for i, device := range g.devices {
		if g.states[i] {
			continue
		}
		if err := g.writer.ForceStandby(ctx, device); err != nil {
			return err
		}
		g.states[i] = true
	}

	return nil
}

// StateString renders the array state one character per disk, 'A' for
// active and 'S' for standby, in configured order.
func (g *Guard) StateString() string {
	var b strings.Builder
	for _, standby := range g.states {
		if standby {
			b.WriteByte('S')
		} else {
			b.WriteByte('A')
		}
	}

	return b.String()
}

// AllStandby reports the aggregate flag.
func (g *Guard) AllStandby() bool {
	return g.standby
}
