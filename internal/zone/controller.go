// Package zone runs the per-zone control loop: on each tick it gates on the
// polling interval, reads the aggregated zone temperature, applies the
// sensitivity threshold and writes a new fan level when the curve says so.
package zone

import (
	"context"
	"math"
	"time"

	"codeberg.org/mutker/smfanctl/internal/curve"
	"codeberg.org/mutker/smfanctl/internal/errors"
	"codeberg.org/mutker/smfanctl/internal/ipmi"
	"codeberg.org/mutker/smfanctl/internal/logger"
)

// TemperatureReader is the sensor port. sensor.Source implements it.
type TemperatureReader interface {
	Read() (float64, error)
}

// LevelWriter is the fan output port. ipmi.Controller implements it.
type LevelWriter interface {
	SetFanLevel(ctx context.Context, zone ipmi.Zone, level int) error
}

// Hook runs before a zone samples its temperature and reports whether it
// changed state of its own. The disk zone uses it for the standby guard.
type Hook interface {
	Run(ctx context.Context) (bool, error)
}

// Config holds a zone's immutable control parameters.
type Config struct {
	Name        string
	IpmiZone    ipmi.Zone
	Count       int
	Steps       int
	Sensitivity float64
	Polling     time.Duration
	MinTemp     float64
	MaxTemp     float64
	MinLevel    int
	MaxLevel    int
}

// Controller owns one zone's runtime state. It is not safe for concurrent
// use; the scheduler drives all zones from a single goroutine.
type Controller struct {
	cfg    Config
	curve  *curve.Curve
	source TemperatureReader
	writer LevelWriter
	hook   Hook

	now       func() time.Time
	lastPoll  time.Time
	lastTemp  float64
	lastLevel int
	lastStep  int
}

func New(cfg Config, source TemperatureReader, writer LevelWriter, hook Hook) (*Controller, error) {
	errFactory := errors.New()

	if !cfg.IpmiZone.IsValid() {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "invalid IPMI zone")
	}
	if cfg.Count <= 0 {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "count must be positive")
	}
	if cfg.Sensitivity <= 0 {
		return nil, errFactory.WithData(errors.ErrInvalidSensitivity, cfg.Sensitivity)
	}
	if cfg.Polling < 0 {
		return nil, errFactory.WithData(errors.ErrInvalidInterval, cfg.Polling)
	}

	crv, err := curve.New(cfg.MinTemp, cfg.MaxTemp, cfg.Steps, cfg.MinLevel, cfg.MaxLevel)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:    cfg,
		curve:  crv,
		source: source,
		writer: writer,
		hook:   hook,
		now:    time.Now,
	}

	// Backdate the poll timestamp so the first tick always samples.
	c.lastPoll = c.now().Add(-(cfg.Polling + time.Second))

	logger.Debug().
		Str("zone", cfg.Name).
		Int("count", cfg.Count).
		Int("steps", cfg.Steps).
		Float64("sensitivity", cfg.Sensitivity).
		Dur("polling", cfg.Polling).
		Float64("min_temp", cfg.MinTemp).
		Float64("max_temp", cfg.MaxTemp).
		Int("min_level", cfg.MinLevel).
		Int("max_level", cfg.MaxLevel).
		Msg("Zone controller initialized")
	c.logMapping()

	return c, nil
}

// logMapping dumps the temperature:level staircase at DEBUG level.
func (c *Controller) logMapping() {
	for i := 0; i <= c.curve.Steps(); i++ {
		logger.Debug().
			Str("zone", c.cfg.Name).
			Int("step", i).
			Float64("temperature", c.curve.StepTemperature(i)).
			Int("level", c.curve.StepLevel(i)).
			Msg("Temperature:level mapping")
	}
}

// Tick runs one pass of the zone state machine and reports whether it
// changed state: a new fan level was applied or the hook transitioned.
// Gated and steady ticks report false. A failed read or write aborts the
// tick; the state then reflects the last successful tick and the next
// scheduled tick retries naturally.
func (c *Controller) Tick(ctx context.Context) (bool, error) {
	// Polling gate: before the interval elapses a tick is a pure no-op.
	now := c.now()
	if now.Sub(c.lastPoll) < c.cfg.Polling {
		return false, nil
	}
	// The timestamp advances before sampling, so a failed tick retries on
	// the next regular interval rather than immediately.
	c.lastPoll = now

	changed := false
	if c.hook != nil {
		transitioned, err := c.hook.Run(ctx)
		if err != nil {
			return false, err
		}
		changed = transitioned
	}

	temp, err := c.source.Read()
	if err != nil {
		return false, err
	}
	logger.Debug().Str("zone", c.cfg.Name).Float64("temperature", temp).Msg("New temperature")

	if math.Abs(temp-c.lastTemp) < c.cfg.Sensitivity {
		return changed, nil
	}
	c.lastTemp = temp

	level, step := c.curve.Level(temp)
	if level == c.lastLevel {
		return changed, nil
	}
	c.lastLevel = level
	c.lastStep = step

	if err := c.writer.SetFanLevel(ctx, c.cfg.IpmiZone, level); err != nil {
		return false, err
	}

	logger.Info().
		Str("zone", c.cfg.Name).
		Float64("temperature", temp).
		Float64("step_temperature", c.curve.StepTemperature(step)).
		Int("level", level).
		Msg("New fan level")

	return true, nil
}

func (c *Controller) Name() string {
	return c.cfg.Name
}

func (c *Controller) Polling() time.Duration {
	return c.cfg.Polling
}

// LastTemperature returns the last accepted temperature.
func (c *Controller) LastTemperature() float64 {
	return c.lastTemp
}

// LastLevel returns the last applied fan level.
func (c *Controller) LastLevel() int {
	return c.lastLevel
}

// LastStep returns the staircase step of the last applied level.
func (c *Controller) LastStep() int {
	return c.lastStep
}
