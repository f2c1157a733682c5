// Package curve maps temperatures to discrete fan levels using a linear
// step table derived from the zone's temperature and level ranges.
package curve

import (
	"math"

	"codeberg.org/mutker/smfanctl/internal/errors"
)

// Curve is immutable after construction. The step sizes are derived from the
// configured ranges and never stored independently of their inputs.
type Curve struct {
	minTemp   float64
	maxTemp   float64
	steps     int
	minLevel  int
	maxLevel  int
	tempStep  float64
	levelStep float64
}

func New(minTemp, maxTemp float64, steps, minLevel, maxLevel int) (*Curve, error) {
	errFactory := errors.New()

	if steps < 1 {
		return nil, errFactory.WithData(errors.ErrInvalidSteps, steps)
	}
	if maxTemp < minTemp {
		return nil, errFactory.WithData(errors.ErrInvalidTempRange, struct {
			Min, Max float64
		}{minTemp, maxTemp})
	}
	if maxLevel < minLevel || minLevel < 0 || maxLevel > 100 {
		return nil, errFactory.WithData(errors.ErrInvalidLevelRange, struct {
			Min, Max int
		}{minLevel, maxLevel})
	}

	return &Curve{
		minTemp:   minTemp,
		maxTemp:   maxTemp,
		steps:     steps,
		minLevel:  minLevel,
		maxLevel:  maxLevel,
		tempStep:  (maxTemp - minTemp) / float64(steps),
		levelStep: float64(maxLevel-minLevel) / float64(steps),
	}, nil
}

// Level returns the fan level and staircase step for a temperature.
// Rounding is round-half-to-even (math.RoundToEven); the mapping is
// monotonic non-decreasing over the whole domain.
func (c *Curve) Level(temp float64) (level, step int) {
	switch {
	case temp <= c.minTemp:
		return c.minLevel, 0
	case temp >= c.maxTemp:
		return c.maxLevel, c.steps
	default:
		step = int(math.RoundToEven((temp - c.minTemp) / c.tempStep))
		level = int(math.RoundToEven(float64(step)*c.levelStep)) + c.minLevel

		return level, step
	}
}

// StepTemperature returns the temperature at the lower boundary of a step.
func (c *Curve) StepTemperature(step int) float64 {
	return c.minTemp + float64(step)*c.tempStep
}

// StepLevel returns the fan level assigned to a step.
func (c *Curve) StepLevel(step int) int {
	return int(math.RoundToEven(float64(step)*c.levelStep)) + c.minLevel
}

func (c *Curve) Steps() int {
	return c.steps
}
