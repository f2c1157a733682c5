// Package ipmi drives the Super Micro BMC fan interface through ipmitool
// raw commands. Zone levels only take effect while the BMC is in full
// (manual) fan mode.
package ipmi

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/smfanctl/internal/errors"
	"codeberg.org/mutker/smfanctl/internal/logger"
)

type FanMode int

const (
	StandardMode FanMode = 0
	FullMode     FanMode = 1
	OptimalMode  FanMode = 2
	HeavyIOMode  FanMode = 4
)

func (m FanMode) IsValid() bool {
	switch m {
	case StandardMode, FullMode, OptimalMode, HeavyIOMode:
		return true
	default:
		return false
	}
}

func (m FanMode) String() string {
	switch m {
	case StandardMode:
		return "STANDARD_MODE"
	case FullMode:
		return "FULL_MODE"
	case OptimalMode:
		return "OPTIMAL_MODE"
	case HeavyIOMode:
		return "HEAVY_IO_MODE"
	default:
		return "UNKNOWN_MODE"
	}
}

type Zone int

const (
	CPUZone Zone = 0
	HDZone  Zone = 1
)

func (z Zone) IsValid() bool {
	return z == CPUZone || z == HDZone
}

func (z Zone) String() string {
	if z == CPUZone {
		return "CPU zone"
	}

	return "HD zone"
}

// Runner executes an external command and returns its stdout. It exists so
// tests can run the controller without a BMC.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()

	return string(out), err
}

const execTimeout = 10 * time.Second

// Controller issues fan mode and fan level commands with the settling
// delays the BMC needs after each write.
type Controller struct {
	command       string
	fanModeDelay  time.Duration
	fanLevelDelay time.Duration
	runner        Runner
}

func New(command string, fanModeDelay, fanLevelDelay time.Duration) (*Controller, error) {
	return NewWithRunner(command, fanModeDelay, fanLevelDelay, execRunner{})
}

func NewWithRunner(command string, fanModeDelay, fanLevelDelay time.Duration, runner Runner) (*Controller, error) {
	errFactory := errors.New()

	if fanModeDelay < 0 {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "negative fan_mode_delay")
	}
	if fanLevelDelay < 0 {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "negative fan_level_delay")
	}

	c := &Controller{
		command:       command,
		fanModeDelay:  fanModeDelay,
		fanLevelDelay: fanLevelDelay,
		runner:        runner,
	}

	// Probe the command once so a missing or broken ipmitool fails at
	// construction instead of on the first tick.
	ctx, cancel := context.WithTimeout(context.Background(), execTimeout)
	defer cancel()
	if _, err := c.runner.Run(ctx, c.command, "sdr"); err != nil {
		return nil, errFactory.Wrap(errors.ErrIpmiUnavailable, err)
	}

	logger.Debug().
		Str("command", c.command).
		Dur("fan_mode_delay", c.fanModeDelay).
		Dur("fan_level_delay", c.fanLevelDelay).
		Msg("IPMI controller initialized")

	return c, nil
}

// GetFanMode reads the current BMC fan mode.
func (c *Controller) GetFanMode(ctx context.Context) (FanMode, error) {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	out, err := c.runner.Run(ctx, c.command, "raw", "0x30", "0x45", "0x00")
	if err != nil {
		return 0, errFactory.Wrap(errors.ErrGetFanMode, err)
	}

	mode, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, errFactory.Wrap(errors.ErrGetFanMode, err)
	}

	return FanMode(mode), nil
}

// SetFanMode switches the BMC fan mode and waits for it to settle.
func (c *Controller) SetFanMode(ctx context.Context, mode FanMode) error {
	errFactory := errors.New()

	if !mode.IsValid() {
		return errFactory.WithData(errors.ErrInvalidArgument, mode)
	}

	execCtx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	if _, err := c.runner.Run(execCtx, c.command, "raw", "0x30", "0x45", "0x01",
		strconv.Itoa(int(mode))); err != nil {
		return errFactory.Wrap(errors.ErrSetFanMode, err)
	}

	// The BMC applies a mode change asynchronously.
	sleepCtx(ctx, c.fanModeDelay)

	return nil
}

// SetFanLevel sets a zone's fan level in percent and waits for the fans to
// spin up or down.
func (c *Controller) SetFanLevel(ctx context.Context, zone Zone, level int) error {
	errFactory := errors.New()

	if !zone.IsValid() {
		return errFactory.WithData(errors.ErrInvalidArgument, zone)
	}
	if level < 0 || level > 100 {
		return errFactory.WithData(errors.ErrInvalidArgument, level)
	}

	execCtx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	if _, err := c.runner.Run(execCtx, c.command, "raw", "0x30", "0x70", "0x66", "0x01",
		strconv.Itoa(int(zone)), strconv.Itoa(level)); err != nil {
		return errFactory.Wrap(errors.ErrSetFanLevel, err)
	}

	sleepCtx(ctx, c.fanLevelDelay)

	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
