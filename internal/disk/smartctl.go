// Package disk queries and controls the power state of a disk array and
// keeps its members moving between ACTIVE and STANDBY together.
package disk

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"codeberg.org/mutker/smfanctl/internal/errors"
)

// StandbyQuerier reads a disk's power state. True means the disk reports
// STANDBY.
type StandbyQuerier interface {
	QueryStandby(ctx context.Context, device string) (bool, error)
}

// StandbyWriter spins a disk down.
type StandbyWriter interface {
	ForceStandby(ctx context.Context, device string) error
}

// Runner executes an external command, returning stdout and the exit code.
// The error is reserved for spawn failures and timeouts.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, int, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, int, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), exitErr.ExitCode(), nil
		}

		return "", 0, err
	}

	return string(out), 0, nil
}

const execTimeout = 10 * time.Second

// SmartCtl implements the standby query and write ports with smartctl.
type SmartCtl struct {
	command string
	runner  Runner
}

func NewSmartCtl(command string) *SmartCtl {
	return &SmartCtl{command: command, runner: execRunner{}}
}

func NewSmartCtlWithRunner(command string, runner Runner) *SmartCtl {
	return &SmartCtl{command: command, runner: runner}
}

// QueryStandby checks a disk without waking it. smartctl exits with 2 when
// the disk is in a low-power state and the check was skipped, which is a
// clean result here, not an error.
func (s *SmartCtl) QueryStandby(ctx context.Context, device string) (bool, error) {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	out, code, err := s.runner.Run(ctx, s.command, "-i", "-n", "standby", device)
	if err != nil {
		return false, errFactory.Wrap(errors.ErrDiskQuery, err)
	}
	if code != 0 && code != 2 {
		return false, errFactory.WithData(errors.ErrDiskQuery, struct {
			Device   string
			ExitCode int
		}{device, code})
	}

	return strings.Contains(out, "STANDBY"), nil
}

// ForceStandby spins the disk down immediately.
func (s *SmartCtl) ForceStandby(ctx context.Context, device string) error {
	errFactory := errors.New()

	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	_, code, err := s.runner.Run(ctx, s.command, "-s", "standby,now", device)
	if err != nil {
		return errFactory.Wrap(errors.ErrDiskForceStandby, err)
	}
	if code != 0 {
		return errFactory.WithData(errors.ErrDiskForceStandby, struct {
			Device   string
			ExitCode int
		}{device, code})
	}

	return nil
}
