package disk_test

import (
	"context"
	"errors"
	"testing"

	"codeberg.org/mutker/smfanctl/internal/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeArray implements both standby ports over an in-memory disk array.
type fakeArray struct {
	standby  map[string]bool
	queryErr error
	writeErr error
	writes   []string
}

func newFakeArray(devices ...string) *fakeArray {
	a := &fakeArray{standby: make(map[string]bool)}
	for _, d := range devices {
		a.standby[d] = false
	}

	return a
}

func (a *fakeArray) QueryStandby(_ context.Context, device string) (bool, error) {
	if a.queryErr != nil {
		return false, a.queryErr
	}

	return a.standby[device], nil
}

func (a *fakeArray) ForceStandby(_ context.Context, device string) error {
	if a.writeErr != nil {
		return a.writeErr
	}
	a.writes = append(a.writes, device)
	a.standby[device] = true

	return nil
}

var devices = []string{"/dev/sda", "/dev/sdb", "/dev/sdc", "/dev/sdd"}

func TestGuardEnabled(t *testing.T) {
	assert.True(t, disk.GuardEnabled(true, 2))
	assert.True(t, disk.GuardEnabled(true, 4))
	assert.False(t, disk.GuardEnabled(true, 1), "A single disk is never guarded, flag set or not")
	assert.False(t, disk.GuardEnabled(false, 4))
	assert.False(t, disk.GuardEnabled(false, 1))
}

func TestGuardForcesArrayToStandby(t *testing.T) {
	array := newFakeArray(devices...)
	g, err := disk.NewGuard(context.Background(), devices, 1, array, array)
	require.NoError(t, err)
	require.False(t, g.AllStandby(), "All-active array must start with aggregate flag false")

	// One disk idles down on its own; the guard must force the rest.
	array.standby["/dev/sdb"] = true
	transitioned, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, transitioned, "Forced spin-down is a reported transition")
	assert.True(t, g.AllStandby())
	assert.Equal(t, []string{"/dev/sda", "/dev/sdc", "/dev/sdd"}, array.writes,
		"Only disks still active are written, in configured order")
	assert.Equal(t, "SSSS", g.StateString())
}

func TestGuardObservesWakeUp(t *testing.T) {
	array := newFakeArray(devices...)
	for _, d := range devices {
		array.standby[d] = true
	}

	g, err := disk.NewGuard(context.Background(), devices, 1, array, array)
	require.NoError(t, err)
	require.True(t, g.AllStandby(), "All-standby array must start with aggregate flag true")

	// External I/O wakes one disk; the guard observes without writing.
	array.standby["/dev/sdc"] = false
	transitioned, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, transitioned, "Wake-up is a reported transition")
	assert.False(t, g.AllStandby())
	assert.Empty(t, array.writes, "Wake-up transition is observational only")
	assert.Equal(t, "SSAS", g.StateString())
}

func TestGuardNoOpBetweenThresholds(t *testing.T) {
	array := newFakeArray(devices...)
	g, err := disk.NewGuard(context.Background(), devices, 3, array, array)
	require.NoError(t, err)

	array.standby["/dev/sda"] = true
	array.standby["/dev/sdb"] = true
	transitioned, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, transitioned, "A run without a state change reports no transition")
	assert.False(t, g.AllStandby(), "Below the limit nothing changes")
	assert.Empty(t, array.writes)
	assert.Equal(t, "SSAA", g.StateString())
}

func TestGuardQueryFailureAbortsRun(t *testing.T) {
	array := newFakeArray(devices...)
	g, err := disk.NewGuard(context.Background(), devices, 1, array, array)
	require.NoError(t, err)

	array.queryErr = errors.New("smartctl exploded")
	_, err = g.Run(context.Background())
	require.Error(t, err)
	assert.False(t, g.AllStandby(), "State is left as of the previous successful run")
}

func TestGuardWriteFailureAbortsAction(t *testing.T) {
	array := newFakeArray(devices...)
	g, err := disk.NewGuard(context.Background(), devices, 1, array, array)
	require.NoError(t, err)

	array.standby["/dev/sda"] = true
	array.writeErr = errors.New("device busy")
	_, err = g.Run(context.Background())
	require.Error(t, err)
	assert.False(t, g.AllStandby(), "Aggregate flag stays false when the forced spin-down fails")
}

func TestGuardConstructionValidation(t *testing.T) {
	array := newFakeArray(devices...)

	_, err := disk.NewGuard(context.Background(), devices, 0, array, array)
	require.Error(t, err, "Limit below 1 must fail")

	_, err = disk.NewGuard(context.Background(), devices, 5, array, array)
	require.Error(t, err, "Limit above disk count must fail")

	_, err = disk.NewGuard(context.Background(), []string{"/dev/sda"}, 1, array, array)
	require.Error(t, err, "Single-disk arrays never get a guard")
}

func TestGuardConstructionQueries(t *testing.T) {
	array := newFakeArray(devices...)
	array.queryErr = errors.New("no such device")

	_, err := disk.NewGuard(context.Background(), devices, 1, array, array)
	require.Error(t, err, "Initial state comes from one real query")
}
