package zone

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/smfanctl/internal/ipmi"
	"codeberg.org/mutker/smfanctl/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	temp  float64
	err   error
	reads int
}

func (f *fakeSource) Read() (float64, error) {
	f.reads++
	if f.err != nil {
		return 0, f.err
	}

	return f.temp, nil
}

type fakeWriter struct {
	levels []int
	err    error
}

func (f *fakeWriter) SetFanLevel(_ context.Context, _ ipmi.Zone, level int) error {
	if f.err != nil {
		return f.err
	}
	f.levels = append(f.levels, level)

	return nil
}

type fakeHook struct {
	runs       int
	transition bool
	err        error
}

func (f *fakeHook) Run(context.Context) (bool, error) {
	f.runs++

	return f.transition, f.err
}

func testConfig(polling time.Duration, sensitivity float64) Config {
	return Config{
		Name:        "CPU zone",
		IpmiZone:    ipmi.CPUZone,
		Count:       1,
		Steps:       6,
		Sensitivity: sensitivity,
		Polling:     polling,
		MinTemp:     30,
		MaxTemp:     60,
		MinLevel:    35,
		MaxLevel:    100,
	}
}

func TestMain(m *testing.M) {
	logger.Init(false, false, true)
	m.Run()
}

func TestFirstTickAlwaysSamples(t *testing.T) {
	source := &fakeSource{temp: 40}
	writer := &fakeWriter{}
	c, err := New(testConfig(time.Hour, 3), source, writer, nil)
	require.NoError(t, err)

	changed, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, changed, "An applied level is a reported change")
	assert.Equal(t, 1, source.reads, "Construction backdates the poll timestamp")
	assert.Equal(t, []int{57}, writer.levels, "40C on the 30-60/35-100 curve is step 2, level 57")
}

func TestPollingGate(t *testing.T) {
	source := &fakeSource{temp: 40}
	writer := &fakeWriter{}
	c, err := New(testConfig(time.Hour, 3), source, writer, nil)
	require.NoError(t, err)

	_, err = c.Tick(context.Background())
	require.NoError(t, err)

	changed, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, changed, "A gated tick reports no change")
	assert.Equal(t, 1, source.reads, "A tick inside the polling interval is a pure no-op")
	assert.Len(t, writer.levels, 1)
}

func TestSensitivityGate(t *testing.T) {
	source := &fakeSource{temp: 40}
	writer := &fakeWriter{}
	c, err := New(testConfig(0, 3), source, writer, nil)
	require.NoError(t, err)

	_, err = c.Tick(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 40.0, c.LastTemperature(), 0.001)

	// Delta 2.5 below sensitivity 3.0: reading is discarded, poll
	// timestamp still advanced.
	source.temp = 42.5
	changed, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.InDelta(t, 40.0, c.LastTemperature(), 0.001, "last_temp unchanged below sensitivity")
	assert.Len(t, writer.levels, 1, "No level recompute below sensitivity")

	source.temp = 45
	changed, err = c.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.InDelta(t, 45.0, c.LastTemperature(), 0.001)
	assert.Equal(t, []int{57, 67}, writer.levels)
}

func TestSteadyLevelSkipsWrite(t *testing.T) {
	source := &fakeSource{temp: 40}
	writer := &fakeWriter{}
	c, err := New(testConfig(0, 0.5), source, writer, nil)
	require.NoError(t, err)

	_, err = c.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{57}, writer.levels)

	// Delta passes the sensitivity gate but lands on the same step.
	source.temp = 40.6
	changed, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, changed, "A steady level is not a change")
	assert.InDelta(t, 40.6, c.LastTemperature(), 0.001, "last_temp updates even when the level holds")
	assert.Len(t, writer.levels, 1, "Unchanged level issues no write")
}

func TestReadErrorAbortsTick(t *testing.T) {
	source := &fakeSource{temp: 40}
	writer := &fakeWriter{}
	c, err := New(testConfig(0, 3), source, writer, nil)
	require.NoError(t, err)

	_, err = c.Tick(context.Background())
	require.NoError(t, err)

	source.err = assert.AnError
	_, err = c.Tick(context.Background())
	require.Error(t, err)
	assert.InDelta(t, 40.0, c.LastTemperature(), 0.001, "State reflects the last successful tick")

	// The next tick recovers naturally.
	source.err = nil
	source.temp = 50
	_, err = c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{57, 78}, writer.levels)
}

func TestWriteErrorPropagates(t *testing.T) {
	source := &fakeSource{temp: 40}
	writer := &fakeWriter{err: assert.AnError}
	c, err := New(testConfig(0, 3), source, writer, nil)
	require.NoError(t, err)

	_, err = c.Tick(context.Background())
	require.Error(t, err)
}

func TestHookRunsBeforeSampling(t *testing.T) {
	source := &fakeSource{temp: 40}
	writer := &fakeWriter{}
	hook := &fakeHook{}
	c, err := New(testConfig(0, 3), source, writer, hook)
	require.NoError(t, err)

	_, err = c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, hook.runs)

	hook.err = assert.AnError
	_, err = c.Tick(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, source.reads, "A failing hook aborts the tick before the sensor read")
}

func TestHookTransitionReportedAsChange(t *testing.T) {
	source := &fakeSource{temp: 40}
	writer := &fakeWriter{}
	hook := &fakeHook{}
	c, err := New(testConfig(0, 3), source, writer, hook)
	require.NoError(t, err)

	_, err = c.Tick(context.Background())
	require.NoError(t, err)

	// Same temperature, but the hook transitioned: still a change.
	hook.transition = true
	changed, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.True(t, changed, "A hook transition is a reported change even with the level steady")
	assert.Len(t, writer.levels, 1, "The steady level still issues no write")
}

func TestHookSkippedInsidePollingInterval(t *testing.T) {
	source := &fakeSource{temp: 40}
	writer := &fakeWriter{}
	hook := &fakeHook{}
	c, err := New(testConfig(time.Hour, 3), source, writer, hook)
	require.NoError(t, err)

	_, err = c.Tick(context.Background())
	require.NoError(t, err)
	_, err = c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, hook.runs, "The hook only runs when the zone actually samples")
}

func TestNewValidation(t *testing.T) {
	source := &fakeSource{}
	writer := &fakeWriter{}

	cfg := testConfig(0, 3)
	cfg.Sensitivity = 0
	_, err := New(cfg, source, writer, nil)
	require.Error(t, err, "Zero sensitivity must fail")

	cfg = testConfig(0, 3)
	cfg.Polling = -time.Second
	_, err = New(cfg, source, writer, nil)
	require.Error(t, err, "Negative polling must fail")

	cfg = testConfig(0, 3)
	cfg.MinTemp, cfg.MaxTemp = 60, 30
	_, err = New(cfg, source, writer, nil)
	require.Error(t, err, "Inverted temperature range must fail")

	cfg = testConfig(0, 3)
	cfg.Count = 0
	_, err = New(cfg, source, writer, nil)
	require.Error(t, err, "Zero count must fail")

	cfg = testConfig(0, 3)
	cfg.IpmiZone = ipmi.Zone(5)
	_, err = New(cfg, source, writer, nil)
	require.Error(t, err, "Unknown IPMI zone must fail")
}
