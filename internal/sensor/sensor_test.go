package sensor_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/smfanctl/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSensor(t *testing.T, dir, name, value string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(value), 0o600))

	return path
}

func TestReadSingle(t *testing.T) {
	dir := t.TempDir()
	path := writeSensor(t, dir, "temp1_input", "42500\n")

	src, err := sensor.New([]string{path}, 1, sensor.CalcAvg)
	require.NoError(t, err)

	temp, err := src.Read()
	require.NoError(t, err)
	assert.InDelta(t, 42.5, temp, 0.001)
}

func TestReadAverage(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeSensor(t, dir, "temp1_input", "30000"),
		writeSensor(t, dir, "temp2_input", "40000"),
		writeSensor(t, dir, "temp3_input", "50000"),
	}

	src, err := sensor.New(paths, 3, sensor.CalcAvg)
	require.NoError(t, err)

	temp, err := src.Read()
	require.NoError(t, err)
	assert.InDelta(t, 40.0, temp, 0.001, "Expected arithmetic mean of all endpoints")
}

func TestReadMinMax(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeSensor(t, dir, "temp1_input", "31000"),
		writeSensor(t, dir, "temp2_input", "45500"),
	}

	src, err := sensor.New(paths, 2, sensor.CalcMin)
	require.NoError(t, err)
	temp, err := src.Read()
	require.NoError(t, err)
	assert.InDelta(t, 31.0, temp, 0.001)

	src, err = sensor.New(paths, 2, sensor.CalcMax)
	require.NoError(t, err)
	temp, err = src.Read()
	require.NoError(t, err)
	assert.InDelta(t, 45.5, temp, 0.001)
}

func TestReadFailsWholeAggregation(t *testing.T) {
	dir := t.TempDir()
	good := writeSensor(t, dir, "temp1_input", "30000")
	doomed := writeSensor(t, dir, "temp2_input", "40000")

	src, err := sensor.New([]string{good, doomed}, 2, sensor.CalcAvg)
	require.NoError(t, err)

	require.NoError(t, os.Remove(doomed))
	_, err = src.Read()
	require.Error(t, err, "Any unreadable endpoint must fail the aggregation")
}

func TestReadMalformedContent(t *testing.T) {
	dir := t.TempDir()
	path := writeSensor(t, dir, "temp1_input", "not a number")

	src, err := sensor.New([]string{path}, 1, sensor.CalcAvg)
	require.NoError(t, err)

	_, err = src.Read()
	require.Error(t, err)
}

func TestNewWildcardResolution(t *testing.T) {
	dir := t.TempDir()
	hwmon := filepath.Join(dir, "hwmon3")
	require.NoError(t, os.Mkdir(hwmon, 0o755))
	writeSensor(t, hwmon, "temp1_input", "36000")

	pattern := filepath.Join(dir, "hwmon*", "temp1_input")
	src, err := sensor.New([]string{pattern}, 1, sensor.CalcAvg)
	require.NoError(t, err)

	temp, err := src.Read()
	require.NoError(t, err)
	assert.InDelta(t, 36.0, temp, 0.001)
}

func TestNewWildcardNoMatch(t *testing.T) {
	pattern := filepath.Join(t.TempDir(), "hwmon*", "temp1_input")
	_, err := sensor.New([]string{pattern}, 1, sensor.CalcAvg)
	require.Error(t, err, "Wildcard resolving to zero matches must fail construction")
}

func TestNewCountMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeSensor(t, dir, "temp1_input", "30000")

	_, err := sensor.New([]string{path}, 2, sensor.CalcAvg)
	require.Error(t, err, "Endpoint list shorter than count must fail construction")
}

func TestNewMissingPath(t *testing.T) {
	_, err := sensor.New([]string{filepath.Join(t.TempDir(), "missing")}, 1, sensor.CalcAvg)
	require.Error(t, err)
}
