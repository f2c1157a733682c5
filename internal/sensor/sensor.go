// Package sensor reads temperatures from hwmon sysfs endpoints and reduces
// multiple readings into a single value per zone.
package sensor

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/smfanctl/internal/errors"
)

// Aggregation selects how multiple sensor readings collapse into one value.
type Aggregation int

const (
	CalcMin Aggregation = iota
	CalcAvg
	CalcMax
)

// Raw hwmon values are stored in millidegrees Celsius.
const milliDegreesPerDegree = 1000.0

func (a Aggregation) IsValid() bool {
	return a == CalcMin || a == CalcAvg || a == CalcMax
}

func (a Aggregation) String() string {
	switch a {
	case CalcMin:
		return "min"
	case CalcAvg:
		return "avg"
	case CalcMax:
		return "max"
	default:
		return "unknown"
	}
}

// Source reads one temperature per call from a fixed set of endpoints.
// A single-sensor source returns the raw reading without aggregation.
type Source struct {
	paths []string
	mode  Aggregation
}

// New resolves the configured endpoint paths and validates them against the
// configured sensor count. Wildcard patterns resolve to their first match;
// zero matches or a missing resolved path fail construction.
func New(paths []string, count int, mode Aggregation) (*Source, error) {
	errFactory := errors.New()

	if count <= 0 {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "sensor count must be positive")
	}
	if !mode.IsValid() {
		return nil, errFactory.WithData(errors.ErrInvalidConfig, "invalid temp_calc value")
	}
	if len(paths) != count {
		return nil, errFactory.WithData(errors.ErrSensorCountMismatch, struct {
			Count int
			Paths int
		}{count, len(paths)})
	}

	resolved := make([]string, count)
	for i, path := range paths {
		p, err := resolvePath(path)
		if err != nil {
			return nil, err
		}
		resolved[i] = p
	}

	return &Source{paths: resolved, mode: mode}, nil
}

// resolvePath expands a wildcard pattern to exactly one concrete path and
// checks that the file exists.
func resolvePath(path string) (string, error) {
	errFactory := errors.New()

	if strings.ContainsAny(path, "*?[") {
		matches, err := filepath.Glob(path)
		if err != nil {
			return "", errFactory.Wrap(errors.ErrSensorNotFound, err)
		}
		if len(matches) == 0 {
			return "", errFactory.WithData(errors.ErrSensorNotFound, path)
		}
		path = matches[0]
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", errFactory.WithData(errors.ErrSensorNotFound, path)
	}
	if info.IsDir() {
		return "", errFactory.WithData(errors.ErrSensorNotFound, path)
	}

	return path, nil
}

// Read returns the aggregated temperature in degrees Celsius. Any endpoint
// failure fails the whole aggregation; no partial result is returned.
func (s *Source) Read() (float64, error) {
	if len(s.paths) == 1 {
		return readEndpoint(s.paths[0])
	}

	switch s.mode {
	case CalcMin:
		return s.readMin()
	case CalcMax:
		return s.readMax()
	case CalcAvg:
		fallthrough
	default:
		return s.readAvg()
	}
}

func (s *Source) readMin() (float64, error) {
	minimum := 0.0
	for i, path := range s.paths {
		value, err := readEndpoint(path)
		if err != nil {
			return 0, err
		}
		if i == 0 || value < minimum {
			minimum = value
		}
	}

	return minimum, nil
}

func (s *Source) readMax() (float64, error) {
	maximum := 0.0
	for i, path := range s.paths {
		value, err := readEndpoint(path)
		if err != nil {
			return 0, err
		}
		if i == 0 || value > maximum {
			maximum = value
		}
	}

	return maximum, nil
}

func (s *Source) readAvg() (float64, error) {
	sum := 0.0
	for _, path := range s.paths {
		value, err := readEndpoint(path)
		if err != nil {
			return 0, err
		}
		sum += value
	}

	return sum / float64(len(s.paths)), nil
}

func readEndpoint(path string) (float64, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errFactory.Wrap(errors.ErrSensorRead, err)
	}

	raw, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, errFactory.Wrap(errors.ErrSensorRead, err)
	}

	return raw / milliDegreesPerDegree, nil
}

// Paths returns the resolved endpoint paths.
func (s *Source) Paths() []string {
	paths := make([]string, len(s.paths))
	copy(paths, s.paths)

	return paths
}
