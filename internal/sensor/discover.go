package sensor

import (
	"fmt"
	"os"
	"path/filepath"

	"codeberg.org/mutker/smfanctl/internal/errors"
)

// sysfs roots, overridable for tests
var (
	coretempPattern = "/sys/devices/platform/coretemp.%d/hwmon/hwmon*/temp1_input"
	scsiDiskRoot    = "/sys/class/scsi_disk"
)

// DiscoverCPUPaths builds the hwmon endpoint list for a CPU zone when no
// explicit paths are configured, one coretemp platform device per sensor.
func DiscoverCPUPaths(count int) ([]string, error) {
	errFactory := errors.New()

	paths := make([]string, count)
	for i := 0; i < count; i++ {
		pattern := fmt.Sprintf(coretempPattern, i)
		matches, err := filepath.Glob(pattern)
		if err != nil || len(matches) == 0 {
			return nil, errFactory.WithData(errors.ErrSensorNotFound, pattern)
		}
		paths[i] = matches[0]
	}

	return paths, nil
}

// DiscoverDiskPaths builds the hwmon endpoint list for a disk zone from
// /dev/disk/by-id device names. Each name must be a symlink; its target's
// block device name is matched against the scsi_disk entries in sysfs.
func DiscoverDiskPaths(deviceNames []string) ([]string, error) {
	errFactory := errors.New()

	sdNames := make([]string, len(deviceNames))
	for i, name := range deviceNames {
		target, err := os.Readlink(name)
		if err != nil {
			return nil, errFactory.WithData(errors.ErrSensorNotFound,
				fmt.Sprintf("device name is not a by-id link: %s", name))
		}
		sdNames[i] = filepath.Base(target)
	}

	paths := make([]string, len(deviceNames))
	entries, err := os.ReadDir(scsiDiskRoot)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrSensorNotFound, err)
	}

	for _, entry := range entries {
		blockPattern := filepath.Join(scsiDiskRoot, entry.Name(), "device/block/sd*")
		matches, err := filepath.Glob(blockPattern)
		if err != nil || len(matches) == 0 {
			continue
		}

		index := -1
		sd := filepath.Base(matches[0])
		for i, name := range sdNames {
			if name == sd {
				index = i
				break
			}
		}
		if index < 0 {
			// Disk not part of the configuration.
			continue
		}

		hwmonPattern := filepath.Join(scsiDiskRoot, entry.Name(), "device/hwmon/hwmon*/temp1_input")
		matches, err = filepath.Glob(hwmonPattern)
		if err != nil || len(matches) == 0 {
			return nil, errFactory.WithData(errors.ErrSensorNotFound, hwmonPattern)
		}
		paths[index] = matches[0]
	}

	for i, path := range paths {
		if path == "" {
			return nil, errFactory.WithData(errors.ErrSensorNotFound,
				fmt.Sprintf("no hwmon file found for %s", deviceNames[i]))
		}
	}

	return paths, nil
}
