package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/smfanctl/internal/config"
	"codeberg.org/mutker/smfanctl/internal/disk"
	"codeberg.org/mutker/smfanctl/internal/errors"
	"codeberg.org/mutker/smfanctl/internal/ipmi"
	"codeberg.org/mutker/smfanctl/internal/logger"
	"codeberg.org/mutker/smfanctl/internal/metrics"
	"codeberg.org/mutker/smfanctl/internal/pid"
	"codeberg.org/mutker/smfanctl/internal/sensor"
	"codeberg.org/mutker/smfanctl/internal/zone"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.IsDebug(), cfg.IsVerbose(), logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		fatal(err)
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		fatal(err)
	}
}

func run(ctx context.Context) error {
	ipmiCtl, err := ipmi.New(
		cfg.Ipmi.Command,
		secondsToDuration(cfg.Ipmi.FanModeDelay),
		secondsToDuration(cfg.Ipmi.FanLevelDelay),
	)
	if err != nil {
		return err
	}

	if cfg.Monitor {
		logger.Info().Msg("Monitor mode activated, fan levels and disk states will not be written")
	} else if err := ensureFullMode(ctx, ipmiCtl); err != nil {
		return err
	}

	controllers, guard, err := buildZones(ctx, ipmiCtl)
	if err != nil {
		return err
	}

	collector, err := metrics.NewService(metrics.Config{
		Enabled: cfg.Metrics,
		DBPath:  cfg.MetricsDB,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := collector.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close metrics collector")
		}
	}()

	observer := func(ctx context.Context, c *zone.Controller) {
		snapshot := &metrics.Snapshot{
			Timestamp:   time.Now(),
			Zone:        c.Name(),
			Temperature: c.LastTemperature(),
			Level:       c.LastLevel(),
			Step:        c.LastStep(),
		}
		if guard != nil {
			snapshot.AllStandby = guard.AllStandby()
		}
		if err := collector.Record(ctx, snapshot); err != nil {
			logger.Error().Err(err).Msg("Failed to record metrics snapshot")
		}
	}

	scheduler, err := zone.NewScheduler(controllers, observer)
	if err != nil {
		return err
	}

	return scheduler.Run(ctx)
}

// ensureFullMode switches the BMC to full (manual) fan mode once before the
// control loop starts; zone level writes have no effect in any other mode.
func ensureFullMode(ctx context.Context, ipmiCtl *ipmi.Controller) error {
	mode, err := ipmiCtl.GetFanMode(ctx)
	if err != nil {
		return err
	}
	logger.Debug().Str("mode", mode.String()).Msg("Current IPMI fan mode")

	if mode != ipmi.FullMode {
		if err := ipmiCtl.SetFanMode(ctx, ipmi.FullMode); err != nil {
			return err
		}
		logger.Info().Str("mode", ipmi.FullMode.String()).Msg("Switched IPMI fan mode")
	}

	return nil
}

// buildZones assembles the enabled zone controllers in tick order, CPU zone
// first. The returned guard is nil unless the HD zone runs one.
func buildZones(ctx context.Context, ipmiCtl *ipmi.Controller) ([]*zone.Controller, *disk.Guard, error) {
	var (
		controllers []*zone.Controller
		fanWriter   zone.LevelWriter = ipmiCtl
	)
	if cfg.Monitor {
		fanWriter = monitorFanWriter{}
	}

	if cfg.CPUZone.Enabled {
		logger.Debug().Msg("CPU zone fan controller enabled")
		c, err := buildCPUZone(fanWriter)
		if err != nil {
			return nil, nil, err
		}
		controllers = append(controllers, c)
	}

	var guard *disk.Guard
	if cfg.HDZone.Enabled {
		logger.Debug().Msg("HD zone fan controller enabled")
		c, g, err := buildHDZone(ctx, fanWriter)
		if err != nil {
			return nil, nil, err
		}
		controllers = append(controllers, c)
		guard = g
	}

	return controllers, guard, nil
}

func buildCPUZone(writer zone.LevelWriter) (*zone.Controller, error) {
	paths := cfg.CPUZone.HwmonPath
	if len(paths) == 0 {
		var err error
		if paths, err = sensor.DiscoverCPUPaths(cfg.CPUZone.Count); err != nil {
			return nil, err
		}
	}

	source, err := sensor.New(paths, cfg.CPUZone.Count, sensor.Aggregation(cfg.CPUZone.TempCalc))
	if err != nil {
		return nil, err
	}

	return zone.New(zoneConfig("CPU zone", ipmi.CPUZone, cfg.CPUZone), source, writer, nil)
}

func buildHDZone(ctx context.Context, writer zone.LevelWriter) (*zone.Controller, *disk.Guard, error) {
	errFactory := errors.New()

	hd := cfg.HDZone
	if len(hd.HdNames) != hd.Count {
		return nil, nil, errFactory.WithData(errors.ErrSensorCountMismatch, struct {
			Count   int
			HdNames int
		}{hd.Count, len(hd.HdNames)})
	}

	paths := hd.HwmonPath
	if len(paths) == 0 {
		var err error
		if paths, err = sensor.DiscoverDiskPaths(hd.HdNames); err != nil {
			return nil, nil, err
		}
	}

	source, err := sensor.New(paths, hd.Count, sensor.Aggregation(hd.TempCalc))
	if err != nil {
		return nil, nil, err
	}

	var (
		guard *disk.Guard
		hook  zone.Hook
	)
	switch {
	case disk.GuardEnabled(hd.StandbyGuardEnabled, hd.Count):
		smartctl := disk.NewSmartCtl(hd.SmartctlPath)
		var standbyWriter disk.StandbyWriter = smartctl
		if cfg.Monitor {
			standbyWriter = monitorStandbyWriter{}
		}
		guard, err = disk.NewGuard(ctx, hd.HdNames, hd.StandbyHdLimit, smartctl, standbyWriter)
		if err != nil {
			return nil, nil, err
		}
		hook = guard
	case hd.StandbyGuardEnabled:
		// One-time notice: the flag is set but a single disk is never guarded.
		logger.Info().Msg("Standby guard is disabled, HD zone has only one disk")
	default:
		logger.Debug().Msg("Standby guard is disabled")
	}

	c, err := zone.New(zoneConfig("HD zone", ipmi.HDZone, hd.ZoneConfig), source, writer, hook)
	if err != nil {
		return nil, nil, err
	}

	return c, guard, nil
}

func zoneConfig(name string, z ipmi.Zone, zc config.ZoneConfig) zone.Config {
	return zone.Config{
		Name:        name,
		IpmiZone:    z,
		Count:       zc.Count,
		Steps:       zc.Steps,
		Sensitivity: zc.Sensitivity,
		Polling:     secondsToDuration(zc.Polling),
		MinTemp:     zc.MinTemp,
		MaxTemp:     zc.MaxTemp,
		MinLevel:    zc.MinLevel,
		MaxLevel:    zc.MaxLevel,
	}
}

// monitorFanWriter logs the level a live run would have written.
type monitorFanWriter struct{}

func (monitorFanWriter) SetFanLevel(_ context.Context, z ipmi.Zone, level int) error {
	logger.Info().Str("zone", z.String()).Int("level", level).Msg("Monitor mode: fan level not written")

	return nil
}

// monitorStandbyWriter suppresses forced spin-downs in monitor mode.
type monitorStandbyWriter struct{}

func (monitorStandbyWriter) ForceStandby(_ context.Context, device string) error {
	logger.Info().Str("device", device).Msg("Monitor mode: disk not forced to standby")

	return nil
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func fatal(err error) {
	msg := "smfanctl failed"
	if errors.IsConfigError(err) {
		msg = "smfanctl failed, check the configuration"
	}

	var appErr errors.Error
	if errors.As(err, &appErr) {
		logger.FatalWithCode(appErr).Msg(msg)
	}
	logger.Fatal().Err(err).Msg(msg)
}
