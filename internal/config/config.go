// Package config loads the controller configuration from flags, the
// environment and an optional TOML file.
package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/smfanctl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel   = "info"
	defaultConfigPath = "/etc"
	configName        = "smfanctl"
	configType        = "toml"
	configEnv         = "SMFANCTL_CONFIG"
)

// ZoneConfig carries one cooling zone's control parameters. Values are
// validated again by the zone controller at construction; this layer only
// resolves sources and defaults.
type ZoneConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Count       int      `mapstructure:"count"`
	TempCalc    int      `mapstructure:"temp_calc"`
	Steps       int      `mapstructure:"steps"`
	Sensitivity float64  `mapstructure:"sensitivity"`
	Polling     float64  `mapstructure:"polling"`
	MinTemp     float64  `mapstructure:"min_temp"`
	MaxTemp     float64  `mapstructure:"max_temp"`
	MinLevel    int      `mapstructure:"min_level"`
	MaxLevel    int      `mapstructure:"max_level"`
	HwmonPath   []string `mapstructure:"hwmon_path"`
}

// HDZoneConfig extends ZoneConfig with the disk array and standby guard
// settings.
type HDZoneConfig struct {
	ZoneConfig          `mapstructure:",squash"`
	HdNames             []string `mapstructure:"hd_names"`
	StandbyGuardEnabled bool     `mapstructure:"standby_guard_enabled"`
	StandbyHdLimit      int      `mapstructure:"standby_hd_limit"`
	SmartctlPath        string   `mapstructure:"smartctl_path"`
}

type IpmiConfig struct {
	Command       string  `mapstructure:"command"`
	FanModeDelay  float64 `mapstructure:"fan_mode_delay"`
	FanLevelDelay float64 `mapstructure:"fan_level_delay"`
}

type Config struct {
	LogLevel  string       `mapstructure:"log_level"`
	Monitor   bool         `mapstructure:"monitor"`
	Metrics   bool         `mapstructure:"metrics"`
	MetricsDB string       `mapstructure:"metrics_db"`
	Ipmi      IpmiConfig   `mapstructure:"ipmi"`
	CPUZone   ZoneConfig   `mapstructure:"cpu_zone"`
	HDZone    HDZoneConfig `mapstructure:"hd_zone"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("monitor", false)
	v.SetDefault("metrics", false)
	v.SetDefault("metrics_db", "/var/lib/smfanctl/metrics.db")

	v.SetDefault("ipmi.command", "/usr/bin/ipmitool")
	v.SetDefault("ipmi.fan_mode_delay", 10)
	v.SetDefault("ipmi.fan_level_delay", 2)

	v.SetDefault("cpu_zone.enabled", false)
	v.SetDefault("cpu_zone.count", 1)
	v.SetDefault("cpu_zone.temp_calc", 1)
	v.SetDefault("cpu_zone.steps", 6)
	v.SetDefault("cpu_zone.sensitivity", 3.0)
	v.SetDefault("cpu_zone.polling", 2)
	v.SetDefault("cpu_zone.min_temp", 30)
	v.SetDefault("cpu_zone.max_temp", 60)
	v.SetDefault("cpu_zone.min_level", 35)
	v.SetDefault("cpu_zone.max_level", 100)

	v.SetDefault("hd_zone.enabled", false)
	v.SetDefault("hd_zone.count", 1)
	v.SetDefault("hd_zone.temp_calc", 1)
	v.SetDefault("hd_zone.steps", 4)
	v.SetDefault("hd_zone.sensitivity", 2.0)
	v.SetDefault("hd_zone.polling", 10)
	v.SetDefault("hd_zone.min_temp", 32)
	v.SetDefault("hd_zone.max_temp", 46)
	v.SetDefault("hd_zone.min_level", 35)
	v.SetDefault("hd_zone.max_level", 100)
	v.SetDefault("hd_zone.standby_guard_enabled", false)
	v.SetDefault("hd_zone.standby_hd_limit", 1)
	v.SetDefault("hd_zone.smartctl_path", "/usr/sbin/smartctl")
}

// Load reads flags, the SMFANCTL_CONFIG environment override and the TOML
// configuration file, in that order of precedence.
func Load() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet("smfanctl", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	configFile := flags.StringP("config", "c", "", "configuration file")
	logLevel := flags.String("log-level", "", "log level: error, warning, info, debug")
	monitor := flags.Bool("monitor", false, "only monitor temperatures, never write fan levels")
	if err := flags.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigType(configType)

	switch {
	case *configFile != "":
		v.SetConfigFile(*configFile)
	case os.Getenv(configEnv) != "":
		v.SetConfigFile(os.Getenv(configEnv))
	default:
		v.SetConfigName(configName)
		v.AddConfigPath(defaultConfigPath)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	// Flags override file values.
	if *logLevel != "" {
		v.Set("log_level", *logLevel)
	}
	if *monitor {
		v.Set("monitor", true)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the values this layer owns. Range checks on zone
// parameters belong to the zone and curve constructors.
func (c *Config) Validate() error {
	errFactory := errors.New()

	switch strings.ToLower(c.LogLevel) {
	case "error", "warning", "info", "debug":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Ipmi.FanModeDelay < 0 || c.Ipmi.FanLevelDelay < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "negative IPMI delay")
	}

	if c.HDZone.Enabled && len(c.HDZone.HdNames) == 0 {
		return errFactory.WithData(errors.ErrMissingConfig, "hd_zone.hd_names")
	}

	return nil
}

// IsDebug reports whether debug logging was requested.
func (c *Config) IsDebug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}

// IsVerbose reports whether info logging was requested.
func (c *Config) IsVerbose() bool {
	return strings.EqualFold(c.LogLevel, "info") || c.IsDebug()
}
