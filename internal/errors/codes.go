package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig       ErrorCode = "invalid_configuration"
	ErrMissingConfig       ErrorCode = "missing_configuration"
	ErrBindFlags           ErrorCode = "bind_flags_failed"
	ErrReadConfig          ErrorCode = "read_config_failed"
	ErrInvalidInterval     ErrorCode = "invalid_polling_interval"
	ErrInvalidSteps        ErrorCode = "invalid_steps"
	ErrInvalidSensitivity  ErrorCode = "invalid_sensitivity"
	ErrInvalidTempRange    ErrorCode = "invalid_temperature_range"
	ErrInvalidLevelRange   ErrorCode = "invalid_level_range"
	ErrSensorCountMismatch ErrorCode = "sensor_count_mismatch"
	ErrInvalidStandbyLimit ErrorCode = "invalid_standby_limit"
	ErrNoZoneEnabled       ErrorCode = "no_zone_enabled"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Sensor errors
	ErrSensorNotFound ErrorCode = "sensor_not_found"
	ErrSensorRead     ErrorCode = "sensor_read_failed"

	// IPMI errors
	ErrIpmiUnavailable ErrorCode = "ipmi_unavailable"
	ErrGetFanMode      ErrorCode = "get_fan_mode_failed"
	ErrSetFanMode      ErrorCode = "set_fan_mode_failed"
	ErrSetFanLevel     ErrorCode = "set_fan_level_failed"

	// Disk errors
	ErrDiskQuery        ErrorCode = "disk_query_failed"
	ErrDiskForceStandby ErrorCode = "disk_force_standby_failed"

	// Application errors
	ErrInitApp  ErrorCode = "init_app_failed"
	ErrMainLoop ErrorCode = "main_loop_failed"
	ErrZoneTick ErrorCode = "zone_tick_failed"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"

	// Metrics errors
	ErrInitMetrics    ErrorCode = "init_metrics_failed"
	ErrCollectMetrics ErrorCode = "collect_metrics_failed"
	ErrCloseMetrics   ErrorCode = "close_metrics_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:            "Internal error occurred",
	ErrInvalidArgument:     "Invalid argument provided",
	ErrAlreadyRunning:      "Another instance is already running",
	ErrInvalidConfig:       "Invalid configuration",
	ErrMissingConfig:       "Missing configuration",
	ErrBindFlags:           "Failed to bind flags",
	ErrReadConfig:          "Failed to read configuration",
	ErrInvalidInterval:     "Invalid polling interval",
	ErrInvalidSteps:        "Steps must be at least 1",
	ErrInvalidSensitivity:  "Sensitivity must be greater than zero",
	ErrInvalidTempRange:    "Maximum temperature below minimum temperature",
	ErrInvalidLevelRange:   "Invalid fan level range",
	ErrSensorCountMismatch: "Sensor path count does not match configured count",
	ErrInvalidStandbyLimit: "Invalid standby disk limit",
	ErrNoZoneEnabled:       "No fan controller zone is enabled",
	ErrInvalidLogLevel:     "Invalid log level",
	ErrSensorNotFound:      "Sensor path not found",
	ErrSensorRead:          "Failed to read sensor",
	ErrIpmiUnavailable:     "IPMI command unavailable",
	ErrGetFanMode:          "Failed to get IPMI fan mode",
	ErrSetFanMode:          "Failed to set IPMI fan mode",
	ErrSetFanLevel:         "Failed to set IPMI fan level",
	ErrDiskQuery:           "Failed to query disk power state",
	ErrDiskForceStandby:    "Failed to force disk to standby",
	ErrInitApp:             "Failed to initialize application",
	ErrMainLoop:            "Error in main loop",
	ErrZoneTick:            "Zone controller tick failed",
	ErrOperationFailed:     "Operation failed",
	ErrTimeout:             "Operation timed out",
	ErrInitMetrics:         "Failed to initialize metrics",
	ErrCollectMetrics:      "Failed to collect metrics data",
	ErrCloseMetrics:        "Failed to close metrics connection",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
