package metrics

import "codeberg.org/mutker/smfanctl/internal/errors"

const (
	ErrInvalidConfig          = errors.ErrorCode("metrics_invalid_config")
	ErrInvalidDBPath          = errors.ErrorCode("metrics_invalid_db_path")
	ErrInvalidMetrics         = errors.ErrorCode("metrics_invalid_snapshot")
	ErrStorageInit            = errors.ErrorCode("metrics_storage_init_failed")
	ErrStorageClose           = errors.ErrorCode("metrics_storage_close_failed")
	ErrTransactionFailed      = errors.ErrorCode("metrics_transaction_failed")
	ErrSchemaInitFailed       = errors.ErrorCode("metrics_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("metrics_schema_validation_failed")
	ErrMetricsCollection      = errors.ErrorCode("metrics_collection_failed")
	ErrOperationTimeout       = errors.ErrorCode("metrics_operation_timeout")
	ErrServiceShutdown        = errors.ErrorCode("metrics_service_shutdown_failed")
)
