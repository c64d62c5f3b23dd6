package source

import "codeberg.org/mutker/heatboard/internal/errors"

const (
	// Configuration Errors
	ErrInvalidDBPath = errors.ErrorCode("source_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("source_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("source_schema_validation_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("source_storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed

	// Stream Errors
	ErrStreamRead = errors.ErrorCode("source_stream_read_failed")
	ErrOpenSource = errors.ErrorCode("source_open_failed")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)

func init() {
	errors.RegisterMessage(ErrInvalidDBPath, "Sample database path is empty")
	errors.RegisterMessage(ErrSchemaInitFailed, "Failed to initialize sample schema")
	errors.RegisterMessage(ErrSchemaValidationFailed, "Sample schema is missing or invalid")
	errors.RegisterMessage(ErrStorageAccess, "Failed to read samples")
	errors.RegisterMessage(ErrStreamRead, "Failed to read observation stream")
	errors.RegisterMessage(ErrOpenSource, "Failed to open observation source")
}
