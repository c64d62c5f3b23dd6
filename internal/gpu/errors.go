package gpu

import (
	"codeberg.org/mutker/heatboard/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const (
	// Initialization and Lifecycle Errors
	ErrNotInitialized    = errors.ErrorCode("gpu_not_initialized")
	ErrInitFailed        = errors.ErrorCode("gpu_init_failed")
	ErrDeviceNotFound    = errors.ErrorCode("gpu_device_not_found")
	ErrShutdownFailed    = errors.ErrorCode("gpu_shutdown_failed")
	ErrDeviceCountFailed = errors.ErrorCode("gpu_device_count_failed")
	ErrNoDevices         = errors.ErrorCode("gpu_no_devices")

	// Sampling Errors
	ErrSampleFailed = errors.ErrorCode("gpu_sample_failed")
)

func init() {
	errors.RegisterMessage(ErrNotInitialized, "NVML not initialized")
	errors.RegisterMessage(ErrInitFailed, "Failed to initialize NVML")
	errors.RegisterMessage(ErrDeviceNotFound, "GPU device not found")
	errors.RegisterMessage(ErrShutdownFailed, "Failed to shut down NVML")
	errors.RegisterMessage(ErrDeviceCountFailed, "Failed to count GPU devices")
	errors.RegisterMessage(ErrNoDevices, "No GPU devices found")
	errors.RegisterMessage(ErrSampleFailed, "Failed to sample GPU")
}

// nvmlError represents an NVML-specific error
type nvmlError struct {
	ret nvml.Return
}

func (e nvmlError) Error() string {
	return nvml.ErrorString(e.ret)
}

// newNVMLError creates an error from an NVML return code
func newNVMLError(ret nvml.Return) error {
	if ret == nvml.SUCCESS {
		return nil
	}
	return &nvmlError{ret: ret}
}

// IsNVMLSuccess checks if a Return value indicates success
func IsNVMLSuccess(ret nvml.Return) bool {
	return ret == nvml.SUCCESS
}
