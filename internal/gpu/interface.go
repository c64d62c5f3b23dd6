package gpu

import "github.com/NVIDIA/go-nvml/pkg/nvml"

// Device is the subset of nvml.Device the sampler reads.
type Device interface {
	GetName() (string, nvml.Return)
	GetTemperature(sensor nvml.TemperatureSensors) (uint32, nvml.Return)
	GetFanSpeed() (uint32, nvml.Return)
	GetPowerUsage() (uint32, nvml.Return)
	GetUtilizationRates() (nvml.Utilization, nvml.Return)
	GetMemoryInfo() (nvml.Memory, nvml.Return)
}

// Controller abstracts NVML library lifecycle and device discovery.
type Controller interface {
	Initialize() error
	Shutdown() error
	GetDeviceCount() (int, error)
	GetDevice(index int) (Device, error)
}

// Series names recorded for every device.
const (
	SeriesTemperature = "temperature"
	SeriesFanSpeed    = "fan_speed"
	SeriesPowerUsage  = "power_usage"
	SeriesUtilization = "utilization"
	SeriesMemoryUsed  = "memory_used"
)
