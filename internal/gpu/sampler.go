package gpu

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/mutker/heatboard/internal/errors"
	"codeberg.org/mutker/heatboard/internal/logger"
	"codeberg.org/mutker/heatboard/internal/source"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const (
	defaultInterval   = 2 * time.Second
	milliWattsToWatts = 1000
	bytesToMiB        = 1 << 20
)

type SamplerConfig struct {
	Interval time.Duration
}

// Sampler polls every NVML device and feeds one group per device
// ("gpu0", "gpu1", ...) into a sink.
type Sampler struct {
	ctrl    Controller
	cfg     SamplerConfig
	log     logger.Logger
	devices []Device
}

// NewSampler initializes NVML and discovers devices.
func NewSampler(cfg SamplerConfig, log logger.Logger) (*Sampler, error) {
	return NewSamplerWithController(&nvmlWrapper{}, cfg, log)
}

func NewSamplerWithController(ctrl Controller, cfg SamplerConfig, log logger.Logger) (*Sampler, error) {
	errFactory := errors.New()

	if log == nil {
		log = logger.Nop()
	}
	log = log.With("gpu_sampler")

	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}

	if err := ctrl.Initialize(); err != nil {
		return nil, err
	}

	count, err := ctrl.GetDeviceCount()
	if err != nil {
		ctrl.Shutdown()
		return nil, err
	}
	if count == 0 {
		ctrl.Shutdown()
		return nil, errFactory.New(ErrNoDevices)
	}

	s := &Sampler{ctrl: ctrl, cfg: cfg, log: log}
	for i := 0; i < count; i++ {
		device, err := ctrl.GetDevice(i)
		if err != nil {
			ctrl.Shutdown()
			return nil, err
		}

		if name, ret := device.GetName(); IsNVMLSuccess(ret) {
			log.Info().Int("index", i).Str("name", name).Msg("Detected GPU")
		} else {
			log.Warn().Int("index", i).Msgf("Failed to get GPU name: %v", nvml.ErrorString(ret))
		}
		s.devices = append(s.devices, device)
	}

	return s, nil
}

// GroupName returns the heat-map group used for the device at index.
func GroupName(index int) string {
	return fmt.Sprintf("gpu%d", index)
}

// Run samples immediately and then once per interval until ctx is done.
func (s *Sampler) Run(ctx context.Context, sink source.Sink) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.Sample(sink); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sample reads every device once. Readings a device does not support are
// skipped; a sink rejection aborts the pass.
func (s *Sampler) Sample(sink source.Sink) error {
	errFactory := errors.New()

	for i, device := range s.devices {
		group := GroupName(i)
		for _, r := range readDevice(device) {
			if !IsNVMLSuccess(r.ret) {
				s.log.Debug().
					Str("group", group).
					Str("series", r.series).
					Msgf("Reading unavailable: %v", nvml.ErrorString(r.ret))
				continue
			}

			if err := sink.Add(group, r.series, r.value); err != nil {
				return errFactory.Wrap(ErrSampleFailed, err)
			}
		}
	}

	return nil
}

type reading struct {
	series string
	value  float64
	ret    nvml.Return
}

func readDevice(device Device) []reading {
	temp, tempRet := device.GetTemperature(nvml.TEMPERATURE_GPU)
	fan, fanRet := device.GetFanSpeed()
	power, powerRet := device.GetPowerUsage()
	util, utilRet := device.GetUtilizationRates()
	mem, memRet := device.GetMemoryInfo()

	return []reading{
		{SeriesTemperature, float64(temp), tempRet},
		{SeriesFanSpeed, float64(fan), fanRet},
		{SeriesPowerUsage, float64(power) / milliWattsToWatts, powerRet},
		{SeriesUtilization, float64(util.Gpu), utilRet},
		{SeriesMemoryUsed, float64(mem.Used) / bytesToMiB, memRet},
	}
}

func (s *Sampler) Close() error {
	return s.ctrl.Shutdown()
}
