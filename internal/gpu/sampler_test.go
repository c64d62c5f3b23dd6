package gpu_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/mutker/heatboard/internal/errors"
	"codeberg.org/mutker/heatboard/internal/gpu"
	"codeberg.org/mutker/heatboard/internal/heatmap"
	"codeberg.org/mutker/heatboard/internal/source"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	temp     uint32
	fan      uint32
	fanRet   nvml.Return
	powerMW  uint32
	util     uint32
	memBytes uint64
}

func (d *fakeDevice) GetName() (string, nvml.Return) { return "Fake GPU", nvml.SUCCESS }

func (d *fakeDevice) GetTemperature(nvml.TemperatureSensors) (uint32, nvml.Return) {
	return d.temp, nvml.SUCCESS
}

func (d *fakeDevice) GetFanSpeed() (uint32, nvml.Return) { return d.fan, d.fanRet }

func (d *fakeDevice) GetPowerUsage() (uint32, nvml.Return) { return d.powerMW, nvml.SUCCESS }

func (d *fakeDevice) GetUtilizationRates() (nvml.Utilization, nvml.Return) {
	return nvml.Utilization{Gpu: d.util}, nvml.SUCCESS
}

func (d *fakeDevice) GetMemoryInfo() (nvml.Memory, nvml.Return) {
	return nvml.Memory{Used: d.memBytes}, nvml.SUCCESS
}

type fakeController struct {
	devices  []gpu.Device
	shutdown bool
}

func (c *fakeController) Initialize() error { return nil }

func (c *fakeController) Shutdown() error {
	c.shutdown = true
	return nil
}

func (c *fakeController) GetDeviceCount() (int, error) { return len(c.devices), nil }

func (c *fakeController) GetDevice(index int) (gpu.Device, error) { return c.devices[index], nil }

func TestSamplerFeedsOneGroupPerDevice(t *testing.T) {
	ctrl := &fakeController{devices: []gpu.Device{
		&fakeDevice{temp: 60, fan: 40, powerMW: 150000, util: 85, memBytes: 512 << 20},
		&fakeDevice{temp: 45, fanRet: nvml.ERROR_NOT_SUPPORTED, powerMW: 30000, util: 5, memBytes: 64 << 20},
	}}

	sampler, err := gpu.NewSamplerWithController(ctrl, gpu.SamplerConfig{}, nil)
	require.NoError(t, err)

	board := heatmap.NewBoard(heatmap.WithLogScale(false), heatmap.WithMode(heatmap.ModeGlobal))
	require.NoError(t, sampler.Sample(board))
	require.NoError(t, board.Update())

	gpu0, ok := board.Lookup(gpu.GroupName(0))
	require.True(t, ok)
	power, ok := gpu0.Lookup(gpu.SeriesPowerUsage)
	require.True(t, ok)
	assert.Equal(t, []float64{150}, power.Values())

	mem, _ := gpu0.Lookup(gpu.SeriesMemoryUsed)
	assert.Equal(t, []float64{512}, mem.Values())

	gpu1, ok := board.Lookup("gpu1")
	require.True(t, ok)
	_, hasFan := gpu1.Lookup(gpu.SeriesFanSpeed)
	assert.False(t, hasFan, "unsupported readings are skipped")

	temp, _ := gpu1.Lookup(gpu.SeriesTemperature)
	assert.InDelta(t, 0.75, temp.VisibleCells()[0].Relative, 1e-12)

	require.NoError(t, sampler.Close())
	assert.True(t, ctrl.shutdown)
}

func TestSamplerRequiresDevices(t *testing.T) {
	ctrl := &fakeController{}
	_, err := gpu.NewSamplerWithController(ctrl, gpu.SamplerConfig{}, nil)
	assert.True(t, errors.HasCode(err, gpu.ErrNoDevices))
	assert.True(t, ctrl.shutdown)
}

func TestSamplerRunStopsOnCancel(t *testing.T) {
	ctrl := &fakeController{devices: []gpu.Device{&fakeDevice{temp: 50}}}
	sampler, err := gpu.NewSamplerWithController(ctrl, gpu.SamplerConfig{Interval: 5 * time.Millisecond}, nil)
	require.NoError(t, err)

	board := heatmap.NewSyncBoard(heatmap.WithHistory(1000))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, sampler.Run(ctx, board))

	view := board.View()
	require.Len(t, view.Groups, 1)
	assert.GreaterOrEqual(t, view.Groups[0].Rows[0].Count, 2)
}

func TestSamplerSinkRejectionAborts(t *testing.T) {
	ctrl := &fakeController{devices: []gpu.Device{&fakeDevice{}}}
	sampler, err := gpu.NewSamplerWithController(ctrl, gpu.SamplerConfig{}, nil)
	require.NoError(t, err)

	err = sampler.Sample(source.SinkFunc(func(string, string, float64) error {
		return errors.New().New(errors.ErrInvalidArgument)
	}))
	assert.True(t, errors.HasCode(err, gpu.ErrSampleFailed))
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}
