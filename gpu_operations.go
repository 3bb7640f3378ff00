package voxmirror

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/voxmirror/voxelrt/rt/gpu"
)

const (
	BackendMemory = "memory"
	BackendWGPU   = "wgpu"
)

// GPU is the shared device every renderer module draws through.
type GPU struct {
	Device  gpu.Device
	Backend string

	release func()
}

func (g *GPU) Release() {
	if g.release != nil {
		g.release()
		g.release = nil
	}
}

// GPUModule installs the GPU resource. A nil Device selects Backend, which
// defaults to the headless memory device.
type GPUModule struct {
	Backend string
	Device  gpu.Device
}

func (mod GPUModule) Install(app *App, cmd *Commands) {
	if mod.Device != nil {
		cmd.AddResources(&GPU{Device: mod.Device, Backend: mod.Backend})
		return
	}
	switch mod.Backend {
	case "", BackendMemory:
		cmd.AddResources(&GPU{Device: gpu.NewMemoryDevice(), Backend: BackendMemory})
	case BackendWGPU:
		g, err := createHeadlessGPU()
		if err != nil {
			app.Logger().Errorf("webgpu init: %v", err)
			panic(err)
		}
		app.Logger().Infof("webgpu device ready")
		cmd.AddResources(g)
	default:
		panic(fmt.Sprintf("unknown gpu backend %q", mod.Backend))
	}
}

// createHeadlessGPU requests an adapter without a surface; draws are recorded
// only while a render pass is handed to the device.
func createHeadlessGPU() (*GPU, error) {
	instance := wgpu.CreateInstance(nil)
	defer instance.Release()
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "voxmirror device",
	})
	if err != nil {
		adapter.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	dev := gpu.NewWGPUDevice(device)
	return &GPU{
		Device:  dev,
		Backend: BackendWGPU,
		release: func() {
			dev.Release()
			device.Release()
			adapter.Release()
		},
	}, nil
}

func requireGPU(app *App) *GPU {
	g, ok := Resource[GPU](app)
	if !ok {
		panic("GPUModule must be installed before renderer modules")
	}
	return g
}
