package gpu

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuDeviceImpl implements Device on top of a wgpu-native device.
type wgpuDeviceImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpuQueue

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	powerPreference      wgpu.PowerPreference
	label                string
	logger               *slog.Logger
}

// wgpuSurfaceImpl implements Surface on top of a wgpu-native surface.
type wgpuSurfaceImpl struct {
	surface *wgpu.Surface
	adapter *wgpu.Adapter
	device  *wgpu.Device
}

var _ Device = &wgpuDeviceImpl{}
var _ Surface = &wgpuSurfaceImpl{}

// NewWGPUDevice creates a wgpu instance, a surface for the given window descriptor, an adapter compatible with that
// surface, and a device with its queue. The calling goroutine is locked to its OS thread because the windowing
// shell and the surface must be driven from the same thread.
//
// Parameters:
//   - surfaceDescriptor: the platform-specific surface descriptor, typically from Window.SurfaceDescriptor()
//   - options: variadic list of DeviceBuilderOption functions
//
// Returns:
//   - Device: the device capability backed by wgpu
//   - Surface: the presentable surface of the window
//   - error: an error if no adapter or device could be obtained
func NewWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...DeviceBuilderOption) (Device, Surface, error) {
	if surfaceDescriptor == nil {
		return nil, nil, fmt.Errorf("gpu: surface descriptor is nil")
	}
	runtime.LockOSThread()

	d := &wgpuDeviceImpl{
		mu:              &sync.Mutex{},
		powerPreference: wgpu.PowerPreferenceHighPerformance,
		label:           "Main Device",
		logger:          slog.Default(),
	}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	surface := d.instance.CreateSurface(surfaceDescriptor)

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		PowerPreference:      d.powerPreference,
		CompatibleSurface:    surface,
	})
	if err != nil {
		surface.Release()
		d.Release()
		return nil, nil, fmt.Errorf("gpu: failed to request adapter: %w", err)
	}
	d.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: d.label,
	})
	if err != nil {
		surface.Release()
		d.Release()
		return nil, nil, fmt.Errorf("gpu: failed to request device: %w", err)
	}
	d.device = device
	d.queue = &wgpuQueue{queue: device.GetQueue()}

	d.logger.Info("gpu device ready", "label", d.label, "fallback", d.forceFallbackAdapter)

	return d, &wgpuSurfaceImpl{surface: surface, adapter: adapter, device: device}, nil
}

func (d *wgpuDeviceImpl) CreateBuffer(desc *BufferDescriptor) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             desc.Size,
		Usage:            desc.Usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buffer: buf, label: desc.Label, size: desc.Size, usage: desc.Usage}, nil
}

func (d *wgpuDeviceImpl) CreateBufferInit(desc *BufferInitDescriptor) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    desc.Label,
		Contents: desc.Contents,
		Usage:    desc.Usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buffer: buf, label: desc.Label, size: uint64(len(desc.Contents)), usage: desc.Usage}, nil
}

func (d *wgpuDeviceImpl) CreateTexture(desc *TextureDescriptor) (Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sampleCount := desc.SampleCount
	if sampleCount == 0 {
		sampleCount = 1
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   sampleCount,
		Dimension:     wgpu.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuTexture{texture: tex, label: desc.Label, width: desc.Width, height: desc.Height, format: desc.Format}, nil
}

func (d *wgpuDeviceImpl) CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (BindGroupLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layout, err := d.device.CreateBindGroupLayout(desc)
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroupLayout{layout: layout}, nil
}

func (d *wgpuDeviceImpl) CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layout, ok := desc.Layout.(*wgpuBindGroupLayout)
	if !ok || layout == nil {
		return nil, fmt.Errorf("gpu: bind group %q has no wgpu layout", desc.Label)
	}

	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entry := wgpu.BindGroupEntry{
			Binding: e.Binding,
			Offset:  e.Offset,
			Size:    e.Size,
		}
		if e.Buffer != nil {
			buf, err := rawBuffer(e.Buffer)
			if err != nil {
				return nil, fmt.Errorf("gpu: bind group %q binding %d: %w", desc.Label, e.Binding, err)
			}
			entry.Buffer = buf
			if entry.Size == 0 {
				entry.Size = wgpu.WholeSize
			}
		}
		if e.TextureView != nil {
			view, ok := e.TextureView.(*wgpuTextureView)
			if !ok {
				return nil, fmt.Errorf("gpu: bind group %q binding %d: texture view is not a wgpu view", desc.Label, e.Binding)
			}
			entry.TextureView = view.view
		}
		entries[i] = entry
	}

	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroup{group: bg}, nil
}

func (d *wgpuDeviceImpl) CreatePipelineLayout(desc *PipelineLayoutDescriptor) (PipelineLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layouts := make([]*wgpu.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, l := range desc.BindGroupLayouts {
		layout, ok := l.(*wgpuBindGroupLayout)
		if !ok || layout == nil {
			return nil, fmt.Errorf("gpu: pipeline layout %q group %d is not a wgpu layout", desc.Label, i)
		}
		layouts[i] = layout.layout
	}

	pl, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuPipelineLayout{layout: pl}, nil
}

func (d *wgpuDeviceImpl) CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	moduleDesc := &wgpu.ShaderModuleDescriptor{Label: desc.Label}
	switch desc.Format {
	case ShaderFormatSPIRV:
		if len(desc.Code) == 0 || len(desc.Code)%4 != 0 {
			return nil, fmt.Errorf("gpu: shader %q is not a valid SPIR-V blob (%d bytes)", desc.Label, len(desc.Code))
		}
		moduleDesc.SPIRVDescriptor = &wgpu.ShaderModuleSPIRVDescriptor{Code: desc.Code}
	case ShaderFormatWGSL:
		moduleDesc.WGSLDescriptor = &wgpu.ShaderModuleWGSLDescriptor{Code: string(desc.Code)}
	default:
		return nil, fmt.Errorf("gpu: shader %q has unsupported format %v", desc.Label, desc.Format)
	}

	module, err := d.device.CreateShaderModule(moduleDesc)
	if err != nil {
		return nil, err
	}
	return &wgpuShaderModule{module: module}, nil
}

func (d *wgpuDeviceImpl) CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layout, ok := desc.Layout.(*wgpuPipelineLayout)
	if !ok || layout == nil {
		return nil, fmt.Errorf("gpu: render pipeline %q has no wgpu layout", desc.Label)
	}
	vs, ok := desc.Vertex.Module.(*wgpuShaderModule)
	if !ok || vs == nil {
		return nil, fmt.Errorf("gpu: render pipeline %q has no vertex module", desc.Label)
	}

	rpDesc := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout.layout,
		Vertex: wgpu.VertexState{
			Module:     vs.module,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    desc.Vertex.Buffers,
		},
		Primitive:    desc.Primitive,
		DepthStencil: desc.DepthStencil,
		Multisample:  desc.Multisample,
	}
	if desc.Fragment != nil {
		fs, ok := desc.Fragment.Module.(*wgpuShaderModule)
		if !ok || fs == nil {
			return nil, fmt.Errorf("gpu: render pipeline %q has no fragment module", desc.Label)
		}
		rpDesc.Fragment = &wgpu.FragmentState{
			Module:     fs.module,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets:    desc.Fragment.Targets,
		}
	}

	created, err := d.device.CreateRenderPipeline(rpDesc)
	if err != nil {
		return nil, err
	}
	return &wgpuRenderPipeline{pipeline: created}, nil
}

func (d *wgpuDeviceImpl) CreateCommandEncoder(label string) (CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	encoder, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &wgpuCommandEncoder{encoder: encoder}, nil
}

func (d *wgpuDeviceImpl) Queue() Queue {
	return d.queue
}

// Release frees the wgpu objects in reverse creation order. Calling it twice is a no-op.
func (d *wgpuDeviceImpl) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.queue != nil && d.queue.queue != nil {
		d.queue.queue.Release()
		d.queue.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
	d.logger.Info("gpu device released", "label", d.label)
}

func (s *wgpuSurfaceImpl) Capabilities() SurfaceCapabilities {
	capabilities := s.surface.GetCapabilities(s.adapter)
	return SurfaceCapabilities{
		Formats:      capabilities.Formats,
		PresentModes: capabilities.PresentModes,
		AlphaModes:   capabilities.AlphaModes,
	}
}

func (s *wgpuSurfaceImpl) Configure(cfg *SurfaceConfiguration) error {
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("gpu: cannot configure a %dx%d surface", cfg.Width, cfg.Height)
	}
	capabilities := s.surface.GetCapabilities(s.adapter)
	if len(capabilities.AlphaModes) == 0 {
		return fmt.Errorf("gpu: surface reports no supported alpha modes")
	}

	s.surface.Configure(s.adapter, s.device, &wgpu.SurfaceConfiguration{
		Usage:       cfg.Usage,
		Format:      cfg.Format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		PresentMode: cfg.PresentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	return nil
}

func (s *wgpuSurfaceImpl) AcquireTexture() (SurfaceTexture, error) {
	tex, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	return &wgpuSurfaceTexture{texture: tex}, nil
}

func (s *wgpuSurfaceImpl) Present() {
	s.surface.Present()
}

func (s *wgpuSurfaceImpl) Release() {
	if s.surface != nil {
		s.surface.Release()
		s.surface = nil
	}
}
