package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/scene"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/surface"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrAcquireFailed is returned when no presentable image could be acquired within the retry budget.
	ErrAcquireFailed = errors.New("renderer: surface acquisition failed")

	// ErrNoEntities is returned when the scene has nothing to draw.
	ErrNoEntities = errors.New("renderer: scene has no entities")
)

const (
	// DefaultInstanceCount is the number of instances drawn per entity unless the entity overrides it.
	DefaultInstanceCount uint32 = 10000

	// DefaultAcquireRetries is how many times a failed acquisition is retried after reconfiguring the chain.
	DefaultAcquireRetries = 3
)

// DefaultClearColor is opaque white.
var DefaultClearColor = wgpu.Color{R: 1, G: 1, B: 1, A: 1}

// Renderer records and submits one frame per call.
type Renderer interface {
	// RenderFrame acquires the next presentable image, records a single render pass drawing every scene entity,
	// submits it and presents the image. Size-dependent scene targets that lag the presenter are recreated first.
	//
	// Parameters:
	//   - s: the scene to draw
	//   - p: the presenter owning the presentable chain
	//
	// Returns:
	//   - error: ErrNoEntities, ErrAcquireFailed, or the failing stage's error
	RenderFrame(s scene.Scene, p surface.Presenter) error

	// InstanceCount returns the default instance count of each draw.
	//
	// Returns:
	//   - uint32: the instance count
	InstanceCount() uint32

	// ClearColor returns the background color the color attachment is cleared to.
	//
	// Returns:
	//   - wgpu.Color: the clear color
	ClearColor() wgpu.Color

	// FrameCount returns the number of frames submitted so far.
	//
	// Returns:
	//   - uint64: the submitted frame count
	FrameCount() uint64
}

type renderer struct {
	device         gpu.Device
	logger         *slog.Logger
	instanceCount  uint32
	clearColor     wgpu.Color
	acquireRetries int
	frames         atomic.Uint64
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer drawing with device.
//
// Parameters:
//   - device: the device whose queue frames are submitted to
//   - options: the renderer options
//
// Returns:
//   - Renderer: the renderer
func NewRenderer(device gpu.Device, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		device:         device,
		logger:         slog.Default(),
		instanceCount:  DefaultInstanceCount,
		clearColor:     DefaultClearColor,
		acquireRetries: DefaultAcquireRetries,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *renderer) InstanceCount() uint32 {
	return r.instanceCount
}

func (r *renderer) ClearColor() wgpu.Color {
	return r.clearColor
}

func (r *renderer) FrameCount() uint64 {
	return r.frames.Load()
}

func (r *renderer) RenderFrame(s scene.Scene, p surface.Presenter) error {
	entities := s.Entities()
	if len(entities) == 0 {
		return ErrNoEntities
	}

	cfg, ok := p.Config()
	if !ok {
		return fmt.Errorf("render frame: surface not configured")
	}
	if w, h := s.Size(); w != cfg.Width || h != cfg.Height {
		r.logger.Debug("scene targets lag surface", "scene_width", w, "scene_height", h, "width", cfg.Width, "height", cfg.Height)
		if err := s.Resize(cfg.Width, cfg.Height); err != nil {
			return fmt.Errorf("render frame: %w", err)
		}
	}

	frame, err := r.acquire(p)
	if err != nil {
		return err
	}
	defer frame.Release()

	view, err := frame.CreateView()
	if err != nil {
		return fmt.Errorf("render frame: surface view: %w", err)
	}
	defer view.Release()

	encoder, err := r.device.CreateCommandEncoder("frame")
	if err != nil {
		return fmt.Errorf("render frame: command encoder: %w", err)
	}
	defer encoder.Release()

	pass, err := encoder.BeginRenderPass(&gpu.RenderPassDescriptor{
		Label: "icosphere pass",
		ColorAttachments: []gpu.ColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: r.clearColor,
		}},
		DepthStencilAttachment: &gpu.DepthStencilAttachment{
			View:              s.DepthView(),
			DepthLoadOp:       wgpu.LoadOpClear,
			DepthStoreOp:      wgpu.StoreOpStore,
			DepthClearValue:   1.0,
			StencilClearValue: 0,
		},
	})
	if err != nil {
		return fmt.Errorf("render frame: begin pass: %w", err)
	}

	globals := s.Globals().BindGroup()
	for _, e := range entities {
		r.draw(pass, globals, e)
	}
	if err := pass.End(); err != nil {
		return fmt.Errorf("render frame: end pass: %w", err)
	}

	cmd, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("render frame: finish: %w", err)
	}
	r.device.Queue().Submit(cmd)
	cmd.Release()

	p.Present()
	r.frames.Add(1)
	return nil
}

func (r *renderer) draw(pass gpu.RenderPass, globals gpu.BindGroup, e *scene.RenderEntity) {
	instances := r.instanceCount
	if e.Instances != 0 {
		instances = e.Instances
	}

	pass.SetPipeline(e.Pipeline.RenderPipeline())
	pass.SetBindGroup(scene.GlobalGroup, globals)
	if bg := e.Resources.BindGroup(); bg != nil {
		pass.SetBindGroup(scene.EntityGroup, bg)
	}
	pass.SetVertexBuffer(0, e.Resources.VertexBuffer())
	if e.Indexed() {
		pass.SetIndexBuffer(e.Resources.IndexBuffer(), e.Resources.IndexFormat())
		pass.DrawIndexed(e.DrawCount(), instances)
		return
	}
	pass.Draw(e.DrawCount(), instances)
}

// acquire gets the next image, recreating the chain between attempts.
func (r *renderer) acquire(p surface.Presenter) (gpu.SurfaceTexture, error) {
	var lastErr error
	for attempt := 0; attempt <= r.acquireRetries; attempt++ {
		if attempt > 0 {
			r.logger.Warn("surface acquire failed, reconfiguring", "attempt", attempt, "error", lastErr)
			if err := p.Reconfigure(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrAcquireFailed, err)
			}
		}
		frame, err := p.Acquire()
		if err == nil {
			return frame, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrAcquireFailed, r.acquireRetries+1, lastErr)
}
