package gputest

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrSurfaceLost is a convenience acquire error for tests that simulate an outdated or lost swap chain.
var ErrSurfaceLost = errors.New("gputest: surface lost")

// Surface is a recording gpu.Surface. Acquire errors queued with FailAcquire are returned one per call before a
// texture is handed out.
type Surface struct {
	Caps       gpu.SurfaceCapabilities
	Configs    []gpu.SurfaceConfiguration
	Acquired   []*SurfaceTexture
	Presents   int
	ConfigErr  error
	Released   bool
	acquireErr []error
}

var _ gpu.Surface = &Surface{}

// NewSurface creates a surface advertising the given formats and present modes.
func NewSurface(formats []wgpu.TextureFormat, modes []wgpu.PresentMode) *Surface {
	return &Surface{
		Caps: gpu.SurfaceCapabilities{
			Formats:      formats,
			PresentModes: modes,
			AlphaModes:   []wgpu.CompositeAlphaMode{wgpu.CompositeAlphaModeOpaque},
		},
	}
}

// NewDefaultSurface creates a surface that supports BGRA8UnormSrgb with FIFO and Mailbox presentation.
func NewDefaultSurface() *Surface {
	return NewSurface(
		[]wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatBGRA8Unorm},
		[]wgpu.PresentMode{wgpu.PresentModeFifo, wgpu.PresentModeMailbox},
	)
}

// FailAcquire queues errors returned by the next AcquireTexture calls, one per call.
func (s *Surface) FailAcquire(errs ...error) {
	s.acquireErr = append(s.acquireErr, errs...)
}

// Current returns the most recent configuration, or false when the surface was never configured.
func (s *Surface) Current() (gpu.SurfaceConfiguration, bool) {
	if len(s.Configs) == 0 {
		return gpu.SurfaceConfiguration{}, false
	}
	return s.Configs[len(s.Configs)-1], true
}

func (s *Surface) Capabilities() gpu.SurfaceCapabilities {
	return s.Caps
}

func (s *Surface) Configure(cfg *gpu.SurfaceConfiguration) error {
	if s.ConfigErr != nil {
		return s.ConfigErr
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("gputest: configure %dx%d: %w", cfg.Width, cfg.Height, gpu.ErrZeroSize)
	}
	s.Configs = append(s.Configs, *cfg)
	return nil
}

func (s *Surface) AcquireTexture() (gpu.SurfaceTexture, error) {
	if len(s.acquireErr) > 0 {
		err := s.acquireErr[0]
		s.acquireErr = s.acquireErr[1:]
		return nil, err
	}
	cfg, ok := s.Current()
	if !ok {
		return nil, errors.New("gputest: surface is not configured")
	}
	t := &SurfaceTexture{Width: cfg.Width, Height: cfg.Height}
	s.Acquired = append(s.Acquired, t)
	return t, nil
}

func (s *Surface) Present() {
	s.Presents++
}

func (s *Surface) Release() { s.Released = true }

// SurfaceTexture is a recording gpu.SurfaceTexture.
type SurfaceTexture struct {
	Width    uint32
	Height   uint32
	Views    []*TextureView
	Released bool
}

func (t *SurfaceTexture) CreateView() (gpu.TextureView, error) {
	v := &TextureView{Source: "surface", Width: t.Width, Height: t.Height}
	t.Views = append(t.Views, v)
	return v, nil
}

func (t *SurfaceTexture) Release() { t.Released = true }
