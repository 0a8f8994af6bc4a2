package surface

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrZeroSize is returned when the presentable chain is requested with a zero width or height.
var ErrZeroSize = gpu.ErrZeroSize

// Format is the presentable pixel format: 8-bit BGRA with sRGB encoding.
const Format = wgpu.TextureFormatBGRA8UnormSrgb

// Resizable is anything holding size-dependent resources that must follow the presentable chain.
type Resizable interface {
	// Resize recreates the size-dependent resources at the new size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if the resources could not be recreated
	Resize(width, height uint32) error
}

// Presenter owns the configuration of a window's presentable chain and keeps any registered Resizable targets
// at the same size.
type Presenter interface {
	// Configure sets up the chain at the given size and resizes the targets.
	//
	// Parameters:
	//   - width: the width in pixels
	//   - height: the height in pixels
	//
	// Returns:
	//   - error: ErrZeroSize, a configuration error, or a target resize error
	Configure(width, height uint32) error

	// Resize reconfigures the chain and the targets when the size differs from the current configuration.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - bool: true when the chain was reconfigured
	//   - error: ErrZeroSize, a configuration error, or a target resize error
	Resize(width, height uint32) (bool, error)

	// Reconfigure recreates the chain with the current configuration, used when acquisition reports a stale chain.
	//
	// Returns:
	//   - error: an error if the chain has not been configured or the surface rejected it
	Reconfigure() error

	// Config returns the current configuration and whether the chain has been configured.
	//
	// Returns:
	//   - gpu.SurfaceConfiguration: the current configuration
	//   - bool: false before the first successful Configure
	Config() (gpu.SurfaceConfiguration, bool)

	// Acquire returns the next presentable image.
	//
	// Returns:
	//   - gpu.SurfaceTexture: the image
	//   - error: the surface error on timeout or a stale chain
	Acquire() (gpu.SurfaceTexture, error)

	// Present shows the most recently acquired image.
	Present()

	// SetTarget registers the Resizable that follows the chain size.
	//
	// Parameters:
	//   - target: the resizable target, nil to clear
	SetTarget(target Resizable)
}

type presenterImpl struct {
	mu sync.Mutex

	surface gpu.Surface
	device  gpu.Device
	target  Resizable
	logger  *slog.Logger

	preferredMode wgpu.PresentMode
	config        gpu.SurfaceConfiguration
	configured    bool
}

var _ Presenter = &presenterImpl{}

// NewPresenter creates a Presenter for surface. The chain is not configured until Configure is called.
//
// Parameters:
//   - surface: the presentable surface, borrowed
//   - device: the device the surface presents for, borrowed
//   - options: the presenter options
//
// Returns:
//   - Presenter: the presenter
func NewPresenter(surface gpu.Surface, device gpu.Device, options ...PresenterBuilderOption) Presenter {
	p := &presenterImpl{
		surface:       surface,
		device:        device,
		logger:        slog.Default(),
		preferredMode: wgpu.PresentModeMailbox,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// ChoosePresentMode returns preferred when supported, otherwise Fifo when supported, otherwise the first mode.
//
// Parameters:
//   - supported: the modes the surface reports
//   - preferred: the desired mode
//
// Returns:
//   - wgpu.PresentMode: the mode to configure
func ChoosePresentMode(supported []wgpu.PresentMode, preferred wgpu.PresentMode) wgpu.PresentMode {
	switch {
	case slices.Contains(supported, preferred):
		return preferred
	case len(supported) == 0, slices.Contains(supported, wgpu.PresentModeFifo):
		return wgpu.PresentModeFifo
	default:
		return supported[0]
	}
}

func (p *presenterImpl) Configure(width, height uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.configure(width, height)
}

func (p *presenterImpl) configure(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("configure surface %dx%d: %w", width, height, ErrZeroSize)
	}
	caps := p.surface.Capabilities()
	if len(caps.Formats) > 0 && !slices.Contains(caps.Formats, Format) {
		return fmt.Errorf("configure surface: format %v not supported (have %v)", Format, caps.Formats)
	}
	cfg := gpu.SurfaceConfiguration{
		Width:       width,
		Height:      height,
		Format:      Format,
		PresentMode: ChoosePresentMode(caps.PresentModes, p.preferredMode),
		Usage:       wgpu.TextureUsageRenderAttachment,
	}
	if err := p.surface.Configure(&cfg); err != nil {
		return fmt.Errorf("configure surface %dx%d: %w", width, height, err)
	}
	p.config = cfg
	p.configured = true

	if cfg.PresentMode != p.preferredMode {
		p.logger.Warn("present mode fallback", "preferred", p.preferredMode, "using", cfg.PresentMode)
	}
	p.logger.Info("surface configured",
		"width", width,
		"height", height,
		"format", cfg.Format,
		"present_mode", cfg.PresentMode,
	)

	if p.target != nil {
		if err := p.target.Resize(width, height); err != nil {
			return fmt.Errorf("resize surface targets: %w", err)
		}
	}
	return nil
}

func (p *presenterImpl) Resize(width, height uint32) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.configured && p.config.Width == width && p.config.Height == height {
		return false, nil
	}
	if err := p.configure(width, height); err != nil {
		return false, err
	}
	return true, nil
}

func (p *presenterImpl) Reconfigure() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.configured {
		return fmt.Errorf("reconfigure surface: not configured")
	}
	cfg := p.config
	if err := p.surface.Configure(&cfg); err != nil {
		return fmt.Errorf("reconfigure surface: %w", err)
	}
	p.logger.Debug("surface reconfigured", "width", cfg.Width, "height", cfg.Height)
	return nil
}

func (p *presenterImpl) Config() (gpu.SurfaceConfiguration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config, p.configured
}

func (p *presenterImpl) Acquire() (gpu.SurfaceTexture, error) {
	return p.surface.AcquireTexture()
}

func (p *presenterImpl) Present() {
	p.surface.Present()
}

func (p *presenterImpl) SetTarget(target Resizable) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = target
}
