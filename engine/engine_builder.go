package engine

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/config"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig sets the viewer configuration. Defaults to config.Default().
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = cfg
	}
}

// WithProfiling enables or disables frame statistics logging. The config's profiling flag also enables it.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally. The engine does not close a supplied window.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithDevice supplies the device and surface instead of creating a wgpu device for the window.
//
// Parameters:
//   - device: the device capability
//   - surf: the presentable surface of the window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDevice(device gpu.Device, surf gpu.Surface) EngineBuilderOption {
	return func(e *engine) {
		e.device = device
		e.surf = surf
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithLogger sets the logger passed to every component. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}
