package engine

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/camera"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/profiler"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/scene"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/surface"
)

// FrameState is the window state recorded by event callbacks and consumed by the next redraw.
// It is owned by the loop thread.
type FrameState struct {
	pending       bool
	width, height uint32
	minimized     bool
	closing       bool
}

// RequestResize records the latest framebuffer size. Only the last size before a redraw is applied.
//
// Parameters:
//   - width: the framebuffer width in pixels, negative values count as zero
//   - height: the framebuffer height in pixels, negative values count as zero
func (f *FrameState) RequestResize(width, height int) {
	f.pending = true
	f.width = uint32(max(width, 0))
	f.height = uint32(max(height, 0))
}

// RequestClose marks the loop as closing.
func (f *FrameState) RequestClose() {
	f.closing = true
}

// Closing reports whether a close was requested.
func (f *FrameState) Closing() bool {
	return f.closing
}

// Minimized reports whether the last applied size was zero.
func (f *FrameState) Minimized() bool {
	return f.minimized
}

// takeResize returns the pending size and clears it.
func (f *FrameState) takeResize() (uint32, uint32, bool) {
	if !f.pending {
		return 0, 0, false
	}
	f.pending = false
	return f.width, f.height, true
}

// frameLoop applies FrameState and renders. Every call happens on the loop thread.
type frameLoop struct {
	state     FrameState
	presenter surface.Presenter
	scene     scene.Scene
	renderer  renderer.Renderer
	profiler  *profiler.Profiler
	logger    *slog.Logger
}

// redraw applies a pending resize, then renders one frame unless the window is minimized.
//
// Returns:
//   - bool: true if a frame was presented
//   - error: a fatal error from the resize or render stage
func (l *frameLoop) redraw() (bool, error) {
	if width, height, ok := l.state.takeResize(); ok {
		if err := l.resize(width, height); err != nil {
			return false, err
		}
	}
	if l.state.minimized {
		return false, nil
	}

	if err := l.renderer.RenderFrame(l.scene, l.presenter); err != nil {
		return false, fmt.Errorf("render: %w", err)
	}
	if l.profiler != nil {
		l.profiler.Tick()
	}
	return true, nil
}

func (l *frameLoop) resize(width, height uint32) error {
	if width == 0 || height == 0 {
		if !l.state.minimized {
			l.logger.Debug("window minimized, pausing rendering")
		}
		l.state.minimized = true
		return nil
	}
	l.state.minimized = false

	changed, err := l.presenter.Resize(width, height)
	if err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	if !changed {
		return nil
	}
	aspect, err := camera.AspectRatio(width, height)
	if err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	if err := l.scene.UpdateTransform(aspect); err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	return nil
}
