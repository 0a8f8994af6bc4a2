package engine

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/camera"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/config"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/profiler"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/scene"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/surface"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/window"
)

// minimizedPoll is how long the loop sleeps per iteration while there is nothing to draw.
const minimizedPoll = 16 * time.Millisecond

// engine implements the Engine interface.
// Every window callback, resize and frame runs on the thread that called Run.
type engine struct {
	cfg    config.Config
	logger *slog.Logger

	window     window.Window
	ownsWindow bool

	device     gpu.Device
	surf       gpu.Surface
	ownsDevice bool
	present    surface.Presenter
	scene      scene.Scene
	render     renderer.Renderer
	loop       *frameLoop

	profilingEnabled bool
	renderFrameLimit time.Duration

	quit atomic.Bool
	err  error
}

// Engine is the main entry point for the viewer.
// It owns the window, the presenter, the scene and the renderer, and drives the event loop.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Config returns the configuration the engine was built with.
	Config() config.Config

	// Presenter returns the presenter owning the presentable chain.
	Presenter() surface.Presenter

	// Scene returns the scene being drawn.
	Scene() scene.Scene

	// Renderer returns the frame renderer.
	Renderer() renderer.Renderer

	// Run drives the event loop until the window closes, Quit is called or a frame fails.
	//
	// Returns:
	//   - error: the fatal error that stopped the loop, nil on a normal close
	Run() error

	// Quit asks the loop to stop after the current iteration. Safe to call from any goroutine and more than once.
	Quit()

	// Release frees the scene and, when the engine created them, the surface, the device and the window.
	Release()
}

// NewEngine creates the window (unless one is supplied), the device, the presenter, the scene and the renderer.
// The initial upload is submitted before NewEngine returns.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the ready engine
//   - error: a configuration, window, device, surface or scene error
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		cfg:    config.Default(),
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.cfg.Profiling {
		e.profilingEnabled = true
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	if err := e.init(); err != nil {
		e.Release()
		return nil, err
	}
	return e, nil
}

func (e *engine) init() error {
	if e.window == nil {
		w, err := window.NewWindow(
			window.WithTitle(e.cfg.Window.Title),
			window.WithWidth(e.cfg.Window.Width),
			window.WithHeight(e.cfg.Window.Height),
		)
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		e.window = w
		e.ownsWindow = true
	}

	if e.device == nil {
		dev, surf, err := gpu.NewWGPUDevice(e.window.SurfaceDescriptor(), gpu.WithLogger(e.logger))
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		e.device, e.surf = dev, surf
		e.ownsDevice = true
	}

	mode, err := e.cfg.Render.Mode()
	if err != nil {
		return err
	}
	e.present = surface.NewPresenter(e.surf, e.device,
		surface.WithPresentMode(mode),
		surface.WithLogger(e.logger),
	)
	width, height := uint32(max(e.window.Width(), 0)), uint32(max(e.window.Height(), 0))
	if err := e.present.Configure(width, height); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	sc, _ := e.present.Config()
	s, cmd, err := scene.Build(e.device, sc, e.sceneOptions()...)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	e.scene = s
	e.device.Queue().Submit(cmd)
	cmd.Release()
	s.ReleaseStaging()
	e.present.SetTarget(s)

	e.render = renderer.NewRenderer(e.device,
		renderer.WithInstanceCount(e.cfg.Render.InstanceCount),
		renderer.WithClearColor(e.cfg.Render.Color()),
		renderer.WithAcquireRetries(e.cfg.Render.Retries()),
		renderer.WithLogger(e.logger),
	)

	e.loop = &frameLoop{
		presenter: e.present,
		scene:     e.scene,
		renderer:  e.render,
		logger:    e.logger,
	}
	if e.profilingEnabled {
		e.loop.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	e.window.SetResizeCallback(e.loop.state.RequestResize)
	e.window.SetCloseCallback(e.loop.state.RequestClose)
	e.window.SetKeyDownCallback(func(keyCode uint32) {
		e.logger.Debug("key down", "key", keyCode)
	})
	return nil
}

func (e *engine) sceneOptions() []scene.SceneBuilderOption {
	c := e.cfg
	return []scene.SceneBuilderOption{
		scene.WithLevel(c.Mesh.Subdivisions),
		scene.WithIndexed(c.Mesh.Indexed),
		scene.WithShaderSource(shader.Source(c.Shaders.Dir)),
		scene.WithShaderNames(c.Shaders.Vertex, c.Shaders.Fragment),
		scene.WithEntryPoint(c.Shaders.EntryPoint),
		scene.WithCamera(camera.NewCamera(c.Camera.CameraOptions()...)),
		scene.WithLogger(e.logger),
	}
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Config() config.Config {
	return e.cfg
}

func (e *engine) Presenter() surface.Presenter {
	return e.present
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Renderer() renderer.Renderer {
	return e.render
}

func (e *engine) Run() error {
	e.window.SetUpdateCallback(e.update)
	e.window.ProcessMessages()
	e.logger.Info("event loop stopped", "frames", e.render.FrameCount())
	return e.err
}

func (e *engine) Quit() {
	e.quit.Store(true)
}

// update runs once per message loop iteration.
func (e *engine) update() {
	if e.quit.Load() || e.loop.state.Closing() {
		e.window.RequestClose()
		return
	}

	start := time.Now()
	presented, err := e.loop.redraw()
	if err != nil {
		e.logger.Error("frame failed", "error", err)
		e.err = err
		e.window.RequestClose()
		return
	}
	if !presented {
		time.Sleep(minimizedPoll)
		return
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

func (e *engine) Release() {
	if e.scene != nil {
		e.scene.Release()
		e.scene = nil
	}
	if e.ownsDevice {
		if e.surf != nil {
			e.surf.Release()
			e.surf = nil
		}
		if e.device != nil {
			e.device.Release()
			e.device = nil
		}
		e.ownsDevice = false
	}
	if e.ownsWindow && e.window != nil {
		if err := e.window.Close(); err != nil {
			e.logger.Warn("close window", "error", err)
		}
		e.window = nil
	}
}
