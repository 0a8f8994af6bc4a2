package engine

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/camera"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/config"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// scriptedWindow runs one scripted step before each update and stops when the script runs out.
type scriptedWindow struct {
	width, height int
	script        []func(w *scriptedWindow)
	running       bool
	iterations    int

	onUpdate func()
	onResize func(width, height int)
	onClose  func()
	onKey    func(keyCode uint32)
}

var _ window.Window = &scriptedWindow{}

func newScriptedWindow(width, height int, script ...func(w *scriptedWindow)) *scriptedWindow {
	return &scriptedWindow{width: width, height: height, script: script, running: true}
}

func (w *scriptedWindow) SetUpdateCallback(cb func())                  { w.onUpdate = cb }
func (w *scriptedWindow) SetResizeCallback(cb func(width, height int)) { w.onResize = cb }
func (w *scriptedWindow) SetKeyDownCallback(cb func(keyCode uint32))   { w.onKey = cb }
func (w *scriptedWindow) SetCloseCallback(cb func())                   { w.onClose = cb }
func (w *scriptedWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor   { return nil }
func (w *scriptedWindow) IsRunning() bool                              { return w.running }
func (w *scriptedWindow) RequestClose()                                { w.running = false }
func (w *scriptedWindow) Close() error {
	w.running = false
	return nil
}
func (w *scriptedWindow) Width() int  { return w.width }
func (w *scriptedWindow) Height() int { return w.height }

func (w *scriptedWindow) ProcessMessages() {
	for w.running && w.iterations < len(w.script) {
		w.script[w.iterations](w)
		w.iterations++
		if w.running && w.onUpdate != nil {
			w.onUpdate()
		}
	}
}

func resize(width, height int) func(w *scriptedWindow) {
	return func(w *scriptedWindow) {
		w.width, w.height = width, height
		w.onResize(width, height)
	}
}

func idle(*scriptedWindow) {}

func userClose(w *scriptedWindow) {
	w.onClose()
	w.running = false
}

type harness struct {
	dev    *gputest.Device
	surf   *gputest.Surface
	win    *scriptedWindow
	engine Engine
}

func newHarness(t *testing.T, cfg config.Config, win *scriptedWindow, opts ...EngineBuilderOption) *harness {
	t.Helper()
	dev := gputest.NewDevice()
	surf := gputest.NewDefaultSurface()
	opts = append([]EngineBuilderOption{
		WithConfig(cfg),
		WithWindow(win),
		WithDevice(dev, surf),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	e, err := NewEngine(opts...)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	t.Cleanup(e.Release)
	return &harness{dev: dev, surf: surf, win: win, engine: e}
}

func TestNewEngine_WiresConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Mesh.Subdivisions = 1
	cfg.Mesh.Indexed = true
	cfg.Render.InstanceCount = 7
	cfg.Render.PresentMode = "fifo"
	h := newHarness(t, cfg, newScriptedWindow(640, 480))

	current, ok := h.surf.Current()
	if !ok || current.Width != 640 || current.Height != 480 || current.PresentMode != wgpu.PresentModeFifo {
		t.Errorf("surface config = %+v", current)
	}
	if h.engine.Renderer().InstanceCount() != 7 {
		t.Errorf("instance count = %d", h.engine.Renderer().InstanceCount())
	}
	entities := h.engine.Scene().Entities()
	if len(entities) != 1 || !entities[0].Indexed() || entities[0].DrawCount() != 80*3 {
		t.Fatalf("entities = %+v", entities)
	}
	if len(h.dev.RecordingQueue().Submitted) != 1 {
		t.Error("initial upload not submitted")
	}
	for _, b := range h.dev.Buffers {
		if b.Usage()&wgpu.BufferUsageCopySrc != 0 && !b.Released {
			t.Errorf("staging buffer %q kept after the initial upload", b.Label())
		}
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Mesh.Subdivisions = -1
	_, err := NewEngine(WithConfig(cfg), WithWindow(newScriptedWindow(640, 480)), WithDevice(gputest.NewDevice(), gputest.NewDefaultSurface()))
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("error = %v, want config.ErrInvalid", err)
	}
}

func TestNewEngine_ZeroSizeWindow(t *testing.T) {
	dev := gputest.NewDevice()
	_, err := NewEngine(WithWindow(newScriptedWindow(0, 0)), WithDevice(dev, gputest.NewDefaultSurface()))
	if !errors.Is(err, gpu.ErrZeroSize) {
		t.Fatalf("error = %v, want ErrZeroSize", err)
	}
	if live := dev.LiveTextures(); len(live) != 0 {
		t.Errorf("textures leaked: %d", len(live))
	}
}

func TestRun_RendersUntilClosed(t *testing.T) {
	h := newHarness(t, config.Default(), newScriptedWindow(800, 600, idle, idle, idle, userClose, idle))
	if err := h.engine.Run(); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if h.surf.Presents != 3 || h.engine.Renderer().FrameCount() != 3 {
		t.Errorf("presents = %d, frames = %d, want 3", h.surf.Presents, h.engine.Renderer().FrameCount())
	}
	if h.win.iterations != 4 {
		t.Errorf("loop ran %d iterations after close", h.win.iterations)
	}
}

func TestRun_Resize(t *testing.T) {
	h := newHarness(t, config.Default(), newScriptedWindow(800, 600,
		idle,
		resize(1000, 700),
		resize(1920, 1080),
		idle,
	))
	if err := h.engine.Run(); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	current, _ := h.surf.Current()
	if current.Width != 1920 || current.Height != 1080 {
		t.Errorf("surface = %dx%d, want 1920x1080", current.Width, current.Height)
	}
	if w, hh := h.engine.Scene().Size(); w != 1920 || hh != 1080 {
		t.Errorf("scene targets = %dx%d", w, hh)
	}
	aspect, _ := camera.AspectRatio(1920, 1080)
	want, _ := camera.Compute(aspect)
	u := camera.GPUTransformUniform{ViewProj: want}
	if !bytes.Equal(h.engine.Scene().UniformBuffer().(*gputest.Buffer).Data, u.Marshal()) {
		t.Error("uniform buffer does not hold the 1920x1080 transform")
	}
	if h.surf.Presents != 4 {
		t.Errorf("presents = %d, want 4", h.surf.Presents)
	}
}

func TestRun_MinimizedSkipsRendering(t *testing.T) {
	h := newHarness(t, config.Default(), newScriptedWindow(800, 600,
		idle,
		resize(0, 0),
		idle,
		resize(800, 600),
	))
	if err := h.engine.Run(); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if h.surf.Presents != 2 {
		t.Errorf("presents = %d, want 2", h.surf.Presents)
	}
	for _, c := range h.surf.Configs {
		if c.Width == 0 || c.Height == 0 {
			t.Fatal("zero size reached the surface")
		}
	}
	if len(h.surf.Configs) != 1 {
		t.Errorf("restoring the same size reconfigured the surface %d times", len(h.surf.Configs)-1)
	}
}

func TestRun_FatalAcquireStopsLoop(t *testing.T) {
	cfg := config.Default()
	retries := 1
	cfg.Render.AcquireRetries = &retries
	h := newHarness(t, cfg, newScriptedWindow(800, 600, idle, idle, idle))
	h.surf.FailAcquire(gputest.ErrSurfaceLost, gputest.ErrSurfaceLost)

	err := h.engine.Run()
	if !errors.Is(err, renderer.ErrAcquireFailed) {
		t.Fatalf("Run error = %v, want ErrAcquireFailed", err)
	}
	if h.win.iterations != 1 {
		t.Errorf("loop continued for %d iterations after a fatal error", h.win.iterations)
	}
}

func TestQuit(t *testing.T) {
	var e Engine
	win := newScriptedWindow(800, 600, idle, func(*scriptedWindow) { e.Quit() }, idle, idle)
	h := newHarness(t, config.Default(), win)
	e = h.engine
	if err := e.Run(); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if h.surf.Presents != 1 {
		t.Errorf("presents = %d, want 1", h.surf.Presents)
	}
}

func TestRelease_DeviceOwnership(t *testing.T) {
	t.Run("injected device stays with the caller", func(t *testing.T) {
		h := newHarness(t, config.Default(), newScriptedWindow(800, 600))
		h.engine.Release()
		if h.dev.Released || h.surf.Released {
			t.Errorf("device released = %v, surface released = %v", h.dev.Released, h.surf.Released)
		}
	})
	t.Run("owned device is released", func(t *testing.T) {
		h := newHarness(t, config.Default(), newScriptedWindow(800, 600))
		h.engine.(*engine).ownsDevice = true
		h.engine.Release()
		if !h.dev.Released || !h.surf.Released {
			t.Errorf("device released = %v, surface released = %v", h.dev.Released, h.surf.Released)
		}
		h.engine.Release()
	})
}

func TestKeyDown_Logged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := newHarness(t, config.Default(), newScriptedWindow(800, 600), WithLogger(logger))
	if h.win.onKey == nil {
		t.Fatal("key callback not wired")
	}
	h.win.onKey('A')
	if !bytes.Contains(buf.Bytes(), []byte("key down")) || !bytes.Contains(buf.Bytes(), []byte("key=65")) {
		t.Errorf("log = %q", buf.String())
	}
}

func TestFrameState(t *testing.T) {
	var f FrameState
	if _, _, ok := f.takeResize(); ok {
		t.Fatal("fresh state has a pending resize")
	}
	f.RequestResize(640, 480)
	f.RequestResize(-5, 720)
	w, h, ok := f.takeResize()
	if !ok || w != 0 || h != 720 {
		t.Errorf("takeResize = %d, %d, %v; want only the last size", w, h, ok)
	}
	if _, _, ok := f.takeResize(); ok {
		t.Error("resize applied twice")
	}
	f.RequestClose()
	if !f.Closing() {
		t.Error("close not recorded")
	}
}
