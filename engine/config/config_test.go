package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/camera"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "icosphere.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "missing.yaml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q) error: %v", path, err)
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("defaults invalid: %v", err)
		}
		if cfg.Window.Width != 800 || cfg.Window.Height != 600 {
			t.Errorf("window = %dx%d", cfg.Window.Width, cfg.Window.Height)
		}
		if cfg.Render.InstanceCount != renderer.DefaultInstanceCount || cfg.Render.Retries() != renderer.DefaultAcquireRetries {
			t.Errorf("render = %+v", cfg.Render)
		}
		if mode, _ := cfg.Render.Mode(); mode != wgpu.PresentModeMailbox {
			t.Errorf("present mode = %v", mode)
		}
		if cfg.Render.Color() != renderer.DefaultClearColor {
			t.Errorf("clear color = %+v", cfg.Render.Color())
		}
	}
}

func TestDefault_DoesNotAliasCameraDefaults(t *testing.T) {
	cfg := Default()
	cfg.Camera.Eye[0] = 99
	if camera.DefaultEye[0] == 99 {
		t.Fatal("Default shares the camera package defaults")
	}
}

func TestLoad_PartialFileMerges(t *testing.T) {
	path := writeConfig(t, `
window:
  width: 1920
  height: 1080
mesh:
  subdivisions: 3
  indexed: true
render:
  present_mode: VSync
  acquire_retries: 0
log_level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Window.Width != 1920 || cfg.Window.Height != 1080 || cfg.Window.Title != "icosphere" {
		t.Errorf("window = %+v", cfg.Window)
	}
	if cfg.Mesh.Subdivisions != 3 || !cfg.Mesh.Indexed {
		t.Errorf("mesh = %+v", cfg.Mesh)
	}
	if mode, _ := cfg.Render.Mode(); mode != wgpu.PresentModeFifo {
		t.Errorf("present mode = %v, want fifo", mode)
	}
	if cfg.Render.Retries() != 0 {
		t.Errorf("explicit zero retries became %d", cfg.Render.Retries())
	}
	if cfg.Render.InstanceCount != renderer.DefaultInstanceCount {
		t.Errorf("instance count = %d", cfg.Render.InstanceCount)
	}
	if lvl, _ := cfg.Level(); lvl != slog.LevelDebug {
		t.Errorf("log level = %v", lvl)
	}
	if cfg.Camera.FovDegrees != camera.DefaultFovDegrees || len(cfg.Camera.Eye) != 3 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative width", "window: {width: -1}"},
		{"subdivisions too deep", "mesh: {subdivisions: 99}"},
		{"negative subdivisions", "mesh: {subdivisions: -1}"},
		{"short clear color", "render: {clear_color: [1, 1, 1]}"},
		{"clear color out of range", "render: {clear_color: [1, 2, 1, 1]}"},
		{"negative retries", "render: {acquire_retries: -2}"},
		{"unknown present mode", "render: {present_mode: triple}"},
		{"two component eye", "camera: {eye: [1, 2]}"},
		{"flat fov", "camera: {fov_degrees: 180}"},
		{"far before near", "camera: {near: 5, far: 2}"},
		{"unknown log level", "log_level: chatty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); !errors.Is(err, ErrInvalid) {
				t.Fatalf("error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := writeConfig(t, "window: [unterminated")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if errors.Is(err, ErrInvalid) {
		t.Errorf("parse error reported as a validation error: %v", err)
	}
}

func TestRender_Mode(t *testing.T) {
	tests := []struct {
		in   string
		want wgpu.PresentMode
	}{
		{"mailbox", wgpu.PresentModeMailbox},
		{"fifo", wgpu.PresentModeFifo},
		{"vsync", wgpu.PresentModeFifo},
		{"immediate", wgpu.PresentModeImmediate},
		{"uncapped", wgpu.PresentModeImmediate},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Render{PresentMode: tt.in}.Mode()
			if err != nil || got != tt.want {
				t.Errorf("Mode() = %v, %v, want %v", got, err, tt.want)
			}
		})
	}
}

func TestCamera_CameraOptions(t *testing.T) {
	cfg, err := Parse([]byte("camera: {eye: [0, -3, 0], fov_degrees: 60}"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	cam := camera.NewCamera(cfg.Camera.CameraOptions()...)
	if cam.Eye().Y() != -3 || cam.Target() != camera.DefaultTarget || cam.Up() != camera.DefaultUp {
		t.Errorf("camera placement = %v %v %v", cam.Eye(), cam.Target(), cam.Up())
	}
	if cam.Near() != camera.DefaultNear || cam.Far() != camera.DefaultFar {
		t.Errorf("near/far = %v/%v", cam.Near(), cam.Far())
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "icosphere.example.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	d := Default()
	if cfg.Window != d.Window || cfg.Mesh != d.Mesh || cfg.Shaders != d.Shaders || cfg.LogLevel != d.LogLevel {
		t.Errorf("example file drifted from the defaults: %+v", cfg)
	}
	if cfg.Render.InstanceCount != d.Render.InstanceCount || cfg.Render.Retries() != d.Render.Retries() {
		t.Errorf("render = %+v", cfg.Render)
	}
}
