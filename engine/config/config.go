// Package config loads the YAML configuration of the icosphere viewer. Every field is optional; unset fields take
// the defaults of the reference scene.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-icosphere/common"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/camera"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/mesh"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid value")

// Config is the full viewer configuration.
type Config struct {
	Window    Window  `yaml:"window"`
	Mesh      Mesh    `yaml:"mesh"`
	Render    Render  `yaml:"render"`
	Shaders   Shaders `yaml:"shaders"`
	Camera    Camera  `yaml:"camera"`
	Profiling bool    `yaml:"profiling"`
	LogLevel  string  `yaml:"log_level"`
}

// Window holds the initial window settings.
type Window struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Mesh holds the sphere generation settings.
type Mesh struct {
	Subdivisions int  `yaml:"subdivisions"`
	Indexed      bool `yaml:"indexed"`
}

// Render holds the frame settings.
type Render struct {
	InstanceCount  uint32    `yaml:"instance_count"`
	PresentMode    string    `yaml:"present_mode"`
	ClearColor     []float64 `yaml:"clear_color"`
	AcquireRetries *int      `yaml:"acquire_retries"` // pointer to distinguish unset vs 0
}

// Shaders locates the precompiled shader artifacts. An empty Dir uses the embedded artifacts.
type Shaders struct {
	Dir        string `yaml:"dir"`
	Vertex     string `yaml:"vertex"`
	Fragment   string `yaml:"fragment"`
	EntryPoint string `yaml:"entry_point"`
}

// Camera holds the fixed camera placement and projection.
type Camera struct {
	Eye        []float32 `yaml:"eye"`
	Target     []float32 `yaml:"target"`
	Up         []float32 `yaml:"up"`
	FovDegrees float32   `yaml:"fov_degrees"`
	Near       float32   `yaml:"near"`
	Far        float32   `yaml:"far"`
}

// Default returns the reference configuration.
func Default() Config {
	retries := renderer.DefaultAcquireRetries
	return Config{
		Window: Window{Title: "icosphere", Width: 800, Height: 600},
		Render: Render{
			InstanceCount:  renderer.DefaultInstanceCount,
			PresentMode:    "mailbox",
			ClearColor:     []float64{1, 1, 1, 1},
			AcquireRetries: &retries,
		},
		Shaders: Shaders{
			Vertex:     shader.DefaultVertex,
			Fragment:   shader.DefaultFragment,
			EntryPoint: shader.DefaultEntryPoint,
		},
		Camera: Camera{
			Eye:        slices.Clone(camera.DefaultEye[:]),
			Target:     slices.Clone(camera.DefaultTarget[:]),
			Up:         slices.Clone(camera.DefaultUp[:]),
			FovDegrees: camera.DefaultFovDegrees,
			Near:       camera.DefaultNear,
			Far:        camera.DefaultFar,
		},
		LogLevel: "info",
	}
}

// Load reads the configuration at path. A missing file yields Default; malformed YAML or invalid values are errors.
//
// Parameters:
//   - path: the YAML file path, empty for defaults
//
// Returns:
//   - Config: the merged configuration
//   - error: a read, parse or validation error
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("config file not found, using defaults", "path", path)
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, fills unset fields from Default and validates the result.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - Config: the merged configuration
//   - error: a parse or validation error
func Parse(data []byte) (Config, error) {
	var raw Config
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	cfg := raw.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	d := Default()
	out := c
	out.Window.Title = common.Coalesce(c.Window.Title, d.Window.Title)
	out.Window.Width = common.Coalesce(c.Window.Width, d.Window.Width)
	out.Window.Height = common.Coalesce(c.Window.Height, d.Window.Height)
	out.Render.InstanceCount = common.Coalesce(c.Render.InstanceCount, d.Render.InstanceCount)
	out.Render.PresentMode = common.Coalesce(strings.ToLower(c.Render.PresentMode), d.Render.PresentMode)
	if c.Render.ClearColor == nil {
		out.Render.ClearColor = d.Render.ClearColor
	}
	if c.Render.AcquireRetries == nil {
		out.Render.AcquireRetries = d.Render.AcquireRetries
	}
	out.Shaders.Vertex = common.Coalesce(c.Shaders.Vertex, d.Shaders.Vertex)
	out.Shaders.Fragment = common.Coalesce(c.Shaders.Fragment, d.Shaders.Fragment)
	out.Shaders.EntryPoint = common.Coalesce(c.Shaders.EntryPoint, d.Shaders.EntryPoint)
	if c.Camera.Eye == nil {
		out.Camera.Eye = d.Camera.Eye
	}
	if c.Camera.Target == nil {
		out.Camera.Target = d.Camera.Target
	}
	if c.Camera.Up == nil {
		out.Camera.Up = d.Camera.Up
	}
	out.Camera.FovDegrees = common.Coalesce(c.Camera.FovDegrees, d.Camera.FovDegrees)
	out.Camera.Near = common.Coalesce(c.Camera.Near, d.Camera.Near)
	out.Camera.Far = common.Coalesce(c.Camera.Far, d.Camera.Far)
	out.LogLevel = common.Coalesce(strings.ToLower(c.LogLevel), d.LogLevel)
	return out
}

// Validate reports the first invalid field, wrapped in ErrInvalid.
func (c Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	case c.Mesh.Subdivisions < 0 || c.Mesh.Subdivisions > mesh.MaxLevel:
		return fmt.Errorf("%w: mesh.subdivisions %d outside [0, %d]", ErrInvalid, c.Mesh.Subdivisions, mesh.MaxLevel)
	case len(c.Render.ClearColor) != 4:
		return fmt.Errorf("%w: render.clear_color needs 4 components, got %d", ErrInvalid, len(c.Render.ClearColor))
	case c.Render.Retries() < 0:
		return fmt.Errorf("%w: render.acquire_retries %d", ErrInvalid, c.Render.Retries())
	case len(c.Camera.Eye) != 3 || len(c.Camera.Target) != 3 || len(c.Camera.Up) != 3:
		return fmt.Errorf("%w: camera eye, target and up need 3 components", ErrInvalid)
	case c.Camera.FovDegrees <= 0 || c.Camera.FovDegrees >= 180:
		return fmt.Errorf("%w: camera.fov_degrees %v outside (0, 180)", ErrInvalid, c.Camera.FovDegrees)
	case c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near:
		return fmt.Errorf("%w: camera near %v / far %v", ErrInvalid, c.Camera.Near, c.Camera.Far)
	}
	for _, ch := range c.Render.ClearColor {
		if math.IsNaN(ch) || ch < 0 || ch > 1 {
			return fmt.Errorf("%w: render.clear_color component %v outside [0, 1]", ErrInvalid, ch)
		}
	}
	if _, err := c.Render.Mode(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Mode maps PresentMode to the wgpu present mode.
func (r Render) Mode() (wgpu.PresentMode, error) {
	switch r.PresentMode {
	case "mailbox":
		return wgpu.PresentModeMailbox, nil
	case "fifo", "vsync":
		return wgpu.PresentModeFifo, nil
	case "immediate", "uncapped":
		return wgpu.PresentModeImmediate, nil
	default:
		return 0, fmt.Errorf("%w: render.present_mode %q (want mailbox, fifo or immediate)", ErrInvalid, r.PresentMode)
	}
}

// Color returns ClearColor as a wgpu color.
func (r Render) Color() wgpu.Color {
	return wgpu.Color{R: r.ClearColor[0], G: r.ClearColor[1], B: r.ClearColor[2], A: r.ClearColor[3]}
}

// Retries returns AcquireRetries, or the renderer default when unset.
func (r Render) Retries() int {
	if r.AcquireRetries == nil {
		return renderer.DefaultAcquireRetries
	}
	return *r.AcquireRetries
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	return lvl, nil
}

// CameraOptions converts the camera section into camera builder options.
func (c Camera) CameraOptions() []camera.CameraBuilderOption {
	return []camera.CameraBuilderOption{
		camera.WithEye(vec3(c.Eye)),
		camera.WithTarget(vec3(c.Target)),
		camera.WithUp(vec3(c.Up)),
		camera.WithFovDegrees(c.FovDegrees),
		camera.WithNear(c.Near),
		camera.WithFar(c.Far),
	}
}

func vec3(v []float32) mgl32.Vec3 {
	return mgl32.Vec3{v[0], v[1], v[2]}
}
