package scene

import (
	"io/fs"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/camera"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/mesh"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer/pipeline"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithLabel sets the label prefix for every device object the scene creates.
//
// Parameters:
//   - label: the label prefix
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLabel(label string) SceneBuilderOption {
	return func(s *scene) {
		s.label = label
	}
}

// WithLevel sets the subdivision level of the sphere mesh. Defaults to 0, the plain icosahedron.
//
// Parameters:
//   - level: the subdivision level
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLevel(level int) SceneBuilderOption {
	return func(s *scene) {
		s.level = level
	}
}

// WithIndexed draws the sphere as an indexed triangle list instead of the default triangle strip.
//
// Parameters:
//   - indexed: true to upload an index buffer
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithIndexed(indexed bool) SceneBuilderOption {
	return func(s *scene) {
		s.indexed = indexed
	}
}

// WithShaderSource sets the file system the shader artifacts are read from. Defaults to the embedded artifacts.
//
// Parameters:
//   - fsys: the artifact file system
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShaderSource(fsys fs.FS) SceneBuilderOption {
	return func(s *scene) {
		s.shaderFS = fsys
	}
}

// WithShaderNames sets the vertex and fragment artifact names. Empty names keep the defaults.
//
// Parameters:
//   - vertex: the vertex artifact name
//   - fragment: the fragment artifact name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShaderNames(vertex, fragment string) SceneBuilderOption {
	return func(s *scene) {
		if vertex != "" {
			s.vertexName = vertex
		}
		if fragment != "" {
			s.fragmentName = fragment
		}
	}
}

// WithEntryPoint sets the entry point name used by both shader stages.
//
// Parameters:
//   - name: the entry point
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithEntryPoint(name string) SceneBuilderOption {
	return func(s *scene) {
		s.entryPoint = name
	}
}

// WithCamera sets the camera whose transform fills the uniform buffer.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCamera(cam camera.Camera) SceneBuilderOption {
	return func(s *scene) {
		s.camera = cam
	}
}

// WithInstanceCount sets the instance count of the sphere entity. Zero defers to the renderer.
//
// Parameters:
//   - n: the instance count
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithInstanceCount(n uint32) SceneBuilderOption {
	return func(s *scene) {
		s.instances = n
	}
}

// WithPacker sets the vertex packer. A packer passed here is not closed by Release.
//
// Parameters:
//   - p: the packer
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPacker(p mesh.Packer) SceneBuilderOption {
	return func(s *scene) {
		s.packer = p
	}
}

// WithPipelineOptions appends pipeline options applied after the scene's own, e.g. a different cull mode.
//
// Parameters:
//   - opts: the pipeline options
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPipelineOptions(opts ...pipeline.PipelineBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.pipelineOpts = append(s.pipelineOpts, opts...)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) SceneBuilderOption {
	return func(s *scene) {
		if logger != nil {
			s.logger = logger
		}
	}
}
