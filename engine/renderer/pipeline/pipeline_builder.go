package pipeline

import (
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex shader for this pipeline.
//
// Parameters:
//   - s: the vertex shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex shader for this pipeline
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader sets the fragment shader for this pipeline.
//
// Parameters:
//   - s: the fragment shader to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment shader for this pipeline
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithVertexLayouts sets the vertex buffer layouts, one per vertex buffer slot.
//
// Parameters:
//   - layouts: the vertex buffer layouts
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex layouts for this pipeline
func WithVertexLayouts(layouts ...wgpu.VertexBufferLayout) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexLayouts = layouts
	}
}

// WithDepthTestEnabled sets whether depth testing is enabled for this pipeline.
// A disabled test compares with CompareFunctionAlways.
//
// Parameters:
//   - enabled: a boolean indicating whether depth testing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test enabled state for this pipeline
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether depth writing is enabled for this pipeline.
//
// Parameters:
//   - enabled: a boolean indicating whether depth writing should be enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write enabled state for this pipeline
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithDepthCompare sets the depth comparison function.
//
// Parameters:
//   - compare: the comparison used by the depth test
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth comparison for this pipeline
func WithDepthCompare(compare wgpu.CompareFunction) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthCompare = compare
	}
}

// WithDepthFormat sets the depth attachment format.
//
// Parameters:
//   - format: the depth texture format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth format for this pipeline
func WithDepthFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthFormat = format
	}
}

// WithColorFormat sets the format of the single color target, normally the surface format.
//
// Parameters:
//   - format: the color target format
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color format for this pipeline
func WithColorFormat(format wgpu.TextureFormat) PipelineBuilderOption {
	return func(p *pipeline) {
		p.colorFormat = format
	}
}

// WithCullMode sets the cull mode for this pipeline.
//
// Parameters:
//   - mode: the cull mode to use for this pipeline (e.g., wgpu.CullModeNone, wgpu.CullModeFront, wgpu.CullModeBack)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode for this pipeline
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology for this pipeline.
//
// Parameters:
//   - topology: the primitive topology to use for this pipeline (e.g., wgpu.PrimitiveTopologyTriangleStrip, wgpu.PrimitiveTopologyTriangleList)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the primitive topology for this pipeline
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the front face winding order for this pipeline.
//
// Parameters:
//   - frontFace: the front face to use for this pipeline (e.g., wgpu.FrontFaceCCW, wgpu.FrontFaceCW)
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face for this pipeline
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithWriteMask sets the color write mask for this pipeline.
//
// Parameters:
//   - writeMask: the color write mask to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the color write mask for this pipeline
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = writeMask
	}
}

// WithBlendState sets the blend state for this pipeline. Defaults to BlendReplace.
//
// Parameters:
//   - blendState: the blend state to use for this pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state for this pipeline
func WithBlendState(blendState wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = blendState
	}
}
