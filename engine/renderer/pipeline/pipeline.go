package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// BlendReplace writes the fragment color over the target unchanged.
var BlendReplace = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorZero,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorZero,
		Operation: wgpu.BlendOperationAdd,
	},
}

// pipeline is the implementation of the Pipeline interface.
// It holds the fixed-function configuration of a render pipeline and, once created, the device objects.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used as the device label
	pipelineKey string

	vertexShader, fragmentShader shader.Shader
	vertexLayouts                []wgpu.VertexBufferLayout

	depthTestEnabled  bool
	depthWriteEnabled bool
	depthCompare      wgpu.CompareFunction
	depthFormat       wgpu.TextureFormat
	colorFormat       wgpu.TextureFormat
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
	blendState        wgpu.BlendState

	vertexModule   gpu.ShaderModule
	fragmentModule gpu.ShaderModule
	layout         gpu.PipelineLayout
	renderPipeline gpu.RenderPipeline
}

// Pipeline describes a render pipeline: two shader stages, the vertex input layout, and the fixed-function
// rasterization, depth and blend state. Create turns the description into device objects.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader of the given stage, nil if not set.
	//
	// Parameters:
	//   - shaderType: the stage to retrieve
	//
	// Returns:
	//   - shader.Shader: the shader for the stage, or nil
	Shader(shaderType shader.ShaderType) shader.Shader

	// VertexLayouts returns the vertex buffer layouts the pipeline consumes.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: one layout per vertex buffer slot
	VertexLayouts() []wgpu.VertexBufferLayout

	DepthTestEnabled() bool
	DepthWriteEnabled() bool
	DepthCompare() wgpu.CompareFunction
	DepthFormat() wgpu.TextureFormat
	ColorFormat() wgpu.TextureFormat
	CullMode() wgpu.CullMode
	Topology() wgpu.PrimitiveTopology
	FrontFace() wgpu.FrontFace
	WriteMask() wgpu.ColorWriteMask
	BlendState() wgpu.BlendState

	// Descriptor builds the device descriptor for this pipeline from already-created modules and layout.
	//
	// Parameters:
	//   - layout: the pipeline layout
	//   - vs: the vertex shader module
	//   - fs: the fragment shader module
	//
	// Returns:
	//   - *gpu.RenderPipelineDescriptor: the descriptor
	Descriptor(layout gpu.PipelineLayout, vs, fs gpu.ShaderModule) *gpu.RenderPipelineDescriptor

	// Create creates the shader modules, the pipeline layout over the given bind group layouts, and the render
	// pipeline. Objects created before a failure are released.
	//
	// Parameters:
	//   - device: the device to create on
	//   - bindGroupLayouts: bind group layouts in group index order
	//
	// Returns:
	//   - error: the first device error, wrapped with the stage that failed
	Create(device gpu.Device, bindGroupLayouts []gpu.BindGroupLayout) error

	// RenderPipeline returns the created device pipeline, nil before Create.
	//
	// Returns:
	//   - gpu.RenderPipeline: the device pipeline
	RenderPipeline() gpu.RenderPipeline

	// Release releases every device object created by Create.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a render pipeline description. The defaults are opaque triangle-strip rendering: back faces
// culled with counter-clockwise front faces, depth test "less" with depth writes into Depth32Float, replace blending
// into a BGRA8UnormSrgb target.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline with the specified configuration
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		depthCompare:      wgpu.CompareFunctionLess,
		depthFormat:       wgpu.TextureFormatDepth32Float,
		colorFormat:       wgpu.TextureFormatBGRA8UnormSrgb,
		cullMode:          wgpu.CullModeBack,
		topology:          wgpu.PrimitiveTopologyTriangleStrip,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState:        BlendReplace,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) VertexLayouts() []wgpu.VertexBufferLayout { return p.vertexLayouts }
func (p *pipeline) DepthTestEnabled() bool                   { return p.depthTestEnabled }
func (p *pipeline) DepthWriteEnabled() bool                  { return p.depthWriteEnabled }
func (p *pipeline) DepthCompare() wgpu.CompareFunction       { return p.depthCompare }
func (p *pipeline) DepthFormat() wgpu.TextureFormat          { return p.depthFormat }
func (p *pipeline) ColorFormat() wgpu.TextureFormat          { return p.colorFormat }
func (p *pipeline) CullMode() wgpu.CullMode                  { return p.cullMode }
func (p *pipeline) Topology() wgpu.PrimitiveTopology         { return p.topology }
func (p *pipeline) FrontFace() wgpu.FrontFace                { return p.frontFace }
func (p *pipeline) WriteMask() wgpu.ColorWriteMask           { return p.writeMask }
func (p *pipeline) BlendState() wgpu.BlendState              { return p.blendState }
func (p *pipeline) RenderPipeline() gpu.RenderPipeline       { return p.renderPipeline }

func (p *pipeline) Descriptor(layout gpu.PipelineLayout, vs, fs gpu.ShaderModule) *gpu.RenderPipelineDescriptor {
	depthCompare := p.depthCompare
	if !p.depthTestEnabled {
		depthCompare = wgpu.CompareFunctionAlways
	}
	blend := p.blendState

	desc := &gpu.RenderPipelineDescriptor{
		Label:  p.pipelineKey,
		Layout: layout,
		Vertex: gpu.VertexStage{
			Module:  vs,
			Buffers: p.vertexLayouts,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            p.depthFormat,
			DepthWriteEnabled: p.depthWriteEnabled,
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &gpu.FragmentStage{
			Module: fs,
			Targets: []wgpu.ColorTargetState{{
				Format:    p.colorFormat,
				Blend:     &blend,
				WriteMask: p.writeMask,
			}},
		},
	}
	if p.vertexShader != nil {
		desc.Vertex.EntryPoint = p.vertexShader.EntryPoint()
	}
	if p.fragmentShader != nil {
		desc.Fragment.EntryPoint = p.fragmentShader.EntryPoint()
	}
	return desc
}

func (p *pipeline) Create(device gpu.Device, bindGroupLayouts []gpu.BindGroupLayout) (err error) {
	if p.vertexShader == nil || p.fragmentShader == nil {
		return fmt.Errorf("pipeline %q: vertex and fragment shaders are required", p.pipelineKey)
	}
	defer func() {
		if err != nil {
			p.Release()
		}
	}()

	p.vertexModule, err = device.CreateShaderModule(p.vertexShader.Module())
	if err != nil {
		return fmt.Errorf("pipeline %q: vertex shader module: %w", p.pipelineKey, err)
	}
	p.fragmentModule, err = device.CreateShaderModule(p.fragmentShader.Module())
	if err != nil {
		return fmt.Errorf("pipeline %q: fragment shader module: %w", p.pipelineKey, err)
	}
	p.layout, err = device.CreatePipelineLayout(&gpu.PipelineLayoutDescriptor{
		Label:            p.pipelineKey + " layout",
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return fmt.Errorf("pipeline %q: layout: %w", p.pipelineKey, err)
	}
	p.renderPipeline, err = device.CreateRenderPipeline(p.Descriptor(p.layout, p.vertexModule, p.fragmentModule))
	if err != nil {
		return fmt.Errorf("pipeline %q: render pipeline: %w", p.pipelineKey, err)
	}
	return nil
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	if p.fragmentModule != nil {
		p.fragmentModule.Release()
		p.fragmentModule = nil
	}
	if p.vertexModule != nil {
		p.vertexModule.Release()
		p.vertexModule = nil
	}
}
