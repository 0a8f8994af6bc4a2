package gpu

import "github.com/cogentcore/webgpu/wgpu"

// ShaderFormat identifies the encoding of a precompiled shader program.
type ShaderFormat int

const (
	// ShaderFormatSPIRV is a SPIR-V binary; the byte length must be a multiple of 4.
	ShaderFormatSPIRV ShaderFormat = iota

	// ShaderFormatWGSL is WGSL text as produced by an offline toolchain.
	ShaderFormatWGSL
)

// String returns the lowercase name of the format.
func (f ShaderFormat) String() string {
	switch f {
	case ShaderFormatSPIRV:
		return "spirv"
	case ShaderFormatWGSL:
		return "wgsl"
	default:
		return "unknown"
	}
}

// BufferDescriptor describes an uninitialized buffer allocation.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage wgpu.BufferUsage
}

// BufferInitDescriptor describes a buffer allocation populated at creation time.
type BufferInitDescriptor struct {
	Label    string
	Contents []byte
	Usage    wgpu.BufferUsage
}

// TextureDescriptor describes a single-mip 2D texture allocation.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format wgpu.TextureFormat
	Usage  wgpu.TextureUsage
	// SampleCount defaults to 1 when zero.
	SampleCount uint32
}

// BindGroupEntry binds one resource to a slot. Exactly one of Buffer or TextureView is set.
type BindGroupEntry struct {
	Binding     uint32
	Buffer      Buffer
	Offset      uint64
	Size        uint64
	TextureView TextureView
}

// BindGroupDescriptor describes a BindGroup.
type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayout
	Entries []BindGroupEntry
}

// PipelineLayoutDescriptor describes a PipelineLayout.
type PipelineLayoutDescriptor struct {
	Label            string
	BindGroupLayouts []BindGroupLayout
}

// ShaderModuleDescriptor carries a precompiled shader program.
type ShaderModuleDescriptor struct {
	Label  string
	Format ShaderFormat
	Code   []byte
}

// VertexStage is the vertex program and the vertex input layout it consumes.
type VertexStage struct {
	Module     ShaderModule
	EntryPoint string
	Buffers    []wgpu.VertexBufferLayout
}

// FragmentStage is the fragment program and the color targets it writes.
type FragmentStage struct {
	Module     ShaderModule
	EntryPoint string
	Targets    []wgpu.ColorTargetState
}

// RenderPipelineDescriptor describes a RenderPipeline.
type RenderPipelineDescriptor struct {
	Label        string
	Layout       PipelineLayout
	Vertex       VertexStage
	Fragment     *FragmentStage
	Primitive    wgpu.PrimitiveState
	DepthStencil *wgpu.DepthStencilState
	Multisample  wgpu.MultisampleState
}

// ColorAttachment is one color target of a render pass.
type ColorAttachment struct {
	View       TextureView
	LoadOp     wgpu.LoadOp
	StoreOp    wgpu.StoreOp
	ClearValue wgpu.Color
}

// DepthStencilAttachment is the depth/stencil target of a render pass.
type DepthStencilAttachment struct {
	View              TextureView
	DepthLoadOp       wgpu.LoadOp
	DepthStoreOp      wgpu.StoreOp
	DepthClearValue   float32
	StencilClearValue uint32
}

// RenderPassDescriptor describes the attachments of a render pass.
type RenderPassDescriptor struct {
	Label                  string
	ColorAttachments       []ColorAttachment
	DepthStencilAttachment *DepthStencilAttachment
}

// SurfaceConfiguration describes the presentable chain of a Surface.
type SurfaceConfiguration struct {
	Width       uint32
	Height      uint32
	Format      wgpu.TextureFormat
	PresentMode wgpu.PresentMode
	Usage       wgpu.TextureUsage
}
