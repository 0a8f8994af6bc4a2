// Package gpu defines the device capability interface the engine renders through. Handles are opaque so the
// scene, presenter and renderer can run against the wgpu-backed implementation or the recording fake in gputest.
package gpu

import (
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrReleased is returned when an operation is attempted on a handle that has already been released.
var ErrReleased = errors.New("gpu: handle already released")

// ErrZeroSize is returned when a surface or render target is requested with a zero width or height.
var ErrZeroSize = errors.New("gpu: zero-size surface")

// Buffer is a device-side buffer allocation.
type Buffer interface {
	// Label returns the debug label the buffer was created with.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Size returns the allocation size in bytes.
	//
	// Returns:
	//   - uint64: the buffer size in bytes
	Size() uint64

	// Usage returns the usage flags the buffer was created with.
	//
	// Returns:
	//   - wgpu.BufferUsage: the buffer usage flags
	Usage() wgpu.BufferUsage

	// Release frees the device allocation. Safe to call more than once.
	Release()
}

// Texture is a device-side 2D texture allocation.
type Texture interface {
	// Label returns the debug label the texture was created with.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Width returns the texture width in texels.
	//
	// Returns:
	//   - uint32: the width in texels
	Width() uint32

	// Height returns the texture height in texels.
	//
	// Returns:
	//   - uint32: the height in texels
	Height() uint32

	// Format returns the texel format.
	//
	// Returns:
	//   - wgpu.TextureFormat: the texel format
	Format() wgpu.TextureFormat

	// CreateView creates a default view covering the whole texture.
	//
	// Returns:
	//   - TextureView: the created view
	//   - error: an error if the view could not be created
	CreateView() (TextureView, error)

	// Release frees the device allocation. Safe to call more than once.
	Release()
}

// TextureView is a view onto a Texture or a presentable surface image.
type TextureView interface {
	Release()
}

// BindGroupLayout describes the resource slots of a BindGroup.
type BindGroupLayout interface {
	Release()
}

// BindGroup is a bundle of resources bound to a shader under fixed slot indices.
type BindGroup interface {
	Release()
}

// PipelineLayout lists the BindGroupLayouts a pipeline consumes, indexed by group.
type PipelineLayout interface {
	Release()
}

// ShaderModule is a loaded, precompiled shader program.
type ShaderModule interface {
	Release()
}

// RenderPipeline is an immutable pipeline state object.
type RenderPipeline interface {
	Release()
}

// CommandBuffer is a finished batch of recorded commands ready for submission.
type CommandBuffer interface {
	Release()
}

// RenderPass records draw commands into a single render pass.
type RenderPass interface {
	// SetPipeline binds the pipeline state used by subsequent draws.
	//
	// Parameters:
	//   - p: the render pipeline to bind
	SetPipeline(p RenderPipeline)

	// SetBindGroup binds a resource group at the given group index.
	//
	// Parameters:
	//   - index: the group index declared in the pipeline layout
	//   - group: the bind group to bind
	SetBindGroup(index uint32, group BindGroup)

	// SetVertexBuffer binds the whole buffer to a vertex input slot.
	//
	// Parameters:
	//   - slot: the vertex buffer slot
	//   - buf: the vertex buffer
	SetVertexBuffer(slot uint32, buf Buffer)

	// SetIndexBuffer binds the whole buffer as the index source for indexed draws.
	//
	// Parameters:
	//   - buf: the index buffer
	//   - format: the index element format
	SetIndexBuffer(buf Buffer, format wgpu.IndexFormat)

	// Draw issues a non-indexed draw starting at vertex 0 and instance 0.
	//
	// Parameters:
	//   - vertexCount: the number of vertices to draw
	//   - instanceCount: the number of instances to draw
	Draw(vertexCount, instanceCount uint32)

	// DrawIndexed issues an indexed draw starting at index 0 and instance 0.
	//
	// Parameters:
	//   - indexCount: the number of indices to draw
	//   - instanceCount: the number of instances to draw
	DrawIndexed(indexCount, instanceCount uint32)

	// End finishes recording the pass.
	//
	// Returns:
	//   - error: an error if the pass could not be ended
	End() error
}

// CommandEncoder records copy and render commands into a CommandBuffer.
type CommandEncoder interface {
	// CopyBufferToBuffer records a device-side copy between two buffers.
	//
	// Parameters:
	//   - src: the source buffer (must have CopySrc usage)
	//   - srcOffset: the byte offset in the source
	//   - dst: the destination buffer (must have CopyDst usage)
	//   - dstOffset: the byte offset in the destination
	//   - size: the number of bytes to copy
	//
	// Returns:
	//   - error: an error if the copy could not be recorded
	CopyBufferToBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset uint64, size uint64) error

	// BeginRenderPass starts recording a render pass.
	//
	// Parameters:
	//   - desc: the attachments and load/store operations of the pass
	//
	// Returns:
	//   - RenderPass: the pass recorder; End must be called before Finish
	//   - error: an error if the pass could not be started
	BeginRenderPass(desc *RenderPassDescriptor) (RenderPass, error)

	// Finish ends recording and returns the command batch.
	//
	// Returns:
	//   - CommandBuffer: the recorded batch
	//   - error: an error if recording could not be finished
	Finish() (CommandBuffer, error)

	// Release frees the encoder. Safe to call after Finish.
	Release()
}

// Queue submits command batches and buffer writes to the device in order.
type Queue interface {
	// WriteBuffer schedules a host-to-device write of data into buf at offset.
	//
	// Parameters:
	//   - buf: the destination buffer (must have CopyDst usage)
	//   - offset: the byte offset in the destination
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write could not be scheduled
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// Submit schedules the command batches for execution in the given order.
	//
	// Parameters:
	//   - buffers: the command batches to submit
	Submit(buffers ...CommandBuffer)
}

// Device allocates resources and creates encoders.
type Device interface {
	// CreateBuffer allocates an uninitialized buffer.
	//
	// Parameters:
	//   - desc: the buffer size, usage and label
	//
	// Returns:
	//   - Buffer: the allocated buffer
	//   - error: an error if the allocation failed
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)

	// CreateBufferInit allocates a host-visible buffer populated with the given contents.
	//
	// Parameters:
	//   - desc: the contents, usage and label
	//
	// Returns:
	//   - Buffer: the allocated buffer
	//   - error: an error if the allocation failed
	CreateBufferInit(desc *BufferInitDescriptor) (Buffer, error)

	// CreateTexture allocates a 2D texture.
	//
	// Parameters:
	//   - desc: the texture size, format, usage and label
	//
	// Returns:
	//   - Texture: the allocated texture
	//   - error: an error if the allocation failed or the format is unsupported
	CreateTexture(desc *TextureDescriptor) (Texture, error)

	// CreateBindGroupLayout creates a layout from the given slot declarations.
	//
	// Parameters:
	//   - desc: the layout entries
	//
	// Returns:
	//   - BindGroupLayout: the created layout
	//   - error: an error if the layout is invalid
	CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (BindGroupLayout, error)

	// CreateBindGroup binds concrete resources to the slots of a layout.
	//
	// Parameters:
	//   - desc: the layout and resources
	//
	// Returns:
	//   - BindGroup: the created bind group
	//   - error: an error if the resources do not match the layout
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroup, error)

	// CreatePipelineLayout creates a pipeline layout from ordered bind group layouts.
	//
	// Parameters:
	//   - desc: the bind group layouts indexed by group
	//
	// Returns:
	//   - PipelineLayout: the created layout
	//   - error: an error if the layout is invalid
	CreatePipelineLayout(desc *PipelineLayoutDescriptor) (PipelineLayout, error)

	// CreateShaderModule loads a precompiled shader program.
	//
	// Parameters:
	//   - desc: the program bytes and their format
	//
	// Returns:
	//   - ShaderModule: the loaded module
	//   - error: an error if the program was rejected
	CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModule, error)

	// CreateRenderPipeline creates an immutable pipeline state object.
	//
	// Parameters:
	//   - desc: the stages, vertex layout and fixed-function state
	//
	// Returns:
	//   - RenderPipeline: the created pipeline
	//   - error: an error if the pipeline state is invalid
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipeline, error)

	// CreateCommandEncoder starts a new command batch.
	//
	// Parameters:
	//   - label: the debug label for the batch
	//
	// Returns:
	//   - CommandEncoder: the encoder
	//   - error: an error if the encoder could not be created
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Queue returns the device's submission queue.
	//
	// Returns:
	//   - Queue: the queue
	Queue() Queue

	// Release frees the queue, the device, the adapter and the instance. Release the Surface first.
	Release()
}

// SurfaceCapabilities lists what a Surface supports on the current adapter.
type SurfaceCapabilities struct {
	Formats      []wgpu.TextureFormat
	PresentModes []wgpu.PresentMode
	AlphaModes   []wgpu.CompositeAlphaMode
}

// SurfaceTexture is one presentable image acquired from a Surface.
type SurfaceTexture interface {
	// CreateView creates a render-attachment view onto the image.
	//
	// Returns:
	//   - TextureView: the view
	//   - error: an error if the view could not be created
	CreateView() (TextureView, error)

	// Release returns the image reference. Call after Surface.Present.
	Release()
}

// Surface is the presentable chain of a window.
type Surface interface {
	// Capabilities reports the formats and present modes the surface supports.
	//
	// Returns:
	//   - SurfaceCapabilities: the supported configuration values
	Capabilities() SurfaceCapabilities

	// Configure (re)creates the presentable chain with the given configuration.
	//
	// Parameters:
	//   - cfg: the chain dimensions, format and present mode
	//
	// Returns:
	//   - error: an error if the configuration was rejected
	Configure(cfg *SurfaceConfiguration) error

	// AcquireTexture blocks until the next presentable image is available.
	//
	// Returns:
	//   - SurfaceTexture: the acquired image
	//   - error: an error on timeout, or when the chain is outdated or lost
	AcquireTexture() (SurfaceTexture, error)

	// Present queues the most recently acquired image for display.
	Present()

	// Release frees the surface. It must not be used afterwards.
	Release()
}
