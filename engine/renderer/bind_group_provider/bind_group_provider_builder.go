package bind_group_provider

import (
	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer sets a buffer for a specific binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - buf: the buffer to associate with this binding
//
// Returns:
//   - BindGroupProviderOption: a function that sets the buffer for the specified binding
func WithBuffer(binding int, buf gpu.Buffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}

// WithVertexBuffer sets the vertex buffer and its vertex count.
//
// Parameters:
//   - buf: the vertex buffer
//   - count: the number of vertices in buf
//
// Returns:
//   - BindGroupProviderOption: a function that sets the vertex buffer for this provider
func WithVertexBuffer(buf gpu.Buffer, count int) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.vertexBuffer = buf
		p.vertexCount = count
	}
}

// WithIndexBuffer sets the index buffer, its index count and element format.
//
// Parameters:
//   - buf: the index buffer
//   - count: the number of indices in buf
//   - format: the index element format
//
// Returns:
//   - BindGroupProviderOption: a function that sets the index buffer for this provider
func WithIndexBuffer(buf gpu.Buffer, count int, format wgpu.IndexFormat) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.indexBuffer = buf
		p.indexCount = count
		p.indexFormat = format
	}
}
