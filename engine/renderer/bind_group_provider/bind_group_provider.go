package bind_group_provider

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// The following fields are GPU allocated resources and are released by Release.

	// bindGroup is the GPU bind group created by Init, or nil before Init.
	bindGroup gpu.BindGroup
	// bindGroupLayout is the GPU bind group layout created by Init, or nil before Init.
	bindGroupLayout gpu.BindGroupLayout
	// buffers holds the GPU buffers bound by this provider, keyed by binding index.
	buffers map[int]gpu.Buffer
	// textureViews holds the GPU texture views bound by this provider, keyed by binding index.
	textureViews map[int]gpu.TextureView

	// The following fields describe drawable geometry owned by this provider.

	// vertexBuffer is the GPU vertex buffer, or nil for providers that only bind resources.
	vertexBuffer gpu.Buffer
	// vertexCount is the number of vertices a non-indexed draw covers.
	vertexCount int
	// indexBuffer is the GPU index buffer, or nil for non-indexed geometry.
	indexBuffer gpu.Buffer
	// indexCount is the number of indices for indexed draw calls.
	indexCount int
	// indexFormat is the element format of indexBuffer.
	indexFormat wgpu.IndexFormat
}

// BindGroupProvider owns the GPU resources of one binding group and, for drawable entities, the geometry buffers.
//
// Usage pattern:
//  1. Create a provider and attach buffers/texture views with SetBuffer/SetTextureView
//  2. Call Init with the layout descriptor to create the layout and bind group
//  3. Update buffer contents with BufferWrite.Apply
//  4. Bind BindGroup() (and VertexBuffer/IndexBuffer) while recording a render pass
type BindGroupProvider interface {
	// Release releases every GPU resource held by this provider.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Init creates the bind group layout from desc and a bind group binding this provider's buffers and texture
	// views at their binding indices. Any previous layout and group are released first.
	//
	// Parameters:
	//   - device: the device to create on
	//   - desc: the layout descriptor; every entry must have a matching buffer or texture view
	//
	// Returns:
	//   - error: a missing resource or device error
	Init(device gpu.Device, desc *wgpu.BindGroupLayoutDescriptor) error

	// BindGroup returns the created bind group, nil before Init.
	//
	// Returns:
	//   - gpu.BindGroup: the bind group or nil
	BindGroup() gpu.BindGroup

	// BindGroupLayout returns the created bind group layout, nil before Init.
	//
	// Returns:
	//   - gpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() gpu.BindGroupLayout

	// Buffer returns the buffer at a binding index, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - gpu.Buffer: the buffer or nil
	Buffer(binding int) gpu.Buffer

	// Buffers returns all buffers keyed by binding index.
	//
	// Returns:
	//   - map[int]gpu.Buffer: the buffers
	Buffers() map[int]gpu.Buffer

	// TextureView returns the texture view at a binding index, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - gpu.TextureView: the texture view or nil
	TextureView(binding int) gpu.TextureView

	// VertexBuffer returns the vertex buffer, or nil.
	//
	// Returns:
	//   - gpu.Buffer: the vertex buffer or nil
	VertexBuffer() gpu.Buffer

	// VertexCount returns the number of vertices a non-indexed draw covers.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// IndexBuffer returns the index buffer, or nil for non-indexed geometry.
	//
	// Returns:
	//   - gpu.Buffer: the index buffer or nil
	IndexBuffer() gpu.Buffer

	// IndexCount returns the number of indices for draw calls.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// IndexFormat returns the element format of the index buffer.
	//
	// Returns:
	//   - wgpu.IndexFormat: the index format
	IndexFormat() wgpu.IndexFormat

	// SetBuffer attaches a buffer at a binding index. Ownership passes to the provider.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer
	SetBuffer(binding int, buf gpu.Buffer)

	// SetTextureView attaches a texture view at a binding index. Ownership passes to the provider.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tv: the texture view
	SetTextureView(binding int, tv gpu.TextureView)

	// SetVertexBuffer attaches the vertex buffer and the number of vertices it holds.
	//
	// Parameters:
	//   - buf: the vertex buffer
	//   - count: the vertex count
	SetVertexBuffer(buf gpu.Buffer, count int)

	// SetIndexBuffer attaches the index buffer.
	//
	// Parameters:
	//   - buf: the index buffer
	//   - count: the index count
	//   - format: the index element format
	SetIndexBuffer(buf gpu.Buffer, count int, format wgpu.IndexFormat)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: the debug label, also used for the created layout and group
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		buffers:      make(map[int]gpu.Buffer),
		textureViews: make(map[int]gpu.TextureView),
		indexFormat:  wgpu.IndexFormatUint32,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Init(device gpu.Device, desc *wgpu.BindGroupLayoutDescriptor) error {
	entries := make([]gpu.BindGroupEntry, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		entry := gpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer.Type != wgpu.BufferBindingTypeUndefined:
			buf := p.buffers[int(e.Binding)]
			if buf == nil {
				return fmt.Errorf("bind group %q: no buffer for binding %d", p.label, e.Binding)
			}
			entry.Buffer = buf
			entry.Size = buf.Size()
		default:
			tv := p.textureViews[int(e.Binding)]
			if tv == nil {
				return fmt.Errorf("bind group %q: no texture view for binding %d", p.label, e.Binding)
			}
			entry.TextureView = tv
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })

	p.releaseGroup()

	layoutDesc := *desc
	if layoutDesc.Label == "" {
		layoutDesc.Label = p.label
	}
	layout, err := device.CreateBindGroupLayout(&layoutDesc)
	if err != nil {
		return fmt.Errorf("bind group layout %q: %w", p.label, err)
	}
	group, err := device.CreateBindGroup(&gpu.BindGroupDescriptor{
		Label:   p.label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		layout.Release()
		return fmt.Errorf("bind group %q: %w", p.label, err)
	}
	p.bindGroupLayout = layout
	p.bindGroup = group
	return nil
}

func (p *bindGroupProvider) BindGroup() gpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() gpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) gpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]gpu.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) TextureView(binding int) gpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) VertexBuffer() gpu.Buffer {
	return p.vertexBuffer
}

func (p *bindGroupProvider) VertexCount() int {
	return p.vertexCount
}

func (p *bindGroupProvider) IndexBuffer() gpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) IndexFormat() wgpu.IndexFormat {
	return p.indexFormat
}

func (p *bindGroupProvider) SetBuffer(binding int, buf gpu.Buffer) {
	if p.buffers == nil {
		p.buffers = make(map[int]gpu.Buffer)
	}
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTextureView(binding int, tv gpu.TextureView) {
	if p.textureViews == nil {
		p.textureViews = make(map[int]gpu.TextureView)
	}
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetVertexBuffer(buf gpu.Buffer, count int) {
	p.vertexBuffer = buf
	p.vertexCount = count
}

func (p *bindGroupProvider) SetIndexBuffer(buf gpu.Buffer, count int, format wgpu.IndexFormat) {
	p.indexBuffer = buf
	p.indexCount = count
	p.indexFormat = format
}

func (p *bindGroupProvider) releaseGroup() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
}

func (p *bindGroupProvider) Release() {
	p.releaseGroup()
	for i, tv := range p.textureViews {
		if tv != nil {
			tv.Release()
		}
		delete(p.textureViews, i)
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
}
