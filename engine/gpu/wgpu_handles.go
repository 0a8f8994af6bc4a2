package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuBuffer struct {
	buffer *wgpu.Buffer
	label  string
	size   uint64
	usage  wgpu.BufferUsage
}

func (b *wgpuBuffer) Label() string           { return b.label }
func (b *wgpuBuffer) Size() uint64            { return b.size }
func (b *wgpuBuffer) Usage() wgpu.BufferUsage { return b.usage }

func (b *wgpuBuffer) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

// rawBuffer unwraps a Buffer created by the wgpu device.
func rawBuffer(b Buffer) (*wgpu.Buffer, error) {
	wb, ok := b.(*wgpuBuffer)
	if !ok {
		return nil, fmt.Errorf("buffer %q was not created by the wgpu device", b.Label())
	}
	if wb.buffer == nil {
		return nil, fmt.Errorf("buffer %q: %w", wb.label, ErrReleased)
	}
	return wb.buffer, nil
}

type wgpuTexture struct {
	texture *wgpu.Texture
	label   string
	width   uint32
	height  uint32
	format  wgpu.TextureFormat
}

func (t *wgpuTexture) Label() string              { return t.label }
func (t *wgpuTexture) Width() uint32              { return t.width }
func (t *wgpuTexture) Height() uint32             { return t.height }
func (t *wgpuTexture) Format() wgpu.TextureFormat { return t.format }

func (t *wgpuTexture) CreateView() (TextureView, error) {
	if t.texture == nil {
		return nil, fmt.Errorf("texture %q: %w", t.label, ErrReleased)
	}
	view, err := t.texture.CreateView(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuTextureView{view: view}, nil
}

func (t *wgpuTexture) Release() {
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

type wgpuTextureView struct {
	view *wgpu.TextureView
}

func (v *wgpuTextureView) Release() {
	if v.view != nil {
		v.view.Release()
		v.view = nil
	}
}

type wgpuBindGroupLayout struct {
	layout *wgpu.BindGroupLayout
}

func (l *wgpuBindGroupLayout) Release() {
	if l.layout != nil {
		l.layout.Release()
		l.layout = nil
	}
}

type wgpuBindGroup struct {
	group *wgpu.BindGroup
}

func (g *wgpuBindGroup) Release() {
	if g.group != nil {
		g.group.Release()
		g.group = nil
	}
}

type wgpuPipelineLayout struct {
	layout *wgpu.PipelineLayout
}

func (l *wgpuPipelineLayout) Release() {
	if l.layout != nil {
		l.layout.Release()
		l.layout = nil
	}
}

type wgpuShaderModule struct {
	module *wgpu.ShaderModule
}

func (m *wgpuShaderModule) Release() {
	if m.module != nil {
		m.module.Release()
		m.module = nil
	}
}

type wgpuRenderPipeline struct {
	pipeline *wgpu.RenderPipeline
}

func (p *wgpuRenderPipeline) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
}

type wgpuCommandBuffer struct {
	buffer *wgpu.CommandBuffer
}

func (c *wgpuCommandBuffer) Release() {
	if c.buffer != nil {
		c.buffer.Release()
		c.buffer = nil
	}
}

type wgpuSurfaceTexture struct {
	texture *wgpu.Texture
}

func (s *wgpuSurfaceTexture) CreateView() (TextureView, error) {
	view, err := s.texture.CreateView(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuTextureView{view: view}, nil
}

func (s *wgpuSurfaceTexture) Release() {
	if s.texture != nil {
		s.texture.Release()
		s.texture = nil
	}
}

type wgpuQueue struct {
	queue *wgpu.Queue
}

func (q *wgpuQueue) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	raw, err := rawBuffer(buf)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > buf.Size() {
		return fmt.Errorf("write of %d bytes at offset %d overflows buffer %q (%d bytes)", len(data), offset, buf.Label(), buf.Size())
	}
	q.queue.WriteBuffer(raw, offset, data)
	return nil
}

func (q *wgpuQueue) Submit(buffers ...CommandBuffer) {
	raw := make([]*wgpu.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		if cb, ok := b.(*wgpuCommandBuffer); ok && cb.buffer != nil {
			raw = append(raw, cb.buffer)
		}
	}
	if len(raw) == 0 {
		return
	}
	q.queue.Submit(raw...)
}

type wgpuCommandEncoder struct {
	encoder *wgpu.CommandEncoder
}

func (e *wgpuCommandEncoder) CopyBufferToBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset uint64, size uint64) error {
	rawSrc, err := rawBuffer(src)
	if err != nil {
		return err
	}
	rawDst, err := rawBuffer(dst)
	if err != nil {
		return err
	}
	if srcOffset+size > src.Size() || dstOffset+size > dst.Size() {
		return fmt.Errorf("copy of %d bytes from %q to %q is out of range", size, src.Label(), dst.Label())
	}
	e.encoder.CopyBufferToBuffer(rawSrc, srcOffset, rawDst, dstOffset, size)
	return nil
}

func (e *wgpuCommandEncoder) BeginRenderPass(desc *RenderPassDescriptor) (RenderPass, error) {
	colors := make([]wgpu.RenderPassColorAttachment, len(desc.ColorAttachments))
	for i, c := range desc.ColorAttachments {
		view, ok := c.View.(*wgpuTextureView)
		if !ok || view == nil {
			return nil, fmt.Errorf("render pass %q color attachment %d is not a wgpu view", desc.Label, i)
		}
		colors[i] = wgpu.RenderPassColorAttachment{
			View:       view.view,
			LoadOp:     c.LoadOp,
			StoreOp:    c.StoreOp,
			ClearValue: c.ClearValue,
		}
	}

	rpDesc := &wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: colors,
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		view, ok := ds.View.(*wgpuTextureView)
		if !ok || view == nil {
			return nil, fmt.Errorf("render pass %q depth attachment is not a wgpu view", desc.Label)
		}
		// Depth32Float carries no stencil aspect, so stencil load/store ops stay undefined.
		rpDesc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:              view.view,
			DepthLoadOp:       ds.DepthLoadOp,
			DepthStoreOp:      ds.DepthStoreOp,
			DepthClearValue:   ds.DepthClearValue,
			StencilClearValue: ds.StencilClearValue,
		}
	}

	return &wgpuRenderPass{pass: e.encoder.BeginRenderPass(rpDesc)}, nil
}

func (e *wgpuCommandEncoder) Finish() (CommandBuffer, error) {
	cb, err := e.encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	return &wgpuCommandBuffer{buffer: cb}, nil
}

func (e *wgpuCommandEncoder) Release() {
	if e.encoder != nil {
		e.encoder.Release()
		e.encoder = nil
	}
}

// wgpuRenderPass keeps the first handle error of the pass and returns it from End, since the wgpu setters report
// nothing.
type wgpuRenderPass struct {
	pass *wgpu.RenderPassEncoder
	err  error
}

func (p *wgpuRenderPass) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *wgpuRenderPass) SetPipeline(rp RenderPipeline) {
	pipeline, ok := rp.(*wgpuRenderPipeline)
	switch {
	case !ok:
		p.fail(fmt.Errorf("render pipeline was not created by the wgpu device"))
	case pipeline.pipeline == nil:
		p.fail(fmt.Errorf("render pipeline: %w", ErrReleased))
	default:
		p.pass.SetPipeline(pipeline.pipeline)
	}
}

func (p *wgpuRenderPass) SetBindGroup(index uint32, group BindGroup) {
	bg, ok := group.(*wgpuBindGroup)
	switch {
	case !ok:
		p.fail(fmt.Errorf("bind group %d was not created by the wgpu device", index))
	case bg.group == nil:
		p.fail(fmt.Errorf("bind group %d: %w", index, ErrReleased))
	default:
		p.pass.SetBindGroup(index, bg.group, nil)
	}
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, buf Buffer) {
	raw, err := rawBuffer(buf)
	if err != nil {
		p.fail(fmt.Errorf("vertex buffer slot %d: %w", slot, err))
		return
	}
	p.pass.SetVertexBuffer(slot, raw, 0, wgpu.WholeSize)
}

func (p *wgpuRenderPass) SetIndexBuffer(buf Buffer, format wgpu.IndexFormat) {
	raw, err := rawBuffer(buf)
	if err != nil {
		p.fail(fmt.Errorf("index buffer: %w", err))
		return
	}
	p.pass.SetIndexBuffer(raw, format, 0, wgpu.WholeSize)
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount uint32) {
	p.pass.Draw(vertexCount, instanceCount, 0, 0)
}

func (p *wgpuRenderPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (p *wgpuRenderPass) End() error {
	err := p.pass.End()
	p.pass.Release()
	if p.err != nil {
		return p.err
	}
	return err
}
