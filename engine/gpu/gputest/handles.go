package gputest

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Buffer is a recording gpu.Buffer backed by a byte slice.
type Buffer struct {
	label       string
	size        uint64
	usage       wgpu.BufferUsage
	Data        []byte
	Initialized bool
	Released    bool
}

var _ gpu.Buffer = &Buffer{}

func (b *Buffer) Label() string           { return b.label }
func (b *Buffer) Size() uint64            { return b.size }
func (b *Buffer) Usage() wgpu.BufferUsage { return b.usage }
func (b *Buffer) Release()                { b.Released = true }

// Texture is a recording gpu.Texture.
type Texture struct {
	Desc     gpu.TextureDescriptor
	Views    []*TextureView
	Released bool
}

var _ gpu.Texture = &Texture{}

func (t *Texture) Label() string              { return t.Desc.Label }
func (t *Texture) Width() uint32              { return t.Desc.Width }
func (t *Texture) Height() uint32             { return t.Desc.Height }
func (t *Texture) Format() wgpu.TextureFormat { return t.Desc.Format }
func (t *Texture) Release()                   { t.Released = true }

func (t *Texture) CreateView() (gpu.TextureView, error) {
	if t.Released {
		return nil, fmt.Errorf("texture %q: %w", t.Desc.Label, gpu.ErrReleased)
	}
	v := &TextureView{Source: t.Desc.Label, Width: t.Desc.Width, Height: t.Desc.Height}
	t.Views = append(t.Views, v)
	return v, nil
}

// TextureView records the texture it was created from.
type TextureView struct {
	Source   string
	Width    uint32
	Height   uint32
	Released bool
}

func (v *TextureView) Release() { v.Released = true }

type BindGroupLayout struct {
	Desc     wgpu.BindGroupLayoutDescriptor
	Released bool
}

func (l *BindGroupLayout) Release() { l.Released = true }

type BindGroup struct {
	Desc     gpu.BindGroupDescriptor
	Released bool
}

func (g *BindGroup) Release() { g.Released = true }

type PipelineLayout struct {
	Desc     gpu.PipelineLayoutDescriptor
	Released bool
}

func (l *PipelineLayout) Release() { l.Released = true }

type ShaderModule struct {
	Desc     gpu.ShaderModuleDescriptor
	Released bool
}

func (m *ShaderModule) Release() { m.Released = true }

type RenderPipeline struct {
	Desc     gpu.RenderPipelineDescriptor
	Released bool
}

func (p *RenderPipeline) Release() { p.Released = true }

// Copy is one recorded buffer-to-buffer copy.
type Copy struct {
	Src       *Buffer
	SrcOffset uint64
	Dst       *Buffer
	DstOffset uint64
	Size      uint64
}

// CommandBuffer holds the commands recorded by the encoder that produced it.
type CommandBuffer struct {
	Label    string
	Copies   []Copy
	Passes   []*RenderPass
	Released bool
}

func (c *CommandBuffer) Release() { c.Released = true }

// CommandEncoder records copies and render passes until Finish.
type CommandEncoder struct {
	Label    string
	Copies   []Copy
	Passes   []*RenderPass
	Finished bool
	Released bool
}

var _ gpu.CommandEncoder = &CommandEncoder{}

func (e *CommandEncoder) CopyBufferToBuffer(src gpu.Buffer, srcOffset uint64, dst gpu.Buffer, dstOffset uint64, size uint64) error {
	s, ok := src.(*Buffer)
	if !ok {
		return fmt.Errorf("copy source %q is not a gputest buffer", src.Label())
	}
	d, ok := dst.(*Buffer)
	if !ok {
		return fmt.Errorf("copy destination %q is not a gputest buffer", dst.Label())
	}
	if srcOffset+size > s.size || dstOffset+size > d.size {
		return fmt.Errorf("copy of %d bytes from %q to %q is out of range", size, s.label, d.label)
	}
	if s.usage&wgpu.BufferUsageCopySrc == 0 {
		return fmt.Errorf("copy source %q lacks COPY_SRC usage", s.label)
	}
	if d.usage&wgpu.BufferUsageCopyDst == 0 {
		return fmt.Errorf("copy destination %q lacks COPY_DST usage", d.label)
	}
	e.Copies = append(e.Copies, Copy{Src: s, SrcOffset: srcOffset, Dst: d, DstOffset: dstOffset, Size: size})
	return nil
}

func (e *CommandEncoder) BeginRenderPass(desc *gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	if e.Finished {
		return nil, fmt.Errorf("encoder %q already finished", e.Label)
	}
	p := &RenderPass{Desc: *desc}
	e.Passes = append(e.Passes, p)
	return p, nil
}

func (e *CommandEncoder) Finish() (gpu.CommandBuffer, error) {
	if e.Finished {
		return nil, fmt.Errorf("encoder %q already finished", e.Label)
	}
	for i, p := range e.Passes {
		if !p.Ended {
			return nil, fmt.Errorf("encoder %q: render pass %d was not ended", e.Label, i)
		}
	}
	e.Finished = true
	return &CommandBuffer{Label: e.Label, Copies: e.Copies, Passes: e.Passes}, nil
}

func (e *CommandEncoder) Release() { e.Released = true }

// DrawCall is one recorded draw.
type DrawCall struct {
	Indexed       bool
	Count         uint32
	InstanceCount uint32
}

// RenderPass records state changes and draws. Like the wgpu pass, binding a released handle is recorded in Err and
// returned from End.
type RenderPass struct {
	Desc          gpu.RenderPassDescriptor
	Pipeline      gpu.RenderPipeline
	BindGroups    map[uint32]gpu.BindGroup
	VertexBuffers map[uint32]gpu.Buffer
	IndexBuffer   gpu.Buffer
	IndexFormat   wgpu.IndexFormat
	Draws         []DrawCall
	Ended         bool
	Err           error
}

var _ gpu.RenderPass = &RenderPass{}

func (p *RenderPass) fail(format string, args ...any) {
	if p.Err == nil {
		p.Err = fmt.Errorf(format, args...)
	}
}

func (p *RenderPass) SetPipeline(rp gpu.RenderPipeline) {
	if fake, ok := rp.(*RenderPipeline); ok && fake.Released {
		p.fail("render pipeline: %w", gpu.ErrReleased)
		return
	}
	p.Pipeline = rp
}

func (p *RenderPass) SetBindGroup(index uint32, group gpu.BindGroup) {
	if fake, ok := group.(*BindGroup); ok && fake.Released {
		p.fail("bind group %d: %w", index, gpu.ErrReleased)
		return
	}
	if p.BindGroups == nil {
		p.BindGroups = make(map[uint32]gpu.BindGroup)
	}
	p.BindGroups[index] = group
}

func (p *RenderPass) SetVertexBuffer(slot uint32, buf gpu.Buffer) {
	if fake, ok := buf.(*Buffer); ok && fake.Released {
		p.fail("vertex buffer slot %d: %w", slot, gpu.ErrReleased)
		return
	}
	if p.VertexBuffers == nil {
		p.VertexBuffers = make(map[uint32]gpu.Buffer)
	}
	p.VertexBuffers[slot] = buf
}

func (p *RenderPass) SetIndexBuffer(buf gpu.Buffer, format wgpu.IndexFormat) {
	if fake, ok := buf.(*Buffer); ok && fake.Released {
		p.fail("index buffer: %w", gpu.ErrReleased)
		return
	}
	p.IndexBuffer = buf
	p.IndexFormat = format
}

func (p *RenderPass) Draw(vertexCount, instanceCount uint32) {
	p.Draws = append(p.Draws, DrawCall{Count: vertexCount, InstanceCount: instanceCount})
}

func (p *RenderPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.Draws = append(p.Draws, DrawCall{Indexed: true, Count: indexCount, InstanceCount: instanceCount})
}

func (p *RenderPass) End() error {
	if p.Ended {
		return fmt.Errorf("render pass %q already ended", p.Desc.Label)
	}
	p.Ended = true
	return p.Err
}

// Write is one recorded queue write.
type Write struct {
	Buffer *Buffer
	Offset uint64
	Data   []byte
}

// Queue records writes and submissions. Writes are applied to the target buffer immediately and submitted copies
// are applied in submission order.
type Queue struct {
	mu        *sync.Mutex
	Writes    []Write
	Submitted []*CommandBuffer
}

var _ gpu.Queue = &Queue{}

func (q *Queue) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	b, ok := buf.(*Buffer)
	if !ok {
		return fmt.Errorf("buffer %q is not a gputest buffer", buf.Label())
	}
	if b.Released {
		return fmt.Errorf("buffer %q: %w", b.label, gpu.ErrReleased)
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("write of %d bytes at offset %d overflows buffer %q (%d bytes)", len(data), offset, b.label, b.size)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	copy(b.Data[offset:], cp)
	q.Writes = append(q.Writes, Write{Buffer: b, Offset: offset, Data: cp})
	return nil
}

func (q *Queue) Submit(buffers ...gpu.CommandBuffer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, cb := range buffers {
		c, ok := cb.(*CommandBuffer)
		if !ok || c == nil {
			continue
		}
		for _, cp := range c.Copies {
			copy(cp.Dst.Data[cp.DstOffset:cp.DstOffset+cp.Size], cp.Src.Data[cp.SrcOffset:cp.SrcOffset+cp.Size])
		}
		q.Submitted = append(q.Submitted, c)
	}
}

// Passes returns every render pass of every submitted command buffer, in submission order.
func (q *Queue) Passes() []*RenderPass {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*RenderPass
	for _, c := range q.Submitted {
		out = append(out, c.Passes...)
	}
	return out
}

// WritesTo returns the recorded writes that targeted the given buffer.
func (q *Queue) WritesTo(buf gpu.Buffer) []Write {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Write
	for _, w := range q.Writes {
		if gpu.Buffer(w.Buffer) == buf {
			out = append(out, w)
		}
	}
	return out
}
