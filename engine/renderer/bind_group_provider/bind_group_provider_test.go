package bind_group_provider

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu/gputest"
	"github.com/cogentcore/webgpu/wgpu"
)

func uniformLayout(binding uint32) *wgpu.BindGroupLayoutDescriptor {
	return &wgpu.BindGroupLayoutDescriptor{
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    binding,
			Visibility: wgpu.ShaderStageVertex,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
		}},
	}
}

func newUniform(t *testing.T, dev *gputest.Device, size uint64) gpu.Buffer {
	t.Helper()
	buf, err := dev.CreateBuffer(&gpu.BufferDescriptor{
		Label: "uniform",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	return buf
}

func TestInit_BindsBuffers(t *testing.T) {
	dev := gputest.NewDevice()
	buf := newUniform(t, dev, 64)
	p := NewBindGroupProvider("globals", WithBuffer(0, buf))

	if err := p.Init(dev, uniformLayout(0)); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if p.BindGroup() == nil || p.BindGroupLayout() == nil {
		t.Fatal("Init left the bind group or layout nil")
	}
	if got := dev.BindGroupLayouts[0].Desc.Label; got != "globals" {
		t.Errorf("layout label = %q, want globals", got)
	}
	entries := dev.BindGroups[0].Desc.Entries
	if len(entries) != 1 || entries[0].Buffer != buf || entries[0].Size != 64 {
		t.Errorf("bind group entries = %+v", entries)
	}
}

func TestInit_ReplacesPreviousGroup(t *testing.T) {
	dev := gputest.NewDevice()
	p := NewBindGroupProvider("globals", WithBuffer(0, newUniform(t, dev, 64)))
	for i := 0; i < 2; i++ {
		if err := p.Init(dev, uniformLayout(0)); err != nil {
			t.Fatalf("Init #%d error: %v", i, err)
		}
	}
	if !dev.BindGroups[0].Released || !dev.BindGroupLayouts[0].Released {
		t.Error("first bind group and layout should be released by the second Init")
	}
	if dev.BindGroups[1].Released {
		t.Error("current bind group released")
	}
}

func TestInit_Errors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(dev *gputest.Device) BindGroupProvider
		layout *wgpu.BindGroupLayoutDescriptor
		want   error
	}{
		{
			name:   "missing buffer",
			setup:  func(dev *gputest.Device) BindGroupProvider { return NewBindGroupProvider("empty") },
			layout: uniformLayout(0),
		},
		{
			name: "missing texture view",
			setup: func(dev *gputest.Device) BindGroupProvider {
				return NewBindGroupProvider("empty")
			},
			layout: &wgpu.BindGroupLayoutDescriptor{Entries: []wgpu.BindGroupLayoutEntry{{
				Binding: 1,
				Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat},
			}}},
		},
		{
			name: "layout failure",
			setup: func(dev *gputest.Device) BindGroupProvider {
				dev.FailOn(gputest.OpCreateBindGroupLayout, "", nil)
				return NewBindGroupProvider("g", WithBuffer(0, newUniform(t, dev, 64)))
			},
			layout: uniformLayout(0),
			want:   gputest.ErrInjected,
		},
		{
			name: "group failure",
			setup: func(dev *gputest.Device) BindGroupProvider {
				dev.FailOn(gputest.OpCreateBindGroup, "", nil)
				return NewBindGroupProvider("g", WithBuffer(0, newUniform(t, dev, 64)))
			},
			layout: uniformLayout(0),
			want:   gputest.ErrInjected,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := gputest.NewDevice()
			p := tt.setup(dev)
			err := p.Init(dev, tt.layout)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if p.BindGroup() != nil {
				t.Error("BindGroup() should be nil after a failed Init")
			}
			for _, l := range dev.BindGroupLayouts {
				if !l.Released {
					t.Error("layout leaked after failed Init")
				}
			}
		})
	}
}

func TestBufferWrite_Apply(t *testing.T) {
	dev := gputest.NewDevice()
	buf := newUniform(t, dev, 16)
	p := NewBindGroupProvider("globals", WithBuffer(0, buf))

	data := []byte{1, 2, 3, 4}
	if err := (BufferWrite{Provider: p, Binding: 0, Offset: 4, Data: data}).Apply(dev.Queue()); err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if got := buf.(*gputest.Buffer).Data[4:8]; !bytes.Equal(got, data) {
		t.Errorf("buffer bytes = %v, want %v", got, data)
	}

	if err := (BufferWrite{Provider: p, Binding: 3, Data: data}).Apply(dev.Queue()); err == nil {
		t.Error("expected error for a missing binding")
	}
	if err := (BufferWrite{Provider: p, Binding: 0, Offset: 14, Data: data}).Apply(dev.Queue()); err == nil {
		t.Error("expected error for an overflowing write")
	}
}

func TestRelease_FreesEverything(t *testing.T) {
	dev := gputest.NewDevice()
	uniform := newUniform(t, dev, 64)
	vb, _ := dev.CreateBuffer(&gpu.BufferDescriptor{Label: "vb", Size: 24, Usage: wgpu.BufferUsageVertex})
	ib, _ := dev.CreateBuffer(&gpu.BufferDescriptor{Label: "ib", Size: 12, Usage: wgpu.BufferUsageIndex})
	p := NewBindGroupProvider("entity",
		WithBuffer(0, uniform),
		WithVertexBuffer(vb, 1),
		WithIndexBuffer(ib, 3, wgpu.IndexFormatUint32),
	)
	if err := p.Init(dev, uniformLayout(0)); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if p.VertexCount() != 1 || p.IndexCount() != 3 || p.IndexFormat() != wgpu.IndexFormatUint32 {
		t.Errorf("counts = %d/%d format %v", p.VertexCount(), p.IndexCount(), p.IndexFormat())
	}

	p.Release()
	for _, b := range dev.Buffers {
		if !b.Released {
			t.Errorf("buffer %q not released", b.Label())
		}
	}
	if !dev.BindGroups[0].Released || !dev.BindGroupLayouts[0].Released {
		t.Error("bind group or layout not released")
	}
	if p.VertexBuffer() != nil || p.IndexBuffer() != nil || len(p.Buffers()) != 0 {
		t.Error("provider still references released buffers")
	}
}
