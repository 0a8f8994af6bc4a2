package pipeline

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/mesh"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

func loadShaders(t *testing.T) (shader.Shader, shader.Shader) {
	t.Helper()
	vs, err := shader.Load(shader.Assets(), shader.DefaultVertex, shader.ShaderTypeVertex, "")
	if err != nil {
		t.Fatalf("load vertex shader: %v", err)
	}
	fs, err := shader.Load(shader.Assets(), shader.DefaultFragment, shader.ShaderTypeFragment, "")
	if err != nil {
		t.Fatalf("load fragment shader: %v", err)
	}
	return vs, fs
}

func TestNewPipeline_Defaults(t *testing.T) {
	p := NewPipeline("sphere")
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"topology", p.Topology(), wgpu.PrimitiveTopologyTriangleStrip},
		{"cull", p.CullMode(), wgpu.CullModeBack},
		{"front face", p.FrontFace(), wgpu.FrontFaceCCW},
		{"depth test", p.DepthTestEnabled(), true},
		{"depth write", p.DepthWriteEnabled(), true},
		{"depth compare", p.DepthCompare(), wgpu.CompareFunctionLess},
		{"depth format", p.DepthFormat(), wgpu.TextureFormatDepth32Float},
		{"color format", p.ColorFormat(), wgpu.TextureFormatBGRA8UnormSrgb},
		{"write mask", p.WriteMask(), wgpu.ColorWriteMaskAll},
		{"blend", p.BlendState(), BlendReplace},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCreate_RecordsDescriptor(t *testing.T) {
	vs, fs := loadShaders(t)
	dev := gputest.NewDevice()
	layout, _ := dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{Label: "globals"})

	p := NewPipeline("sphere",
		WithVertexShader(vs),
		WithFragmentShader(fs),
		WithVertexLayouts(mesh.VertexLayout()),
		WithColorFormat(wgpu.TextureFormatBGRA8Unorm),
	)
	if err := p.Create(dev, []gpu.BindGroupLayout{layout}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if p.RenderPipeline() == nil {
		t.Fatal("RenderPipeline() is nil after Create")
	}
	if len(dev.ShaderModules) != 2 || len(dev.PipelineLayouts) != 1 || len(dev.Pipelines) != 1 {
		t.Fatalf("created %d modules, %d layouts, %d pipelines", len(dev.ShaderModules), len(dev.PipelineLayouts), len(dev.Pipelines))
	}

	desc := dev.Pipelines[0].Desc
	if desc.Vertex.EntryPoint != "main" || desc.Fragment.EntryPoint != "main" {
		t.Errorf("entry points = %q/%q, want main/main", desc.Vertex.EntryPoint, desc.Fragment.EntryPoint)
	}
	if len(desc.Vertex.Buffers) != 1 || desc.Vertex.Buffers[0].ArrayStride != mesh.VertexSize {
		t.Errorf("vertex buffers = %+v", desc.Vertex.Buffers)
	}
	if desc.Primitive.Topology != wgpu.PrimitiveTopologyTriangleStrip || desc.Primitive.CullMode != wgpu.CullModeBack {
		t.Errorf("primitive = %+v", desc.Primitive)
	}
	if ds := desc.DepthStencil; ds == nil || ds.Format != wgpu.TextureFormatDepth32Float || !ds.DepthWriteEnabled || ds.DepthCompare != wgpu.CompareFunctionLess {
		t.Errorf("depth stencil = %+v", desc.DepthStencil)
	}
	target := desc.Fragment.Targets[0]
	if target.Format != wgpu.TextureFormatBGRA8Unorm || target.Blend == nil || *target.Blend != BlendReplace {
		t.Errorf("color target = %+v", target)
	}
	if got := dev.PipelineLayouts[0].Desc.BindGroupLayouts; len(got) != 1 || got[0] != layout {
		t.Errorf("pipeline layout groups = %v", got)
	}
}

func TestCreate_DepthTestDisabled(t *testing.T) {
	p := NewPipeline("overlay", WithDepthTestEnabled(false), WithDepthWriteEnabled(false))
	desc := p.Descriptor(nil, nil, nil)
	if desc.DepthStencil.DepthCompare != wgpu.CompareFunctionAlways || desc.DepthStencil.DepthWriteEnabled {
		t.Fatalf("depth stencil = %+v", desc.DepthStencil)
	}
}

func TestCreate_FailureReleases(t *testing.T) {
	vs, fs := loadShaders(t)
	dev := gputest.NewDevice()
	dev.FailOn(gputest.OpCreateRenderPipeline, "", nil)

	p := NewPipeline("sphere", WithVertexShader(vs), WithFragmentShader(fs))
	err := p.Create(dev, nil)
	if !errors.Is(err, gputest.ErrInjected) {
		t.Fatalf("Create error = %v, want injected failure", err)
	}
	for i, m := range dev.ShaderModules {
		if !m.Released {
			t.Errorf("shader module %d not released", i)
		}
	}
	if !dev.PipelineLayouts[0].Released {
		t.Error("pipeline layout not released")
	}
	if p.RenderPipeline() != nil {
		t.Error("RenderPipeline() should be nil after a failed Create")
	}
}

func TestCreate_MissingShaders(t *testing.T) {
	if err := NewPipeline("empty").Create(gputest.NewDevice(), nil); err == nil {
		t.Fatal("expected error without shaders")
	}
}
