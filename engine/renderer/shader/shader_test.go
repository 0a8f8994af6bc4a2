package shader

import (
	"encoding/binary"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

func spirv(words ...uint32) []byte {
	buf := make([]byte, 4*(len(words)+1))
	binary.LittleEndian.PutUint32(buf, spirvMagic)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*(i+1):], w)
	}
	return buf
}

func TestLoad_EmbeddedDefaults(t *testing.T) {
	tests := []struct {
		name       string
		shaderType ShaderType
	}{
		{DefaultVertex, ShaderTypeVertex},
		{DefaultFragment, ShaderTypeFragment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(Source(""), tt.name, tt.shaderType, "")
			if err != nil {
				t.Fatalf("Load error: %v", err)
			}
			if s.Format() != gpu.ShaderFormatWGSL {
				t.Errorf("Format() = %v, want wgsl", s.Format())
			}
			if s.EntryPoint() != DefaultEntryPoint {
				t.Errorf("EntryPoint() = %q, want %q", s.EntryPoint(), DefaultEntryPoint)
			}
			m := s.Module()
			if m.Label != tt.name || len(m.Code) == 0 {
				t.Errorf("Module() = {%q, %d bytes}", m.Label, len(m.Code))
			}
		})
	}
}

func TestLoad_SPIRV(t *testing.T) {
	fsys := fstest.MapFS{
		"ok.spv":        {Data: spirv(1, 2, 3)},
		"ragged.spv":    {Data: append(spirv(1), 0)},
		"nomagic.spv":   {Data: []byte{1, 2, 3, 4}},
		"shader.glsl":   {Data: []byte("void main() {}")},
		"novertex.wgsl": {Data: []byte("@fragment fn main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }")},
	}

	s, err := Load(fsys, "ok.spv", ShaderTypeVertex, "")
	if err != nil {
		t.Fatalf("Load(ok.spv) error: %v", err)
	}
	if s.Format() != gpu.ShaderFormatSPIRV || s.EntryPoint() != DefaultEntryPoint || s.Reflection() != nil {
		t.Fatalf("unexpected SPIR-V shader: format %v entry %q reflection %v", s.Format(), s.EntryPoint(), s.Reflection())
	}

	for _, name := range []string{"ragged.spv", "nomagic.spv", "shader.glsl", "novertex.wgsl"} {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(fsys, name, ShaderTypeVertex, ""); !errors.Is(err, ErrBadArtifact) {
				t.Fatalf("Load(%s) error = %v, want ErrBadArtifact", name, err)
			}
		})
	}

	if _, err := Load(fsys, "missing.spv", ShaderTypeVertex, ""); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Load(missing) error = %v, want fs.ErrNotExist", err)
	}
}

func TestLoad_EntryPointMismatch(t *testing.T) {
	if _, err := Load(Assets(), DefaultVertex, ShaderTypeVertex, "vs_main"); !errors.Is(err, ErrBadArtifact) {
		t.Fatalf("error = %v, want ErrBadArtifact", err)
	}
}

func TestReflect_DefaultVertexShader(t *testing.T) {
	s, err := Load(Assets(), DefaultVertex, ShaderTypeVertex, DefaultEntryPoint)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	r := s.Reflection()

	if err := r.CheckVertexLayout(meshLayout); err != nil {
		t.Fatalf("CheckVertexLayout: %v", err)
	}
	if err := r.CheckUniform(0, 0, 64); err != nil {
		t.Fatalf("CheckUniform(0, 0, 64): %v", err)
	}
	if err := r.CheckUniform(0, 0, 16); err == nil {
		t.Fatal("expected error for an undersized uniform")
	}
	if err := r.CheckUniform(1, 0, 64); err == nil {
		t.Fatal("expected error for an undeclared binding")
	}
}

func TestReflect_Comments(t *testing.T) {
	src := `
/* @vertex fn hidden() {} /* nested */ still hidden */
// @vertex fn alsoHidden() {}
struct In {
    @location(0) p: vec3<f32>,
}
@vertex
fn vs(in: In) -> @builtin(position) vec4<f32> { return vec4<f32>(in.p, 1.0); }
`
	r := Reflect(src)
	if got := r.EntryPoints[ShaderTypeVertex]; got != "vs" {
		t.Fatalf("vertex entry point = %q, want vs", got)
	}
	want := []VertexInput{{Name: "in.p", Location: 0, Type: "vec3<f32>"}}
	if len(r.VertexInputs) != 1 || r.VertexInputs[0] != want[0] {
		t.Fatalf("VertexInputs = %+v, want %+v", r.VertexInputs, want)
	}
	if err := r.CheckVertexLayout(wgpu.VertexBufferLayout{ArrayStride: 24}); err == nil {
		t.Fatal("expected an error for a buffer without location 0")
	}
}

// meshLayout mirrors the interleaved position/normal buffer the scene binds.
var meshLayout = wgpu.VertexBufferLayout{
	ArrayStride: 24,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
	},
}

func TestCheckVertexLayout(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		inputs  int
		wantErr bool
	}{
		{
			name: "parameter inputs",
			src: `
@vertex
fn main(@location(0) position: vec3<f32>, @location(1) normal: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position + normal * 0.0, 1.0);
}`,
			inputs: 2,
		},
		{
			name: "reordered struct",
			src: `
struct VertexInput {
    @location(1) normal: vec3<f32>,
    @location(0) position: vec3<f32>,
}
@vertex
fn main(in: VertexInput) -> @builtin(position) vec4<f32> { return vec4<f32>(in.position, 1.0); }`,
			inputs: 2,
		},
		{
			name: "position only",
			src: `
@vertex
fn main(@builtin(vertex_index) idx: u32, @location(0) position: vec3f) -> @builtin(position) vec4f {
    return vec4f(position, 1.0);
}`,
			inputs: 1,
		},
		{
			name: "wider vector reads narrower format",
			src: `
@vertex
fn main(@location(0) position: vec4<f32>) -> @builtin(position) vec4<f32> { return position; }`,
			inputs: 1,
		},
		{
			name: "no recoverable inputs",
			src: `
@vertex
fn main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }`,
		},
		{
			name: "integer read of float attribute",
			src: `
@vertex
fn main(@location(0) position: vec3<u32>) -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }`,
			inputs:  1,
			wantErr: true,
		},
		{
			name: "location missing from buffer",
			src: `
struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(2) uv: vec2<f32>,
}
@vertex
fn main(in: VertexInput) -> @builtin(position) vec4<f32> { return vec4<f32>(in.position, 1.0); }`,
			inputs:  2,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Reflect(tt.src)
			if len(r.VertexInputs) != tt.inputs {
				t.Fatalf("VertexInputs = %+v, want %d inputs", r.VertexInputs, tt.inputs)
			}
			err := r.CheckVertexLayout(meshLayout)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckVertexLayout error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
