package mesh

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
)

// VertexSize is the byte size of one serialized Vertex.
const VertexSize = 24

// IndexSize is the byte size of one serialized index.
const IndexSize = 4

// MarshalTo writes the vertex into dst, which must hold at least VertexSize bytes. The layout is little-endian
// float32: position x, y, z at bytes 0..11 followed by normal x, y, z at bytes 12..23, with no padding.
func (v Vertex) MarshalTo(dst []byte) {
	_ = dst[VertexSize-1]
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v.Position[i]))
		binary.LittleEndian.PutUint32(dst[12+i*4:], math.Float32bits(v.Normal[i]))
	}
}

// Marshal serializes the vertex into a new VertexSize byte slice.
func (v Vertex) Marshal() []byte {
	buf := make([]byte, VertexSize)
	v.MarshalTo(buf)
	return buf
}

// Unmarshal reads a vertex written by Marshal.
func (v *Vertex) Unmarshal(data []byte) error {
	if len(data) < VertexSize {
		return fmt.Errorf("mesh: vertex needs %d bytes, got %d", VertexSize, len(data))
	}
	for i := 0; i < 3; i++ {
		v.Position[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		v.Normal[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[12+i*4:]))
	}
	return nil
}

// EncodeVertices serializes vertices back to back.
func EncodeVertices(vertices []Vertex) []byte {
	buf := make([]byte, len(vertices)*VertexSize)
	for i, v := range vertices {
		v.MarshalTo(buf[i*VertexSize:])
	}
	return buf
}

// DecodeVertices parses a buffer produced by EncodeVertices.
func DecodeVertices(data []byte) ([]Vertex, error) {
	if len(data)%VertexSize != 0 {
		return nil, fmt.Errorf("mesh: vertex data length %d is not a multiple of %d", len(data), VertexSize)
	}
	out := make([]Vertex, len(data)/VertexSize)
	for i := range out {
		if err := out[i].Unmarshal(data[i*VertexSize:]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EncodeIndices serializes indices as little-endian uint32.
func EncodeIndices(indices []uint32) []byte {
	buf := make([]byte, len(indices)*IndexSize)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(buf[i*IndexSize:], idx)
	}
	return buf
}

// VertexLayout returns the vertex input layout matching the Vertex byte layout: position at location 0 and normal at
// location 1.
func VertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: VertexSize,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		},
	}
}
