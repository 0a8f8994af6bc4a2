package camera

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// GPUTransformUniform is the GPU-aligned representation of the transform uniform buffer.
// Matches the WGSL `Transform { view_proj: mat4x4<f32> }` struct bound at group 0, binding 0.
// Size: 64 bytes.
type GPUTransformUniform struct {
	ViewProj mgl32.Mat4 // offset 0: correction × projection × view (mat4x4<f32>, column-major)
}

// Size returns the size of the GPUTransformUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPUTransformUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUTransformUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUTransformUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	return buf
}
