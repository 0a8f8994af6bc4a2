// Package mesh generates unit icospheres: an icosahedron inscribed in the unit sphere, recursively subdivided with
// every new vertex projected back onto the sphere. The output is deduplicated, indexed, and wound counter-clockwise
// when viewed from outside the sphere.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MaxBufferSize is the default wgpu maxBufferSize limit, 256 MiB.
	MaxBufferSize = 256 << 20

	// MaxLevel is the largest subdivision level whose strip vertex buffer fits in MaxBufferSize.
	MaxLevel = 8
)

// ErrInvalidLevel is returned for negative subdivision levels or levels above MaxLevel.
var ErrInvalidLevel = errors.New("mesh: invalid subdivision level")

// Topology selects how a mesh is laid out for drawing.
type Topology int

const (
	// TopologyStrip draws the un-indexed strip expansion of the mesh.
	TopologyStrip Topology = iota

	// TopologyIndexedList draws the deduplicated vertices through a triangle-list index buffer.
	TopologyIndexedList
)

// String returns the lowercase name of the topology.
func (t Topology) String() string {
	switch t {
	case TopologyStrip:
		return "strip"
	case TopologyIndexedList:
		return "indexed-list"
	default:
		return "unknown"
	}
}

// Vertex is one mesh vertex. Its byte layout is documented on Marshal.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// Mesh is a deduplicated icosphere. Indices holds one counter-clockwise triangle per three entries.
type Mesh struct {
	Level    int
	Vertices []Vertex
	Indices  []uint32
}

// TriangleCount returns the number of triangles in the mesh.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Triangles returns the index triples of every triangle in order.
func (m *Mesh) Triangles() [][3]uint32 {
	tris := make([][3]uint32, 0, m.TriangleCount())
	for i := 0; i+2 < len(m.Indices); i += 3 {
		tris = append(tris, [3]uint32{m.Indices[i], m.Indices[i+1], m.Indices[i+2]})
	}
	return tris
}

// TriangleCountAt returns 20·4^level, the number of triangles Generate produces at level.
func TriangleCountAt(level int) int {
	return 20 << (2 * level)
}

// VertexCountAt returns 10·4^level+2, the number of distinct vertices Generate produces at level.
func VertexCountAt(level int) int {
	return 10<<(2*level) + 2
}

// StripBytesAt returns the byte size of the strip vertex buffer for a mesh at level.
func StripBytesAt(level int) uint64 {
	return uint64(StripLength(TriangleCountAt(level))) * VertexSize
}

var icosahedronIndices = [...]uint32{
	0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
	1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
	3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
	4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
}

func icosahedron() *Mesh {
	t := float32((1.0 + math.Sqrt(5.0)) / 2.0)
	corners := [...]mgl32.Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}

	m := &Mesh{
		Vertices: make([]Vertex, 0, len(corners)),
		Indices:  append([]uint32(nil), icosahedronIndices[:]...),
	}
	for _, c := range corners {
		m.Vertices = append(m.Vertices, newVertex(c))
	}
	return m
}

// newVertex projects p onto the unit sphere; the normal of a unit sphere vertex is its position.
func newVertex(p mgl32.Vec3) Vertex {
	n := p.Normalize()
	return Vertex{Position: n, Normal: n}
}

// Generate builds the icosphere at the given subdivision level. Level 0 is the plain icosahedron.
//
// Parameters:
//   - level: the number of subdivision passes, 0 through MaxLevel
//
// Returns:
//   - *Mesh: the generated mesh
//   - error: ErrInvalidLevel when level is out of range
func Generate(level int) (*Mesh, error) {
	if level < 0 || level > MaxLevel {
		return nil, fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidLevel, level, MaxLevel)
	}

	m := icosahedron()
	for i := 0; i < level; i++ {
		m = subdivide(m)
	}
	m.Level = level
	return m, nil
}

// subdivide splits every triangle into four. Midpoints are cached by their sorted edge so triangles sharing an edge
// share the midpoint vertex.
func subdivide(src *Mesh) *Mesh {
	triCount := src.TriangleCount()
	out := &Mesh{
		Vertices: make([]Vertex, len(src.Vertices), len(src.Vertices)+triCount*3/2),
		Indices:  make([]uint32, 0, len(src.Indices)*4),
	}
	copy(out.Vertices, src.Vertices)

	midpoints := make(map[[2]uint32]uint32, triCount*3/2)
	midpoint := func(a, b uint32) uint32 {
		key := [2]uint32{a, b}
		if a > b {
			key = [2]uint32{b, a}
		}
		if idx, ok := midpoints[key]; ok {
			return idx
		}
		pa, pb := src.Vertices[a].Position, src.Vertices[b].Position
		out.Vertices = append(out.Vertices, newVertex(pa.Add(pb).Mul(0.5)))
		idx := uint32(len(out.Vertices) - 1)
		midpoints[key] = idx
		return idx
	}

	for i := 0; i+2 < len(src.Indices); i += 3 {
		v1, v2, v3 := src.Indices[i], src.Indices[i+1], src.Indices[i+2]
		m1 := midpoint(v1, v2)
		m2 := midpoint(v2, v3)
		m3 := midpoint(v3, v1)
		out.Indices = append(out.Indices,
			v1, m1, m3,
			v2, m2, m1,
			v3, m3, m2,
			m1, m2, m3,
		)
	}
	return out
}
