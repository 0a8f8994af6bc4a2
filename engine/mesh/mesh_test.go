package mesh

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const eps = 1e-5

func outward(a, b, c mgl32.Vec3) bool {
	n := b.Sub(a).Cross(c.Sub(a))
	centroid := a.Add(b).Add(c).Mul(1.0 / 3.0)
	return n.Dot(centroid) > 0
}

func TestGenerate_Counts(t *testing.T) {
	for level := 0; level <= 4; level++ {
		t.Run(fmt.Sprintf("level_%d", level), func(t *testing.T) {
			m, err := Generate(level)
			if err != nil {
				t.Fatalf("Generate(%d) error: %v", level, err)
			}
			if got, want := m.TriangleCount(), TriangleCountAt(level); got != want {
				t.Errorf("TriangleCount() = %d, want %d", got, want)
			}
			if got, want := len(m.Vertices), VertexCountAt(level); got != want {
				t.Errorf("len(Vertices) = %d, want %d", got, want)
			}

			distinct := make(map[mgl32.Vec3]struct{}, len(m.Vertices))
			for _, v := range m.Vertices {
				distinct[v.Position] = struct{}{}
			}
			if got, want := len(distinct), VertexCountAt(level); got != want {
				t.Errorf("distinct positions = %d, want %d", got, want)
			}
		})
	}
}

func TestGenerate_UnitSphere(t *testing.T) {
	m, err := Generate(3)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	for i, v := range m.Vertices {
		if l := v.Position.Len(); math.Abs(float64(l)-1) > eps {
			t.Fatalf("vertex %d norm = %v, want 1", i, l)
		}
		if !v.Normal.ApproxEqualThreshold(v.Position.Normalize(), eps) {
			t.Fatalf("vertex %d normal %v != normalized position %v", i, v.Normal, v.Position)
		}
	}
}

func TestGenerate_OutwardWinding(t *testing.T) {
	for level := 0; level <= 3; level++ {
		m, err := Generate(level)
		if err != nil {
			t.Fatalf("Generate(%d) error: %v", level, err)
		}
		for i, tri := range m.Triangles() {
			a, b, c := m.Vertices[tri[0]].Position, m.Vertices[tri[1]].Position, m.Vertices[tri[2]].Position
			if !outward(a, b, c) {
				t.Fatalf("level %d triangle %d %v is not counter-clockwise from outside", level, i, tri)
			}
		}
	}
}

func TestGenerate_SharedEdges(t *testing.T) {
	// A closed seamless mesh has every edge used by exactly two triangles, once in each direction.
	m, err := Generate(2)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	edges := make(map[[2]uint32]int)
	for _, tri := range m.Triangles() {
		for i := 0; i < 3; i++ {
			edges[[2]uint32{tri[i], tri[(i+1)%3]}]++
		}
	}
	for e, n := range edges {
		if n != 1 {
			t.Fatalf("directed edge %v used %d times", e, n)
		}
		if edges[[2]uint32{e[1], e[0]}] != 1 {
			t.Fatalf("edge %v has no opposite half-edge", e)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, _ := Generate(2)
	b, _ := Generate(2)
	if !bytes.Equal(EncodeVertices(a.Vertices), EncodeVertices(b.Vertices)) {
		t.Fatal("vertex data differs between runs")
	}
	if !bytes.Equal(EncodeIndices(a.Indices), EncodeIndices(b.Indices)) {
		t.Fatal("index data differs between runs")
	}
}

func TestGenerate_InvalidLevel(t *testing.T) {
	tests := []struct {
		name  string
		level int
	}{
		{"negative", -1},
		{"too_large", MaxLevel + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Generate(tt.level)
			if !errors.Is(err, ErrInvalidLevel) {
				t.Fatalf("Generate(%d) error = %v, want ErrInvalidLevel", tt.level, err)
			}
			if m != nil {
				t.Fatal("expected nil mesh")
			}
		})
	}
}

func TestMaxLevel_FitsBufferLimit(t *testing.T) {
	if got := StripBytesAt(MaxLevel); got > MaxBufferSize {
		t.Errorf("level %d strip needs %d bytes, limit is %d", MaxLevel, got, MaxBufferSize)
	}
	if got := StripBytesAt(MaxLevel + 1); got <= MaxBufferSize {
		t.Errorf("level %d strip needs %d bytes, MaxLevel could be raised", MaxLevel+1, got)
	}
}

func TestStrip_PreservesTriangles(t *testing.T) {
	for level := 0; level <= 2; level++ {
		t.Run(fmt.Sprintf("level_%d", level), func(t *testing.T) {
			m, _ := Generate(level)
			strip := m.Strip()
			if got, want := len(strip), StripLength(m.TriangleCount()); got != want {
				t.Fatalf("len(Strip()) = %d, want %d", got, want)
			}

			decoded := StripTriangles(strip)
			if len(decoded) != m.TriangleCount() {
				t.Fatalf("strip decodes to %d triangles, want %d", len(decoded), m.TriangleCount())
			}
			list := m.List()
			for i, tri := range decoded {
				want := [3]Vertex{list[3*i], list[3*i+1], list[3*i+2]}
				if tri != want {
					t.Fatalf("strip triangle %d = %v, want %v", i, tri, want)
				}
				if !outward(tri[0].Position, tri[1].Position, tri[2].Position) {
					t.Fatalf("strip triangle %d is not counter-clockwise from outside", i)
				}
			}
		})
	}
}

func TestStripLength(t *testing.T) {
	tests := []struct {
		triangles int
		want      int
	}{
		{0, 0},
		{1, 3},
		{2, 9},
		{20, 117},
	}
	for _, tt := range tests {
		if got := StripLength(tt.triangles); got != tt.want {
			t.Errorf("StripLength(%d) = %d, want %d", tt.triangles, got, tt.want)
		}
	}
}

func TestEndToEnd_LevelZero(t *testing.T) {
	m, err := Generate(0)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if m.TriangleCount() != 20 {
		t.Errorf("TriangleCount() = %d, want 20", m.TriangleCount())
	}
	if len(m.Vertices) != 12 {
		t.Errorf("len(Vertices) = %d, want 12", len(m.Vertices))
	}
	for _, v := range m.Strip() {
		if l := v.Position.Len(); math.Abs(float64(l)-1) > eps {
			t.Fatalf("strip vertex norm = %v, want 1", l)
		}
	}
}
