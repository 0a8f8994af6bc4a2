package mesh

// StripLength returns the number of strip vertices Strip emits for a mesh with the given triangle count.
func StripLength(triangles int) int {
	if triangles <= 0 {
		return 0
	}
	return 6*triangles - 3
}

// Strip expands the mesh into a single triangle strip. Consecutive triangles are joined by degenerate triangles,
// and every real triangle starts at an even strip position so the strip's alternating winding leaves it
// counter-clockwise.
//
// Returns:
//   - []Vertex: the strip vertices, StripLength(m.TriangleCount()) long
func (m *Mesh) Strip() []Vertex {
	n := m.TriangleCount()
	out := make([]Vertex, 0, StripLength(n))
	for t := 0; t < n; t++ {
		a := m.Vertices[m.Indices[3*t]]
		b := m.Vertices[m.Indices[3*t+1]]
		c := m.Vertices[m.Indices[3*t+2]]
		if t == 0 {
			out = append(out, a, b, c)
			continue
		}
		// Repeat the previous tail and the new head: four degenerate triangles, and the next real triangle
		// lands on an even index again.
		prev := out[len(out)-1]
		out = append(out, prev, a, a, a, b, c)
	}
	return out
}

// List expands the mesh into an un-indexed triangle list, three vertices per triangle.
func (m *Mesh) List() []Vertex {
	out := make([]Vertex, 0, len(m.Indices))
	for _, idx := range m.Indices {
		out = append(out, m.Vertices[idx])
	}
	return out
}

// StripTriangles decodes a triangle strip into its non-degenerate triangles, applying the strip winding rule that
// odd-positioned triangles are reversed.
func StripTriangles(strip []Vertex) [][3]Vertex {
	var tris [][3]Vertex
	for k := 0; k+2 < len(strip); k++ {
		a, b, c := strip[k], strip[k+1], strip[k+2]
		if a.Position == b.Position || b.Position == c.Position || a.Position == c.Position {
			continue
		}
		if k%2 == 1 {
			a, b = b, a
		}
		tris = append(tris, [3]Vertex{a, b, c})
	}
	return tris
}
