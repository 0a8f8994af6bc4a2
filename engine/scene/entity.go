package scene

import (
	"github.com/Carmen-Shannon/oxy-icosphere/engine/mesh"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer/pipeline"
)

// RenderEntity is one drawable object: its geometry buffers, its optional per-entity bind group and the pipeline
// it is drawn with. Entities are owned by the Scene that created them.
type RenderEntity struct {
	// Name identifies the entity in logs and device labels.
	Name string

	// Topology is how the vertex buffer is assembled into triangles.
	Topology mesh.Topology

	// Resources holds the vertex buffer, the index buffer for indexed entities, and any per-entity bindings.
	Resources bind_group_provider.BindGroupProvider

	// Pipeline is the created pipeline state the entity is drawn with.
	Pipeline pipeline.Pipeline

	// Instances overrides the renderer's instance count when non-zero.
	Instances uint32
}

// Indexed reports whether the entity draws through an index buffer.
func (e *RenderEntity) Indexed() bool {
	return e.Resources.IndexBuffer() != nil
}

// DrawCount returns the number of indices for indexed entities and the number of vertices otherwise.
func (e *RenderEntity) DrawCount() uint32 {
	if e.Indexed() {
		return uint32(e.Resources.IndexCount())
	}
	return uint32(e.Resources.VertexCount())
}

// Release frees the entity's pipeline and buffers.
func (e *RenderEntity) Release() {
	if e.Pipeline != nil {
		e.Pipeline.Release()
	}
	if e.Resources != nil {
		e.Resources.Release()
	}
}
