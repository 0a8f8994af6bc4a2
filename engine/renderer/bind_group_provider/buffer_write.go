package bind_group_provider

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Apply enqueues the write on queue.
//
// Parameters:
//   - queue: the device queue
//
// Returns:
//   - error: when the provider has no buffer at Binding or the queue rejects the write
func (w BufferWrite) Apply(queue gpu.Queue) error {
	buf := w.Provider.Buffer(w.Binding)
	if buf == nil {
		return fmt.Errorf("bind group %q: no buffer at binding %d", w.Provider.Label(), w.Binding)
	}
	if err := queue.WriteBuffer(buf, w.Offset, w.Data); err != nil {
		return fmt.Errorf("bind group %q binding %d: %w", w.Provider.Label(), w.Binding, err)
	}
	return nil
}
