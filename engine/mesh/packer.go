package mesh

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// Packer serializes vertex sets on a pool of reusable workers. Small inputs are encoded inline.
type Packer interface {
	// Encode serializes vertices with the same layout as EncodeVertices.
	//
	// Parameters:
	//   - vertices: the vertices to serialize
	//
	// Returns:
	//   - []byte: the serialized vertex data
	Encode(vertices []Vertex) []byte

	// Close stops the worker pool. The Packer must not be used afterwards.
	Close()
}

type packerImpl struct {
	pool      worker.DynamicWorkerPool
	workers   int
	chunkSize int
}

var _ Packer = &packerImpl{}

// PackerOption configures a Packer during construction via NewPacker.
type PackerOption func(*packerImpl)

// WithPackerWorkers sets the number of pool workers. Defaults to GOMAXPROCS.
//
// Parameters:
//   - n: the worker count, values below 1 are ignored
//
// Returns:
//   - PackerOption: a function that applies the worker count
func WithPackerWorkers(n int) PackerOption {
	return func(p *packerImpl) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithChunkSize sets how many vertices one task serializes. Defaults to 4096.
//
// Parameters:
//   - n: the chunk size in vertices, values below 1 are ignored
//
// Returns:
//   - PackerOption: a function that applies the chunk size
func WithChunkSize(n int) PackerOption {
	return func(p *packerImpl) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// NewPacker creates a Packer and starts its worker pool.
func NewPacker(options ...PackerOption) Packer {
	p := &packerImpl{
		workers:   runtime.GOMAXPROCS(0),
		chunkSize: 4096,
	}
	for _, opt := range options {
		opt(p)
	}
	p.pool = worker.NewDynamicWorkerPool(p.workers, 256, 1*time.Second)
	return p
}

func (p *packerImpl) Encode(vertices []Vertex) []byte {
	if len(vertices) <= p.chunkSize {
		return EncodeVertices(vertices)
	}

	buf := make([]byte, len(vertices)*VertexSize)

	// pool.Wait blocks until workers idle out, so a WaitGroup is the per-call barrier.
	var wg sync.WaitGroup
	taskID := 0
	for start := 0; start < len(vertices); start += p.chunkSize {
		end := min(start+p.chunkSize, len(vertices))
		chunk := vertices[start:end]
		dst := buf[start*VertexSize : end*VertexSize]

		wg.Add(1)
		p.pool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				for i, v := range chunk {
					v.MarshalTo(dst[i*VertexSize:])
				}
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()
	return buf
}

func (p *packerImpl) Close() {
	p.pool.Stop()
}
