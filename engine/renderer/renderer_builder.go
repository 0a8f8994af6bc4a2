package renderer

import (
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithInstanceCount sets how many instances each draw call issues. Defaults to DefaultInstanceCount.
//
// Parameters:
//   - n: the instance count, zero is ignored
//
// Returns:
//   - RendererBuilderOption: a function that applies the instance count to a renderer
func WithInstanceCount(n uint32) RendererBuilderOption {
	return func(r *renderer) {
		if n > 0 {
			r.instanceCount = n
		}
	}
}

// WithClearColor sets the background color. Defaults to opaque white.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color to a renderer
func WithClearColor(c wgpu.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithAcquireRetries sets how many times acquisition is retried after reconfiguring the chain. Zero makes the
// first failure fatal.
//
// Parameters:
//   - n: the retry count, negative values are treated as zero
//
// Returns:
//   - RendererBuilderOption: a function that applies the retry count to a renderer
func WithAcquireRetries(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.acquireRetries = max(n, 0)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}
