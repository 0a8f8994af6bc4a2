package surface

import (
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
)

// PresenterBuilderOption configures a Presenter during construction via NewPresenter.
type PresenterBuilderOption func(*presenterImpl)

// WithPresentMode sets the preferred present mode. Defaults to Mailbox; unsupported modes fall back to Fifo.
//
// Parameters:
//   - mode: the preferred present mode
//
// Returns:
//   - PresenterBuilderOption: a function that applies the present mode
func WithPresentMode(mode wgpu.PresentMode) PresenterBuilderOption {
	return func(p *presenterImpl) {
		p.preferredMode = mode
	}
}

// WithTarget registers the Resizable that follows the chain size.
//
// Parameters:
//   - target: the resizable target
//
// Returns:
//   - PresenterBuilderOption: a function that registers the target
func WithTarget(target Resizable) PresenterBuilderOption {
	return func(p *presenterImpl) {
		p.target = target
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) PresenterBuilderOption {
	return func(p *presenterImpl) {
		if logger != nil {
			p.logger = logger
		}
	}
}
