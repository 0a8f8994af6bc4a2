package gpu

import (
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
)

// DeviceBuilderOption is a functional option applied to the wgpu device during construction via NewWGPUDevice.
type DeviceBuilderOption func(*wgpuDeviceImpl)

// WithForceFallbackAdapter forces WGPU to use a CPU/software fallback adapter instead of hardware GPU acceleration.
// This requires a software Vulkan ICD to be installed on the system (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the fallback adapter option
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		d.forceFallbackAdapter = force
	}
}

// WithPowerPreference sets the adapter power preference. Defaults to high performance.
//
// Parameters:
//   - pref: the power preference passed to the adapter request
//
// Returns:
//   - DeviceBuilderOption: a function that applies the power preference option
func WithPowerPreference(pref wgpu.PowerPreference) DeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		d.powerPreference = pref
	}
}

// WithDeviceLabel sets the debug label of the device.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - DeviceBuilderOption: a function that applies the label option
func WithDeviceLabel(label string) DeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		d.label = label
	}
}

// WithLogger sets the logger used for device lifecycle messages.
//
// Parameters:
//   - logger: the structured logger
//
// Returns:
//   - DeviceBuilderOption: a function that applies the logger option
func WithLogger(logger *slog.Logger) DeviceBuilderOption {
	return func(d *wgpuDeviceImpl) {
		if logger != nil {
			d.logger = logger
		}
	}
}
