package window

import (
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-icosphere/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and input event handling.
// Wraps platform-specific window implementations with a common interface.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetCloseCallback sets the function called once when the user asks the window to close.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetCloseCallback(callback func())

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// RequestClose stops the message loop after the current iteration without destroying the window.
	RequestClose()

	// Close destroys the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title string

	// width and height track the framebuffer, which differs from the window size on high-DPI displays.
	width  int
	height int

	closeOnEscape bool

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	onUpdate  func()
	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
	onClose   func()
}

var _ Window = &engineWindow{}

// NewWindow creates and spawns a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the spawned window
//   - error: an error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:         "icosphere",
		width:         800,
		height:        600,
		closeOnEscape: true,
	}
	for _, opt := range options {
		opt(w)
	}
	if w.width <= 0 || w.height <= 0 {
		return nil, fmt.Errorf("window: invalid size %dx%d", w.width, w.height)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetCloseCallback(callback func()) {
	w.onClose = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) RequestClose() {
	platformRequestClose(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// handleKey dispatches a key press, closing the window on Escape when enabled.
func (w *engineWindow) handleKey(keyCode uint32) {
	if w.closeOnEscape && keyCode == common.KeyEsc {
		w.requestClose()
		return
	}
	if w.onKeyDown != nil {
		w.onKeyDown(keyCode)
	}
}

// handleResize records the new framebuffer size and forwards it.
func (w *engineWindow) handleResize(width, height int) {
	w.width = width
	w.height = height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

// requestClose fires the close callback and stops the loop.
func (w *engineWindow) requestClose() {
	if w.onClose != nil {
		w.onClose()
	}
	platformRequestClose(w)
}
