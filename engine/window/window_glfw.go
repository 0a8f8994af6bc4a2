package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	parent  *engineWindow
	window  *glfw.Window
	running bool
}

// newPlatformWindow creates the GLFW window with input callbacks and stores it as the internal window.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
// go-gl/glfw: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// WebGPU provides its own graphics API, so disable OpenGL context creation.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %w", err)
	}

	gw := &glfwWindow{
		parent:  w,
		window:  win,
		running: true,
	}
	w.internalWindow = gw

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Press || action == glfw.Repeat {
			w.handleKey(uint32(key))
		}
	})

	win.SetCloseCallback(func(_ *glfw.Window) {
		w.requestClose()
	})

	// Framebuffer size, not window size: on high-DPI displays the two differ and the surface needs pixels.
	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetFramebufferSizeCallback
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.handleResize(width, height)
	})

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width = fbWidth
	w.height = fbHeight

	return nil
}

// platformGetSurfaceDescriptor creates a platform-appropriate wgpu.SurfaceDescriptor from the GLFW window.
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

// platformIsRunningCheck returns whether the GLFW window is still active.
// Returns false if the internal window is nil, the running flag is cleared, or GLFW reports ShouldClose.
func platformIsRunningCheck(w *engineWindow) bool {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return false
	}
	return gw.running && !gw.window.ShouldClose()
}

// platformRequestClose marks the window as closing. The GLFW window stays alive until platformCloseWindow.
func platformRequestClose(w *engineWindow) {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return
	}
	gw.running = false
	gw.window.SetShouldClose(true)
}

// platformCloseWindow destroys the GLFW window and terminates the GLFW library.
//
// Returns:
//   - error: error if the window is not initialized
func platformCloseWindow(w *engineWindow) error {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return fmt.Errorf("window is not initialized")
	}
	gw.running = false
	gw.window.Destroy()
	glfw.Terminate()
	w.internalWindow = nil
	return nil
}

// platformProcessMessages polls GLFW for pending events without blocking.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#PollEvents
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	return platformIsRunningCheck(w)
}
