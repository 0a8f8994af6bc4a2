package camera

import "github.com/go-gl/mathgl/mgl32"

type CameraBuilderOption func(*cameraImpl)

// WithEye sets the camera position.
//
// Parameters:
//   - eye: the eye position
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's position
func WithEye(eye mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.eye = eye
	}
}

// WithTarget sets the point the camera looks at.
//
// Parameters:
//   - target: the look-at target
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's target
func WithTarget(target mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.target = target
	}
}

// WithUp sets the camera's up vector.
//
// Parameters:
//   - up: the up vector
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(up mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = up
	}
}

// WithFov sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithFovDegrees sets the camera's vertical field of view in degrees.
func WithFovDegrees(deg float32) CameraBuilderOption {
	return WithFov(mgl32.DegToRad(deg))
}

// WithNear sets the near clipping plane distance.
//
// Parameters:
//   - near: near plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the near plane
func WithNear(near float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
	}
}

// WithFar sets the far clipping plane distance.
//
// Parameters:
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: functional option to set the far plane
func WithFar(far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.far = far
	}
}
