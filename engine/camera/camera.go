package camera

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidAspect is returned when the aspect ratio is zero, negative, NaN or infinite.
var ErrInvalidAspect = errors.New("camera: invalid aspect ratio")

// Reference camera: eye above and in front of the origin, Z up, 45 degree vertical field of view.
var (
	DefaultEye    = mgl32.Vec3{1.5, -5.0, 3.0}
	DefaultTarget = mgl32.Vec3{0, 0, 0}
	DefaultUp     = mgl32.Vec3{0, 0, 1}
)

const (
	DefaultFovDegrees float32 = 45.0
	DefaultNear       float32 = 1.0
	DefaultFar        float32 = 10.0
)

type cameraImpl struct {
	mu *sync.Mutex

	eye    mgl32.Vec3
	target mgl32.Vec3
	up     mgl32.Vec3

	fov  float32
	near float32
	far  float32

	viewMatrix mgl32.Mat4

	// cache of the last ViewProjection call
	cached               bool
	aspect               float32
	projectionMatrix     mgl32.Mat4
	viewProjectionMatrix mgl32.Mat4
}

// Camera is a fixed-placement perspective camera. Only the aspect ratio varies at runtime, so the combined
// transform is cached per aspect ratio.
type Camera interface {
	// Eye returns the camera position.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Eye() mgl32.Vec3

	// Target returns the point the camera looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the look-at target
	Target() mgl32.Vec3

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - mgl32.Vec3: the up vector
	Up() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// Aspect returns the aspect ratio of the last successful ViewProjection call, or 0 before the first one.
	//
	// Returns:
	//   - float32: the cached aspect ratio
	Aspect() float32

	// ViewMatrix returns the view matrix (column-major).
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ViewProjection returns correction × projection × view for the given aspect ratio. The result is cached and
	// recomputed only when the aspect ratio changes.
	//
	// Parameters:
	//   - aspect: viewport width divided by height
	//
	// Returns:
	//   - mgl32.Mat4: the combined transform (column-major)
	//   - error: ErrInvalidAspect when aspect is not a positive finite number
	ViewProjection(aspect float32) (mgl32.Mat4, error)

	// Uniform returns the GPU uniform holding ViewProjection(aspect).
	//
	// Parameters:
	//   - aspect: viewport width divided by height
	//
	// Returns:
	//   - GPUTransformUniform: the uniform ready for Marshal
	//   - error: ErrInvalidAspect when aspect is not a positive finite number
	Uniform(aspect float32) (GPUTransformUniform, error)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera placed at the reference eye, target and up vectors with the reference perspective
// settings. Options override individual values.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		eye:    DefaultEye,
		target: DefaultTarget,
		up:     DefaultUp,
		fov:    mgl32.DegToRad(DefaultFovDegrees),
		near:   DefaultNear,
		far:    DefaultFar,
	}
	for _, option := range options {
		option(c)
	}
	c.viewMatrix = View(c.eye, c.target, c.up)
	return c
}

func (c *cameraImpl) Eye() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ViewProjection(aspect float32) (mgl32.Mat4, error) {
	if err := ValidateAspect(aspect); err != nil {
		return mgl32.Mat4{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached && c.aspect == aspect {
		return c.viewProjectionMatrix, nil
	}

	c.projectionMatrix = Projection(c.fov, aspect, c.near, c.far)
	c.viewProjectionMatrix = Correction().Mul4(c.projectionMatrix).Mul4(c.viewMatrix)
	c.aspect = aspect
	c.cached = true
	return c.viewProjectionMatrix, nil
}

func (c *cameraImpl) Uniform(aspect float32) (GPUTransformUniform, error) {
	m, err := c.ViewProjection(aspect)
	if err != nil {
		return GPUTransformUniform{}, err
	}
	return GPUTransformUniform{ViewProj: m}, nil
}

// ValidateAspect rejects aspect ratios that cannot produce a finite projection.
//
// Parameters:
//   - aspect: the aspect ratio to check
//
// Returns:
//   - error: ErrInvalidAspect wrapped with the offending value, or nil
func ValidateAspect(aspect float32) error {
	a := float64(aspect)
	if math.IsNaN(a) || math.IsInf(a, 0) || a <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAspect, aspect)
	}
	return nil
}

// AspectRatio returns width / height.
//
// Parameters:
//   - width, height: the viewport size in pixels
//
// Returns:
//   - float32: the aspect ratio
//   - error: ErrInvalidAspect when either dimension is zero
func AspectRatio(width, height uint32) (float32, error) {
	if width == 0 || height == 0 {
		return 0, fmt.Errorf("%w: %dx%d", ErrInvalidAspect, width, height)
	}
	return float32(width) / float32(height), nil
}
