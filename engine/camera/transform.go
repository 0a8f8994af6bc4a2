package camera

import "github.com/go-gl/mathgl/mgl32"

// Correction maps OpenGL clip space (depth in [-1, 1]) to WebGPU clip space (depth in [0, 1]) by rewriting
// z' = 0.5·z + 0.5·w. Column-major.
func Correction() mgl32.Mat4 {
	return mgl32.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 0.5, 0,
		0, 0, 0.5, 1,
	}
}

// Projection returns an OpenGL-convention perspective projection.
func Projection(fovy, aspect, near, far float32) mgl32.Mat4 {
	return mgl32.Perspective(fovy, aspect, near, far)
}

// View returns a right-handed look-at view matrix.
func View(eye, target, up mgl32.Vec3) mgl32.Mat4 {
	return mgl32.LookAtV(eye, target, up)
}

// Compute returns correction × projection × view for the reference camera at the given aspect ratio. It is a pure
// function: equal inputs give bit-identical results.
//
// Parameters:
//   - aspect: viewport width divided by height
//
// Returns:
//   - mgl32.Mat4: the combined transform (column-major)
//   - error: ErrInvalidAspect when aspect is not a positive finite number
func Compute(aspect float32) (mgl32.Mat4, error) {
	if err := ValidateAspect(aspect); err != nil {
		return mgl32.Mat4{}, err
	}
	proj := Projection(mgl32.DegToRad(DefaultFovDegrees), aspect, DefaultNear, DefaultFar)
	view := View(DefaultEye, DefaultTarget, DefaultUp)
	return Correction().Mul4(proj).Mul4(view), nil
}
