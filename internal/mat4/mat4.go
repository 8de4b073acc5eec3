// Package mat4 holds the 4x4 matrix primitives used by the scene pipeline.
//
// Matrices are column-major mgl64.Mat4 values. Multiply(a, b) returns a·b, so
// applying the result to a vector is the same as applying b first and then a.
// Every call site composes transforms through this package instead of
// re-deriving the convention locally.
package mat4

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Identity returns the 4x4 identity matrix.
func Identity() mgl64.Mat4 {
	return mgl64.Ident4()
}

// RotateX returns a right-handed rotation about the X axis (radians).
func RotateX(angle float64) mgl64.Mat4 {
	return mgl64.HomogRotate3DX(angle)
}

// RotateY returns a right-handed rotation about the Y axis (radians).
func RotateY(angle float64) mgl64.Mat4 {
	return mgl64.HomogRotate3DY(angle)
}

// RotateZ returns a right-handed rotation about the Z axis (radians).
func RotateZ(angle float64) mgl64.Mat4 {
	return mgl64.HomogRotate3DZ(angle)
}

// Multiply returns the composition a·b.
func Multiply(a, b mgl64.Mat4) mgl64.Mat4 {
	return a.Mul4(b)
}

// Transpose returns the transpose of m.
func Transpose(m mgl64.Mat4) mgl64.Mat4 {
	return m.Transpose()
}

// AffineInverse inverts a matrix made only of an orthonormal rotation block
// and a translation. The rotation block is transposed and the translation
// becomes -Rᵀt. The bottom row of m is ignored and the result's bottom row is
// (0, 0, 0, 1). Passing a scaled, sheared or projective matrix gives a wrong
// answer; use Mat4.Inv for those.
func AffineInverse(m mgl64.Mat4) mgl64.Mat4 {
	r := mgl64.Ident4()

	r[0], r[1], r[2] = m[0], m[4], m[8]
	r[4], r[5], r[6] = m[1], m[5], m[9]
	r[8], r[9], r[10] = m[2], m[6], m[10]

	r[12] = -(m[0]*m[12] + m[1]*m[13] + m[2]*m[14])
	r[13] = -(m[4]*m[12] + m[5]*m[13] + m[6]*m[14])
	r[14] = -(m[8]*m[12] + m[9]*m[13] + m[10]*m[14])

	return r
}

// Perspective returns a right-handed OpenGL clip-space projection.
// fovY is in radians. Callers guarantee near > 0, far > near and aspect > 0.
func Perspective(fovY, aspect, near, far float64) mgl64.Mat4 {
	return mgl64.Perspective(fovY, aspect, near, far)
}

// LookAt returns the view matrix of an orbit camera centered on the origin.
// The camera sits at (0, 0, distance); the world is rotated by pitch about X,
// then by yaw about Y, then pushed distance units down -Z:
//
//	view = T(0, 0, -distance) · Ry(yaw) · Rx(pitch)
func LookAt(distance, pitch, yaw float64) mgl64.Mat4 {
	return mgl64.Translate3D(0, 0, -distance).
		Mul4(mgl64.HomogRotate3DY(yaw)).
		Mul4(mgl64.HomogRotate3DX(pitch))
}

// Transform applies m to the point p (w = 1) and drops w.
func Transform(m mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// Float32 narrows m for upload to a GPU or a wire encoder.
func Float32(m mgl64.Mat4) mgl32.Mat4 {
	var out mgl32.Mat4
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}

// Deg converts degrees to radians.
func Deg(deg float64) float64 {
	return deg * math.Pi / 180
}
