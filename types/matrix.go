package types

import (
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/math/f32"
)

// A 4x4 matrix stored in column-major order (m[col*4+row]) which matches
// the layout expected by GPU buffers and by mgl32.
type Mat4 f32.Mat4

// Create the identity matrix.
func Ident4() Mat4 {
	return Mat4(mgl32.Ident4())
}

// Create a translation matrix.
func Translate4(v Vec3) Mat4 {
	return Mat4(mgl32.Translate3D(v[0], v[1], v[2]))
}

// Create a scale matrix.
func Scale4(v Vec3) Mat4 {
	return Mat4(mgl32.Scale3D(v[0], v[1], v[2]))
}

// Multiply with another matrix (m * m2).
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	return Mat4(mgl32.Mat4(m).Mul4(mgl32.Mat4(m2)))
}

// Invert matrix. The second return value is false if the matrix is singular.
func (m Mat4) Inv() (Mat4, bool) {
	gm := mgl32.Mat4(m)
	if gm.Det() == 0 {
		return Mat4{}, false
	}
	return Mat4(gm.Inv()), true
}

// Transform a point (w = 1) and drop the resulting w component.
func (m Mat4) MulPoint(v Vec3) Vec3 {
	return Vec4(mgl32.Mat4(m).Mul4x1(mgl32.Vec4(v.Vec4(1)))).Vec3()
}

// Build a transformation matrix that applies scale, then rotation and then translation.
func TRS(translation Vec3, rotation Quat, scale Vec3) Mat4 {
	return Translate4(translation).Mul4(rotation.Mat4()).Mul4(Scale4(scale))
}
