package xform

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Point transforms a position (w = 1).
func Point(m mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// Vector transforms a direction (w = 0); translation is ignored.
func Vector(m mgl64.Mat4, v mgl64.Vec3) mgl64.Vec3 {
	return m.Mul4x1(v.Vec4(0)).Vec3()
}

// Normal transforms a surface normal with the inverse transpose of m's
// linear part. The result is not renormalized.
func Normal(m mgl64.Mat4, n mgl64.Vec3) mgl64.Vec3 {
	return m.Mat3().Inv().Transpose().Mul3x1(n)
}

// Inverse returns the inverse of an invertible affine matrix.
func Inverse(m mgl64.Mat4) mgl64.Mat4 {
	return m.Inv()
}
