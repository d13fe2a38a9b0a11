// Package xform implements the transform algebra used to place geometry.
//
// A Transform is a closed set of variants: Identity, Translation, Rotation,
// Scale, Matrix, Composite and Animated. The set is sealed by an unexported
// method so Compose, Validate and Evaluate can switch over it exhaustively.
//
// Application order is always "first listed, first applied": Compose(a, b)
// applies a and then b, and a Composite applies its steps in declared order.
// In matrix form the last-applied transform is leftmost.
//
// Animated transforms may not nest: neither a Composite step nor an
// Animated endpoint may itself be Animated. Validate enforces this.
package xform

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the tolerance used for determinant and affinity checks.
const Epsilon = 1e-9

// Kind identifies a Transform variant.
type Kind int

const (
	KindIdentity Kind = iota
	KindTranslation
	KindRotation
	KindScale
	KindMatrix
	KindComposite
	KindAnimated
)

var kindNames = [...]string{
	KindIdentity:    "identity",
	KindTranslation: "translate",
	KindRotation:    "rotate",
	KindScale:       "scale",
	KindMatrix:      "matrix",
	KindComposite:   "composite",
	KindAnimated:    "animated",
}

// String returns the declaration keyword for the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a declaration keyword to a Kind.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Transform is one of the variant types declared in this package.
type Transform interface {
	Kind() Kind
	sealed()
}

// Identity leaves points unchanged.
type Identity struct{}

// Translation offsets points by a vector.
type Translation struct {
	Offset mgl64.Vec3
}

// Rotation rotates points about Axis by Degrees (right-handed).
type Rotation struct {
	Axis    mgl64.Vec3
	Degrees float64
}

// Scale scales points per axis.
type Scale struct {
	Factors mgl64.Vec3
}

// Matrix is an explicit affine matrix. Use MatrixFromRows to build one from
// row-major declaration data.
type Matrix struct {
	M mgl64.Mat4
}

// Composite applies Steps in declared order.
type Composite struct {
	Steps []Transform
}

// Animated interpolates between two non-animated poses over
// [StartTime, EndTime].
type Animated struct {
	Start     Transform
	End       Transform
	StartTime float64
	EndTime   float64
}

func (Identity) Kind() Kind    { return KindIdentity }
func (Translation) Kind() Kind { return KindTranslation }
func (Rotation) Kind() Kind    { return KindRotation }
func (Scale) Kind() Kind       { return KindScale }
func (Matrix) Kind() Kind      { return KindMatrix }
func (Composite) Kind() Kind   { return KindComposite }
func (Animated) Kind() Kind    { return KindAnimated }

func (Identity) sealed()    {}
func (Translation) sealed() {}
func (Rotation) sealed()    {}
func (Scale) sealed()       {}
func (Matrix) sealed()      {}
func (Composite) sealed()   {}
func (Animated) sealed()    {}

// Translate is shorthand for a Translation.
func Translate(x, y, z float64) Translation {
	return Translation{Offset: mgl64.Vec3{x, y, z}}
}

// Rotate is shorthand for a Rotation.
func Rotate(degrees float64, axis mgl64.Vec3) Rotation {
	return Rotation{Axis: axis, Degrees: degrees}
}

// ScaleBy is shorthand for a Scale.
func ScaleBy(x, y, z float64) Scale {
	return Scale{Factors: mgl64.Vec3{x, y, z}}
}

// Sequence is shorthand for a Composite.
func Sequence(steps ...Transform) Composite {
	return Composite{Steps: steps}
}

// MatrixFromRows builds a Matrix from 3 or 4 row-major rows. When only three
// rows are given the last row is [0 0 0 1].
func MatrixFromRows(rows ...[4]float64) (Matrix, error) {
	if len(rows) != 3 && len(rows) != 4 {
		return Matrix{}, fmt.Errorf("matrix needs 3 or 4 rows, got %d", len(rows))
	}
	r := [4]mgl64.Vec4{3: {0, 0, 0, 1}}
	for i, row := range rows {
		r[i] = mgl64.Vec4(row)
	}
	return Matrix{M: mgl64.Mat4FromRows(r[0], r[1], r[2], r[3])}, nil
}

// IsAnimated reports whether t is an Animated transform.
func IsAnimated(t Transform) bool {
	_, ok := t.(Animated)
	return ok
}

// IsIdentity reports whether t is nil, Identity, or an empty Composite.
func IsIdentity(t Transform) bool {
	switch t := t.(type) {
	case nil, Identity:
		return true
	case Composite:
		for _, s := range t.Steps {
			if !IsIdentity(s) {
				return false
			}
		}
		return true
	}
	return false
}
