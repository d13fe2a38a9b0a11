package xform

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/roach88/prism/internal/diag"
)

// Validate checks t recursively and returns every violation found as a
// TRANSFORM_VALIDATION_ERROR diagnostic (combined with multierr).
//
// Rules:
//   - Matrix must be affine (last row [0 0 0 1]) with an invertible linear part
//   - Scale factors must be non-zero, Rotation axes non-zero
//   - no Animated inside a Composite or inside another Animated's endpoints
//   - Animated requires StartTime <= EndTime (equal times are a switch)
func Validate(t Transform) error {
	return ValidateAt(t, "", "transform")
}

// ValidateAt is Validate with the owning entity and the declaration path of t
// recorded on each diagnostic.
func ValidateAt(t Transform, entity, path string) error {
	v := validator{entity: entity}
	v.walk(t, path, "")
	return v.errs
}

type validator struct {
	entity string
	errs   error
}

func (v *validator) fail(path, format string, args ...any) {
	v.errs = diag.Append(v.errs, diag.Newf(diag.CodeTransform, v.entity, format, args...).At(path))
}

// walk validates t at path. enclosing names the variant t is nested in when
// that nesting forbids animation ("composite" or "animated").
func (v *validator) walk(t Transform, path, enclosing string) {
	switch t := t.(type) {
	case nil, Identity:
	case Translation:
		if !finiteVec(t.Offset) {
			v.fail(path, "translation must be finite")
		}
	case Rotation:
		if !finiteVec(t.Axis) || math.IsNaN(t.Degrees) || math.IsInf(t.Degrees, 0) {
			v.fail(path, "rotation must be finite")
		} else if t.Axis.Len() < Epsilon {
			v.fail(path, "rotation axis must be non-zero")
		}
	case Scale:
		if !finiteVec(t.Factors) {
			v.fail(path, "scale must be finite")
		} else if math.Abs(t.Factors[0]*t.Factors[1]*t.Factors[2]) < Epsilon {
			v.fail(path, "scale %v is not invertible", t.Factors)
		}
	case Matrix:
		v.matrix(t.M, path)
	case Composite:
		for i, s := range t.Steps {
			v.walk(s, fmt.Sprintf("%s.transf[%d]", path, i), "composite")
		}
	case Animated:
		if enclosing != "" {
			v.fail(path, "animated transform may not be nested inside %s", enclosing)
		}
		if math.IsNaN(t.StartTime) || math.IsNaN(t.EndTime) {
			v.fail(path, "animation times must be numbers")
		} else if t.StartTime > t.EndTime {
			v.fail(path, "start_time %g is after end_time %g", t.StartTime, t.EndTime)
		}
		v.walk(t.Start, path+".start_transf", "animated")
		v.walk(t.End, path+".end_transf", "animated")
	}
}

func (v *validator) matrix(m mgl64.Mat4, path string) {
	for i := range m {
		if math.IsNaN(m[i]) || math.IsInf(m[i], 0) {
			v.fail(path, "matrix must be finite")
			return
		}
	}
	last := m.Row(3)
	if !last.ApproxEqualThreshold(mgl64.Vec4{0, 0, 0, 1}, Epsilon) {
		v.fail(path, "matrix last row %v is not [0 0 0 1]; transform is not affine", last)
	}
	if det := m.Mat3().Det(); math.Abs(det) < Epsilon {
		v.fail(path, "matrix linear part has determinant %g; transform is not invertible", det)
	}
}

func finiteVec(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
