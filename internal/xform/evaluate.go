package xform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	polarIterations = 100
	polarTolerance  = 1e-12
)

// Evaluate returns the affine matrix of t at time. Only Animated transforms
// depend on time.
func Evaluate(t Transform, time float64) mgl64.Mat4 {
	switch t := t.(type) {
	case Translation:
		return mgl64.Translate3D(t.Offset[0], t.Offset[1], t.Offset[2])
	case Rotation:
		if t.Axis.Len() < Epsilon {
			return mgl64.Ident4()
		}
		return mgl64.HomogRotate3D(mgl64.DegToRad(t.Degrees), t.Axis.Normalize())
	case Scale:
		return mgl64.Scale3D(t.Factors[0], t.Factors[1], t.Factors[2])
	case Matrix:
		return t.M
	case Composite:
		m := mgl64.Ident4()
		for _, s := range t.Steps {
			m = Evaluate(s, time).Mul4(m)
		}
		return m
	case Animated:
		return t.at(time)
	default:
		return mgl64.Ident4()
	}
}

// Param returns the interpolation parameter u in [0, 1] for time.
// A zero-length interval holds the start pose up to and including
// StartTime and switches to the end pose after it.
func (a Animated) Param(time float64) float64 {
	span := a.EndTime - a.StartTime
	if span <= 0 {
		if time <= a.StartTime {
			return 0
		}
		return 1
	}
	return mgl64.Clamp((time-a.StartTime)/span, 0, 1)
}

func (a Animated) at(time float64) mgl64.Mat4 {
	u := a.Param(time)
	start := Evaluate(a.Start, a.StartTime)
	if u <= 0 {
		return start
	}
	end := Evaluate(a.End, a.EndTime)
	if u >= 1 {
		return end
	}

	s, okStart := Decompose(start)
	e, okEnd := Decompose(end)
	if !okStart || !okEnd {
		// Validated endpoints are invertible; anything else snaps.
		if u < 0.5 {
			return start
		}
		return end
	}
	return Interpolate(s, e, u).Matrix()
}

// Pose is an affine matrix split as Translation * Rotation * Stretch.
// Stretch holds scale and any shear left over by the polar decomposition.
type Pose struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Stretch     mgl64.Mat3
}

// Matrix recomposes the pose.
func (p Pose) Matrix() mgl64.Mat4 {
	t := mgl64.Translate3D(p.Translation[0], p.Translation[1], p.Translation[2])
	return t.Mul4(p.Rotation.Mat4()).Mul4(p.Stretch.Mat4())
}

// Decompose splits m into a Pose using polar decomposition of its linear
// part. It reports false when the linear part is singular.
func Decompose(m mgl64.Mat4) (Pose, bool) {
	linear := m.Mat3()
	if math.Abs(linear.Det()) < Epsilon {
		return Pose{}, false
	}

	r := linear
	for i := 0; i < polarIterations; i++ {
		next := r.Add(r.Transpose().Inv()).Mul(0.5)
		diff := maxAbsDiff(next, r)
		r = next
		if diff < polarTolerance {
			break
		}
	}
	// Keep the rotation proper; a reflection moves into the stretch.
	if r.Det() < 0 {
		r = r.Mul(-1)
	}

	return Pose{
		Translation: m.Col(3).Vec3(),
		Rotation:    mgl64.Mat4ToQuat(r.Mat4()).Normalize(),
		Stretch:     r.Transpose().Mul3(linear),
	}, true
}

// Interpolate blends two poses: translation and stretch linearly, rotation
// along the shortest arc.
func Interpolate(a, b Pose, u float64) Pose {
	rb := b.Rotation
	if a.Rotation.Dot(rb) < 0 {
		rb = rb.Scale(-1)
	}
	return Pose{
		Translation: a.Translation.Add(b.Translation.Sub(a.Translation).Mul(u)),
		Rotation:    mgl64.QuatSlerp(a.Rotation, rb, u),
		Stretch:     a.Stretch.Add(b.Stretch.Sub(a.Stretch).Mul(u)),
	}
}

func maxAbsDiff(a, b mgl64.Mat3) float64 {
	var d float64
	for i := range a {
		d = math.Max(d, math.Abs(a[i]-b[i]))
	}
	return d
}
