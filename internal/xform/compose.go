package xform

import (
	"github.com/roach88/prism/internal/diag"
)

// Compose returns the transform that applies a and then b.
//
// Non-animated operands compose into a flattened Composite (identities are
// dropped). When one operand is Animated the other is composed into both of
// its endpoints, keeping its interval. Two Animated operands compose only if
// their intervals coincide; otherwise the result could not be expressed
// without nesting and a TRANSFORM_VALIDATION_ERROR is returned.
//
// Use Chain to accumulate transforms whose animation intervals differ.
func Compose(a, b Transform) (Transform, error) {
	aa, aAnim := a.(Animated)
	ba, bAnim := b.(Animated)

	switch {
	case !aAnim && !bAnim:
		return flatten(a, b), nil
	case aAnim && bAnim:
		if aa.StartTime != ba.StartTime || aa.EndTime != ba.EndTime {
			return nil, diag.Newf(diag.CodeTransform, "", "cannot compose animated transforms over different intervals [%g, %g] and [%g, %g]",
				aa.StartTime, aa.EndTime, ba.StartTime, ba.EndTime)
		}
		return Animated{
			Start:     flatten(aa.Start, ba.Start),
			End:       flatten(aa.End, ba.End),
			StartTime: aa.StartTime,
			EndTime:   aa.EndTime,
		}, nil
	case aAnim:
		return Animated{
			Start:     flatten(aa.Start, b),
			End:       flatten(aa.End, b),
			StartTime: aa.StartTime,
			EndTime:   aa.EndTime,
		}, nil
	default:
		return Animated{
			Start:     flatten(a, ba.Start),
			End:       flatten(a, ba.End),
			StartTime: ba.StartTime,
			EndTime:   ba.EndTime,
		}, nil
	}
}

// flatten concatenates the steps of a and b, dropping identities.
func flatten(ts ...Transform) Transform {
	var steps []Transform
	var collect func(t Transform)
	collect = func(t Transform) {
		switch t := t.(type) {
		case nil, Identity:
		case Composite:
			for _, s := range t.Steps {
				collect(s)
			}
		default:
			steps = append(steps, t)
		}
	}
	for _, t := range ts {
		collect(t)
	}

	switch len(steps) {
	case 0:
		return Identity{}
	case 1:
		return steps[0]
	default:
		return Composite{Steps: steps}
	}
}
