package xform

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Encode renders t as a declaration-shaped map using the scene description
// field names. The result only holds strings, float64 and nested
// []any/map[string]any values, so it can be canonically marshaled.
func Encode(t Transform) map[string]any {
	switch t := t.(type) {
	case Translation:
		return map[string]any{"type": KindTranslation.String(), "trans": vec(t.Offset)}
	case Rotation:
		return map[string]any{"type": KindRotation.String(), "degrees": t.Degrees, "axis": vec(t.Axis)}
	case Scale:
		return map[string]any{"type": KindScale.String(), "vec": vec(t.Factors)}
	case Matrix:
		return map[string]any{"type": KindMatrix.String(), "mat": Rows(t.M)}
	case Composite:
		steps := make([]any, len(t.Steps))
		for i, s := range t.Steps {
			steps[i] = Encode(s)
		}
		return map[string]any{"type": KindComposite.String(), "transf": steps}
	case Animated:
		return map[string]any{
			"type":         KindAnimated.String(),
			"start_transf": Encode(t.Start),
			"end_transf":   Encode(t.End),
			"start_time":   t.StartTime,
			"end_time":     t.EndTime,
		}
	default:
		return map[string]any{"type": KindIdentity.String()}
	}
}

// Rows returns m as four row-major rows.
func Rows(m mgl64.Mat4) []any {
	rows := make([]any, 4)
	for i := range rows {
		r := m.Row(i)
		rows[i] = []any{r[0], r[1], r[2], r[3]}
	}
	return rows
}

func vec(v mgl64.Vec3) []any {
	return []any{v[0], v[1], v[2]}
}
