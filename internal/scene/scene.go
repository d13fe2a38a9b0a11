// Package scene assembles the resolved, immutable scene handed to
// renderers.
//
// A Scene is built once by an Assembler and never modified afterwards, so it
// may be shared by any number of goroutines without locking.
package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/roach88/prism/internal/binding"
	"github.com/roach88/prism/internal/registry"
	"github.com/roach88/prism/internal/xform"
)

// Model is one resolved placement of a geometry.
type Model struct {
	// Index is the model's position in emission order.
	Index int

	GeometryID string
	Geometry   registry.Handle
	MaterialID string
	Material   registry.MaterialHandle

	// Binding labels the material_instance that supplied the material; it
	// is empty for direct scene_model placements.
	Binding string

	// Group labels the master group the placement was reached from; it is
	// empty for direct scene_model placements.
	Group string

	// Path is the instancing path from Group down to the placement.
	Path binding.Path

	chain  xform.Chain
	static mgl64.Mat4
}

// Animated reports whether the model's transform depends on time.
func (m Model) Animated() bool { return m.chain.Animated() }

// Transform returns the model's object-to-world matrix at time. Static
// models return their pre-baked matrix.
func (m Model) Transform(time float64) mgl64.Mat4 {
	if !m.chain.Animated() {
		return m.static
	}
	return m.chain.At(time)
}

// Stages returns the accumulated transforms, child-local first.
func (m Model) Stages() []xform.Transform { return m.chain.Stages() }

// Interval returns the time range over which the model moves.
func (m Model) Interval() (start, end float64, ok bool) { return m.chain.Interval() }

// Scene is the resolved scene: every placement in emission order.
type Scene struct {
	models []Model
}

// Len returns the number of models.
func (s *Scene) Len() int { return len(s.models) }

// Model returns the model at index i.
func (s *Scene) Model(i int) Model { return s.models[i] }

// Models returns a copy of the models in emission order.
func (s *Scene) Models() []Model {
	return append([]Model(nil), s.models...)
}

// Animated returns the number of animated models.
func (s *Scene) Animated() int {
	n := 0
	for _, m := range s.models {
		if m.Animated() {
			n++
		}
	}
	return n
}

// Interval returns the time range covering every animated model.
func (s *Scene) Interval() (start, end float64, ok bool) {
	for _, m := range s.models {
		ms, me, mok := m.Interval()
		if !mok {
			continue
		}
		if !ok {
			start, end, ok = ms, me, true
			continue
		}
		start = min(start, ms)
		end = max(end, me)
	}
	return start, end, ok
}

// Encode renders s as a canonical-marshalable map. Static transforms are
// encoded as their baked matrix, animated ones as their stage list.
func (s *Scene) Encode() map[string]any {
	models := make([]any, len(s.models))
	for i, m := range s.models {
		steps := make([]any, len(m.Path))
		for j, st := range m.Path {
			steps[j] = map[string]any{"sub_group_id": st.SubGroupID, "instance_id": st.InstanceID}
		}

		var tr map[string]any
		if m.Animated() {
			tr = xform.Encode(xform.Sequence(m.Stages()...))
		} else {
			tr = xform.Encode(xform.Matrix{M: m.static})
		}

		models[i] = map[string]any{
			"index":     m.Index,
			"geometry":  m.GeometryID,
			"material":  m.MaterialID,
			"binding":   m.Binding,
			"group":     m.Group,
			"path":      steps,
			"animated":  m.Animated(),
			"transform": tr,
		}
	}
	return map[string]any{"models": models}
}
