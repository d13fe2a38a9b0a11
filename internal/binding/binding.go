// Package binding resolves which material a placement receives.
//
// Every material_instance declaration lists selectors constraining a
// geometry id, an instance id, both or neither. A selector matches a
// placement when its geometry constraint is a wildcard or equals the
// placement's geometry, and its instance constraint is a wildcard or equals
// some instance id on the placement's path. Matches are ranked:
//
//	3  geometry and instance exact
//	2  geometry exact
//	1  instance exact
//	0  wildcard
//
// Within a rank, an instance constraint matched at a deeper ancestor beats
// one matched higher up. Two best matches from different declarations are a
// BINDING_AMBIGUITY_ERROR; no match is an UNBOUND_MATERIAL_ERROR.
package binding

import (
	"fmt"
	"strings"

	"github.com/roach88/prism/internal/diag"
	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/registry"
)

// Step is one instancing edge on a placement's path.
type Step struct {
	SubGroupID string `json:"sub_group_id"`
	InstanceID string `json:"instance_id"`
}

// Path is the sequence of instancing edges from a master group down to a
// placement. The empty path denotes a member of a master group itself.
type Path []Step

// String renders p as "(sub,inst)/(sub,inst)".
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = "(" + s.SubGroupID + "," + s.InstanceID + ")"
	}
	return strings.Join(parts, "/")
}

// Append returns p extended by s without modifying p.
func (p Path) Append(s Step) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// MaterialLookup resolves material ids. *registry.Materials implements it.
type MaterialLookup interface {
	Lookup(id string) (registry.MaterialHandle, error)
}

// Match is the winning selector for a placement.
type Match struct {
	Material   registry.MaterialHandle
	MaterialID string
	Binding    string
	Selector   ir.Selector
	Rank       int
}

type rule struct {
	binding  int
	label    string
	material registry.MaterialHandle
	matID    string
	sel      ir.Selector
}

// Resolver evaluates material bindings. It is immutable after
// construction and safe for concurrent use.
type Resolver struct {
	rules []rule
}

// NewResolver validates bindings against mats and prepares them for
// resolution. Every unknown material, duplicate label and empty selector
// list is reported.
func NewResolver(bindings []ir.Binding, mats MaterialLookup) (*Resolver, error) {
	var errs error
	r := &Resolver{}
	labels := make(map[string]bool)

	for i, b := range bindings {
		label := b.Label(i)
		loc := func(d *diag.Diagnostic) *diag.Diagnostic {
			if b.Pos != "" {
				return d.Located(b.Pos)
			}
			return d
		}

		if b.InstanceID != "" {
			if labels[b.InstanceID] {
				errs = diag.Append(errs, loc(diag.New(diag.CodeUniqueness, label, "material_instance id is not unique")))
			}
			labels[b.InstanceID] = true
		}

		h, err := mats.Lookup(b.MaterialID)
		if err != nil {
			errs = diag.Append(errs, loc(diag.Newf(diag.CodeReference, label, "unknown material %q", b.MaterialID).At("material_id")))
		}
		if len(b.Selectors) == 0 {
			errs = diag.Append(errs, loc(diag.New(diag.CodeSchema, label, "material_instance has no geometries")))
		}

		for _, s := range b.Selectors {
			r.rules = append(r.rules, rule{binding: i, label: label, material: h, matID: b.MaterialID, sel: s})
		}
	}

	if errs != nil {
		return nil, errs
	}
	return r, nil
}

// rank returns the specificity of sel for a placement, and the depth of the
// ancestor its instance constraint matched (-1 when unconstrained), or
// ok=false when sel does not match.
func rank(sel ir.Selector, geometryID string, path Path) (score, depth int, ok bool) {
	if sel.GeometryID != "" && sel.GeometryID != geometryID {
		return 0, 0, false
	}
	depth = -1
	if sel.InstanceID != "" {
		for i := len(path) - 1; i >= 0; i-- {
			if path[i].InstanceID == sel.InstanceID {
				depth = i
				break
			}
		}
		if depth < 0 {
			return 0, 0, false
		}
	}

	switch {
	case sel.GeometryID != "" && sel.InstanceID != "":
		score = 3
	case sel.GeometryID != "":
		score = 2
	case sel.InstanceID != "":
		score = 1
	}
	return score, depth, true
}

// Resolve returns the material bound to the placement of geometryID at
// path.
func (r *Resolver) Resolve(geometryID string, path Path) (Match, error) {
	best := -1
	bestScore, bestDepth := -1, -1
	var tied []int

	for i, ru := range r.rules {
		score, depth, ok := rank(ru.sel, geometryID, path)
		if !ok {
			continue
		}
		switch {
		case score > bestScore || (score == bestScore && depth > bestDepth):
			best, bestScore, bestDepth = i, score, depth
			tied = tied[:0]
		case score == bestScore && depth == bestDepth:
			if ru.binding != r.rules[best].binding && !r.hasBinding(tied, ru.binding) {
				tied = append(tied, i)
			}
		}
	}

	if best < 0 {
		return Match{}, diag.New(diag.CodeUnboundMaterial, geometryID, "no material_instance matches this placement").At(path.String())
	}

	winner := r.rules[best]
	if len(tied) > 0 {
		names := []string{describe(winner)}
		for _, i := range tied {
			names = append(names, describe(r.rules[i]))
		}
		return Match{}, diag.Newf(diag.CodeBindingAmbiguity, geometryID,
			"equally specific selectors match: %s", strings.Join(names, " and ")).At(path.String())
	}

	return Match{
		Material:   winner.material,
		MaterialID: winner.matID,
		Binding:    winner.label,
		Selector:   winner.sel,
		Rank:       bestScore,
	}, nil
}

func (r *Resolver) hasBinding(rules []int, binding int) bool {
	for _, i := range rules {
		if r.rules[i].binding == binding {
			return true
		}
	}
	return false
}

func describe(ru rule) string {
	return fmt.Sprintf("%s %s -> %s", ru.label, ru.sel, ru.matID)
}
