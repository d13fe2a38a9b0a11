package compiler

import (
	"slices"

	"cuelang.org/go/cue"

	"github.com/roach88/prism/internal/xform"
)

// transformParams lists the parameter fields of each transform kind.
var transformParams = map[xform.Kind][]string{
	xform.KindIdentity:    nil,
	xform.KindTranslation: {"trans"},
	xform.KindRotation:    {"degrees", "axis"},
	xform.KindScale:       {"vec"},
	xform.KindMatrix:      {"mat"},
	xform.KindComposite:   {"transf"},
	xform.KindAnimated:    {"start_transf", "end_transf", "start_time", "end_time"},
}

var kindOrder = []xform.Kind{
	xform.KindIdentity,
	xform.KindTranslation,
	xform.KindRotation,
	xform.KindScale,
	xform.KindMatrix,
	xform.KindComposite,
	xform.KindAnimated,
}

// optionalTransform reads the "transform" field of v; absent is identity.
func (p *parser) optionalTransform(v cue.Value, entity, path string) xform.Transform {
	f := v.LookupPath(cue.ParsePath("transform"))
	if !f.Exists() {
		return xform.Identity{}
	}
	return p.transform(f, entity, join(path, "transform"))
}

// transformKind finds the kind of a transform block, given either as
// type: "<kind>" or as the flag <kind>: true.
func (p *parser) transformKind(v cue.Value, entity, path string) (xform.Kind, bool) {
	var found []xform.Kind

	if t := v.LookupPath(cue.ParsePath("type")); t.Exists() {
		name, err := t.String()
		if err != nil {
			p.fail(entity, join(path, "type"), t, "type must be a string, got %s", t.Kind())
			return 0, false
		}
		k, ok := xform.ParseKind(name)
		if !ok {
			p.fail(entity, join(path, "type"), t, "unknown transform type %q", name)
			return 0, false
		}
		found = append(found, k)
	}

	for _, k := range kindOrder {
		flag := v.LookupPath(cue.MakePath(cue.Str(k.String())))
		if !flag.Exists() {
			continue
		}
		on, err := flag.Bool()
		if err != nil {
			p.fail(entity, join(path, k.String()), flag, "%s must be a bool, got %s", k, flag.Kind())
			return 0, false
		}
		if on && !slices.Contains(found, k) {
			found = append(found, k)
		}
	}

	switch len(found) {
	case 0:
		p.fail(entity, path, v, "transform has no kind; set type or one of %s", kindList())
		return 0, false
	case 1:
		return found[0], true
	default:
		p.fail(entity, path, v, "transform names more than one kind: %s and %s", found[0], found[1])
		return 0, false
	}
}

func kindList() string {
	s := ""
	for i, k := range kindOrder {
		if i > 0 {
			s += ", "
		}
		s += k.String()
	}
	return s
}

// transform reads a transform block. Malformed blocks are reported and
// read as identity.
func (p *parser) transform(v cue.Value, entity, path string) xform.Transform {
	if v.Kind() != cue.StructKind {
		p.fail(entity, path, v, "transform must be a struct, got %s", v.Kind())
		return xform.Identity{}
	}
	kind, ok := p.transformKind(v, entity, path)
	if !ok {
		return xform.Identity{}
	}

	allowed := []string{"type"}
	for _, k := range kindOrder {
		allowed = append(allowed, k.String())
	}
	allowed = append(allowed, transformParams[kind]...)
	iter, _ := v.Fields()
	for iter.Next() {
		if name := iter.Label(); !slices.Contains(allowed, name) {
			p.fail(entity, join(path, name), iter.Value(), "field %q does not apply to a %s transform", name, kind)
		}
	}

	switch kind {
	case xform.KindTranslation:
		return xform.Translation{Offset: p.vec3(v, entity, path, "trans")}
	case xform.KindRotation:
		return xform.Rotation{
			Degrees: p.number(v, entity, path, "degrees", true),
			Axis:    p.vec3(v, entity, path, "axis"),
		}
	case xform.KindScale:
		return xform.Scale{Factors: p.vec3(v, entity, path, "vec")}
	case xform.KindMatrix:
		return p.matrix(v, entity, path)
	case xform.KindComposite:
		steps := v.LookupPath(cue.ParsePath("transf"))
		if !steps.Exists() {
			p.fail(entity, path, v, "missing required field %q", "transf")
			return xform.Identity{}
		}
		var c xform.Composite
		p.list(steps, entity, join(path, "transf"), func(i int, s cue.Value) {
			c.Steps = append(c.Steps, p.transform(s, entity, index(join(path, "transf"), i)))
		})
		return c
	case xform.KindAnimated:
		a := xform.Animated{
			StartTime: p.number(v, entity, path, "start_time", true),
			EndTime:   p.number(v, entity, path, "end_time", true),
		}
		a.Start = p.endpoint(v, entity, path, "start_transf")
		a.End = p.endpoint(v, entity, path, "end_transf")
		return a
	default:
		return xform.Identity{}
	}
}

func (p *parser) endpoint(v cue.Value, entity, path, field string) xform.Transform {
	f := v.LookupPath(cue.MakePath(cue.Str(field)))
	if !f.Exists() {
		p.fail(entity, path, v, "missing required field %q", field)
		return xform.Identity{}
	}
	return p.transform(f, entity, join(path, field))
}

// matrix reads mat: 3 or 4 rows of 4 numbers.
func (p *parser) matrix(v cue.Value, entity, path string) xform.Transform {
	f := v.LookupPath(cue.ParsePath("mat"))
	if !f.Exists() {
		p.fail(entity, path, v, "missing required field %q", "mat")
		return xform.Identity{}
	}
	matPath := join(path, "mat")
	if f.Kind() != cue.ListKind {
		p.fail(entity, matPath, f, "mat must be a list of rows, got %s", f.Kind())
		return xform.Identity{}
	}

	var rows [][4]float64
	bad := false
	p.list(f, entity, matPath, func(i int, r cue.Value) {
		n := p.numbers(r, entity, index(matPath, i), 4)
		if n == nil {
			bad = true
			return
		}
		rows = append(rows, [4]float64{n[0], n[1], n[2], n[3]})
	})
	if bad {
		return xform.Identity{}
	}
	m, err := xform.MatrixFromRows(rows...)
	if err != nil {
		p.fail(entity, matPath, f, "%v", err)
		return xform.Identity{}
	}
	return m
}
