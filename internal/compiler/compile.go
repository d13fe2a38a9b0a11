// Package compiler turns a CUE scene description into ir declarations.
//
// Uses the CUE SDK's Go API directly. Every malformed declaration is
// reported as a SCHEMA_ERROR diagnostic with its source position, and all of
// them are collected before Compile returns:
//
//	v := cuecontext.New().CompileString(src, cue.Filename("scene.cue"))
//	desc, err := compiler.Compile(v)
//	for _, d := range diag.All(err) { ... }
package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/roach88/prism/internal/diag"
	"github.com/roach88/prism/internal/ir"
)

// Top-level list fields of a scene description.
const (
	FieldMaterial         = "material"
	FieldSphereGeometry   = "sphere_geometry"
	FieldMeshGeometry     = "mesh_geometry"
	FieldMesh             = "mesh"
	FieldSubGroup         = "sub_group"
	FieldMasterGroup      = "master_group"
	FieldMaterialInstance = "material_instance"
	FieldSceneModel       = "scene_model"
)

// Compile parses a CUE value into a Description.
func Compile(v cue.Value) (*ir.Description, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, "")
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, "")
	}

	p := &parser{}
	d := &ir.Description{}

	iter, err := v.Fields()
	if err != nil {
		return nil, diag.New(diag.CodeSchema, "", "scene description must be a struct").Located(position(v.Pos()))
	}

	for iter.Next() {
		name := iter.Label()
		val := iter.Value()

		switch name {
		case FieldMaterial:
			p.each(val, name, func(i int, e cue.Value) { d.Materials = append(d.Materials, p.material(e, i)) })
		case FieldSphereGeometry:
			p.each(val, name, func(i int, e cue.Value) { d.Spheres = append(d.Spheres, p.sphere(e, i)) })
		case FieldMeshGeometry:
			p.each(val, name, func(i int, e cue.Value) { d.MeshGeometries = append(d.MeshGeometries, p.meshGeometry(e, i)) })
		case FieldMesh:
			p.each(val, name, func(i int, e cue.Value) { d.Meshes = append(d.Meshes, p.mesh(e, i)) })
		case FieldSubGroup:
			p.each(val, name, func(i int, e cue.Value) { d.SubGroups = append(d.SubGroups, p.group(e, i, false)) })
		case FieldMasterGroup:
			p.each(val, name, func(i int, e cue.Value) { d.MasterGroups = append(d.MasterGroups, p.group(e, i, true)) })
		case FieldMaterialInstance:
			p.each(val, name, func(i int, e cue.Value) { d.Bindings = append(d.Bindings, p.binding(e, i)) })
		case FieldSceneModel:
			p.each(val, name, func(i int, e cue.Value) { d.SceneModels = append(d.SceneModels, p.sceneModel(e, i)) })
		default:
			p.fail(name, "", val, "unknown top-level field %q", name)
		}
	}

	if p.errs != nil {
		return nil, p.errs
	}
	return d, nil
}

// parser accumulates schema diagnostics while walking a description.
type parser struct {
	errs error
}

func (p *parser) fail(entity, path string, v cue.Value, format string, args ...any) {
	d := diag.Newf(diag.CodeSchema, entity, format, args...).At(path)
	if loc := position(v.Pos()); loc != "" {
		d = d.Located(loc)
	}
	p.errs = diag.Append(p.errs, d)
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

func label(id, list string, i int) string {
	if id != "" {
		return id
	}
	return index(list, i)
}

// each calls fn for every element of the list v.
func (p *parser) each(v cue.Value, name string, fn func(i int, e cue.Value)) {
	p.list(v, name, "", fn)
}

func (p *parser) list(v cue.Value, entity, path string, fn func(i int, e cue.Value)) {
	it, err := v.List()
	if err != nil {
		p.fail(entity, path, v, "must be a list")
		return
	}
	for i := 0; it.Next(); i++ {
		fn(i, it.Value())
	}
}

// object checks that v is a struct whose fields are all in allowed. A nil
// allowed accepts any field.
func (p *parser) object(v cue.Value, entity, path string, allowed ...string) bool {
	if v.Kind() != cue.StructKind {
		p.fail(entity, path, v, "must be a struct, got %s", v.Kind())
		return false
	}
	if allowed == nil {
		return true
	}
	iter, _ := v.Fields()
	for iter.Next() {
		name := iter.Label()
		if !contains(allowed, name) {
			p.fail(entity, join(path, name), iter.Value(), "unknown field %q; expected one of %s", name, strings.Join(allowed, ", "))
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

// peekString reads an optional string field without reporting errors; used
// to name an entity before it is validated.
func peekString(v cue.Value, field string) string {
	s, _ := v.LookupPath(cue.ParsePath(field)).String()
	return s
}

func (p *parser) str(v cue.Value, entity, path, field string, required bool) string {
	f := v.LookupPath(cue.MakePath(cue.Str(field)))
	if !f.Exists() {
		if required {
			p.fail(entity, path, v, "missing required field %q", field)
		}
		return ""
	}
	s, err := f.String()
	if err != nil {
		p.fail(entity, join(path, field), f, "%s must be a string, got %s", field, f.Kind())
		return ""
	}
	if required && s == "" {
		p.fail(entity, join(path, field), f, "%s must not be empty", field)
	}
	return s
}

func (p *parser) number(v cue.Value, entity, path, field string, required bool) float64 {
	f := v.LookupPath(cue.MakePath(cue.Str(field)))
	if !f.Exists() {
		if required {
			p.fail(entity, path, v, "missing required field %q", field)
		}
		return 0
	}
	return p.numberValue(f, entity, join(path, field))
}

func (p *parser) numberValue(f cue.Value, entity, path string) float64 {
	if k := f.Kind(); k != cue.IntKind && k != cue.FloatKind {
		p.fail(entity, path, f, "must be a number, got %s", k)
		return 0
	}
	n, err := f.Float64()
	if err != nil {
		p.fail(entity, path, f, "invalid number: %v", err)
	}
	return n
}

func (p *parser) boolean(v cue.Value, entity, path, field string) bool {
	f := v.LookupPath(cue.MakePath(cue.Str(field)))
	if !f.Exists() {
		return false
	}
	b, err := f.Bool()
	if err != nil {
		p.fail(entity, join(path, field), f, "%s must be a bool, got %s", field, f.Kind())
	}
	return b
}

// numbers reads a list of exactly n numbers.
func (p *parser) numbers(f cue.Value, entity, path string, n int) []float64 {
	if f.Kind() != cue.ListKind {
		p.fail(entity, path, f, "must be a list of %d numbers", n)
		return nil
	}
	out := make([]float64, 0, n)
	p.list(f, entity, path, func(i int, e cue.Value) {
		out = append(out, p.numberValue(e, entity, index(path, i)))
	})
	if len(out) != n {
		p.fail(entity, path, f, "must have %d numbers, got %d", n, len(out))
		return nil
	}
	return out
}

func (p *parser) vec3(v cue.Value, entity, path, field string) mgl64.Vec3 {
	f := v.LookupPath(cue.MakePath(cue.Str(field)))
	if !f.Exists() {
		p.fail(entity, path, v, "missing required field %q", field)
		return mgl64.Vec3{}
	}
	n := p.numbers(f, entity, join(path, field), 3)
	if n == nil {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{n[0], n[1], n[2]}
}
