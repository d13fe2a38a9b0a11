package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/prism/internal/ir"
)

func pos(v cue.Value) string { return position(v.Pos()) }

// material reads {id, type?, ...params}. Fields other than id and type are
// opaque parameters.
func (p *parser) material(v cue.Value, i int) ir.Material {
	entity := label(peekString(v, "id"), FieldMaterial, i)
	m := ir.Material{Pos: pos(v)}
	if !p.object(v, entity, "") {
		return m
	}
	m.ID = p.str(v, entity, "", "id", true)
	m.Type = p.str(v, entity, "", "type", false)

	iter, _ := v.Fields()
	for iter.Next() {
		name := iter.Label()
		if name == "id" || name == "type" {
			continue
		}
		val, err := plain(iter.Value())
		if err != nil {
			p.fail(entity, name, iter.Value(), "%v", err)
			continue
		}
		if m.Params == nil {
			m.Params = make(map[string]any)
		}
		m.Params[name] = val
	}
	return m
}

// plain converts a concrete CUE value into strings, bools, int64, float64,
// []any and map[string]any.
func plain(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind:
		return v.Float64()
	case cue.ListKind:
		out := []any{}
		it, err := v.List()
		if err != nil {
			return nil, err
		}
		for it.Next() {
			e, err := plain(it.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, nil
	case cue.StructKind:
		out := map[string]any{}
		it, err := v.Fields()
		if err != nil {
			return nil, err
		}
		for it.Next() {
			e, err := plain(it.Value())
			if err != nil {
				return nil, err
			}
			out[it.Label()] = e
		}
		return out, nil
	case cue.NullKind:
		return nil, fmt.Errorf("null is not allowed")
	default:
		return nil, fmt.Errorf("unsupported value of kind %s", v.Kind())
	}
}

func (p *parser) sphere(v cue.Value, i int) ir.Sphere {
	entity := label(peekString(v, "id"), FieldSphereGeometry, i)
	s := ir.Sphere{Pos: pos(v)}
	if !p.object(v, entity, "", "id", "radius", "rev_orientation") {
		return s
	}
	s.ID = p.str(v, entity, "", "id", true)
	s.Radius = p.number(v, entity, "", "radius", true)
	s.ReverseOrientation = p.boolean(v, entity, "", "rev_orientation")
	return s
}

func (p *parser) meshGeometry(v cue.Value, i int) ir.MeshGeometry {
	entity := label(peekString(v, "id"), FieldMeshGeometry, i)
	m := ir.MeshGeometry{Pos: pos(v)}
	if !p.object(v, entity, "", "id", "file_type", "dir") {
		return m
	}
	m.ID = p.str(v, entity, "", "id", true)
	m.FileType = p.str(v, entity, "", "file_type", true)
	m.Dir = p.str(v, entity, "", "dir", true)
	return m
}

func (p *parser) mesh(v cue.Value, i int) ir.Mesh {
	entity := label(peekString(v, "name"), FieldMesh, i)
	m := ir.Mesh{Pos: pos(v)}
	if !p.object(v, entity, "", "name", "attributes", "transform") {
		return m
	}
	m.Name = p.str(v, entity, "", "name", true)
	m.Transform = p.optionalTransform(v, entity, "")

	attrs := v.LookupPath(cue.ParsePath("attributes"))
	if !attrs.Exists() {
		p.fail(entity, "", v, "missing required field %q", "attributes")
		return m
	}
	p.list(attrs, entity, "attributes", func(j int, a cue.Value) {
		path := index("attributes", j)
		if !p.object(a, entity, path, "name", "path", "transform") {
			return
		}
		m.Attributes = append(m.Attributes, ir.MeshAttribute{
			Name:      p.str(a, entity, path, "name", true),
			Path:      p.str(a, entity, path, "path", true),
			Transform: p.optionalTransform(a, entity, path),
		})
	})
	return m
}

func (p *parser) group(v cue.Value, i int, master bool) ir.Group {
	list := FieldSubGroup
	if master {
		list = FieldMasterGroup
	}
	entity := label(peekString(v, "id"), list, i)
	g := ir.Group{Master: master, Pos: pos(v)}
	if !p.object(v, entity, "", "id", "members") {
		return g
	}
	g.ID = p.str(v, entity, "", "id", !master)

	members := v.LookupPath(cue.ParsePath("members"))
	if !members.Exists() {
		p.fail(entity, "", v, "missing required field %q", "members")
		return g
	}
	p.list(members, entity, "members", func(j int, m cue.Value) {
		path := index("members", j)
		if !p.object(m, entity, path, "geometry_id", "sub_group_id", "instance_id", "transform") {
			return
		}
		g.Members = append(g.Members, ir.Member{
			GeometryID: p.str(m, entity, path, "geometry_id", false),
			SubGroupID: p.str(m, entity, path, "sub_group_id", false),
			InstanceID: p.str(m, entity, path, "instance_id", false),
			Transform:  p.optionalTransform(m, entity, path),
			Pos:        pos(m),
		})
	})
	return g
}

func (p *parser) binding(v cue.Value, i int) ir.Binding {
	entity := label(peekString(v, "instance_id"), FieldMaterialInstance, i)
	b := ir.Binding{Pos: pos(v)}
	if !p.object(v, entity, "", "material_id", "instance_id", "geometries") {
		return b
	}
	b.MaterialID = p.str(v, entity, "", "material_id", true)
	b.InstanceID = p.str(v, entity, "", "instance_id", false)

	geoms := v.LookupPath(cue.ParsePath("geometries"))
	if !geoms.Exists() {
		p.fail(entity, "", v, "missing required field %q", "geometries")
		return b
	}
	p.list(geoms, entity, "geometries", func(j int, s cue.Value) {
		path := index("geometries", j)
		if !p.object(s, entity, path, "geometry_id", "instance_id") {
			return
		}
		b.Selectors = append(b.Selectors, ir.Selector{
			GeometryID: p.str(s, entity, path, "geometry_id", false),
			InstanceID: p.str(s, entity, path, "instance_id", false),
			Pos:        pos(s),
		})
	})
	return b
}

func (p *parser) sceneModel(v cue.Value, i int) ir.SceneModel {
	entity := index(FieldSceneModel, i)
	m := ir.SceneModel{Pos: pos(v)}
	if !p.object(v, entity, "", "geometry", "material", "transform") {
		return m
	}
	m.Geometry = p.str(v, entity, "", "geometry", true)
	m.Material = p.str(v, entity, "", "material", true)
	m.Transform = p.optionalTransform(v, entity, "")
	return m
}
