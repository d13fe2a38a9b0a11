package ir

import (
	"github.com/roach88/prism/internal/xform"
)

// Encode renders d as a canonical-marshalable map using the description's
// field names. Source and positions are omitted so the same declarations
// hash identically wherever they were loaded from.
func (d *Description) Encode() map[string]any {
	out := map[string]any{"schema_version": SchemaVersion}

	if len(d.Materials) > 0 {
		list := make([]any, len(d.Materials))
		for i, m := range d.Materials {
			e := map[string]any{"id": m.ID}
			if m.Type != "" {
				e["type"] = m.Type
			}
			if len(m.Params) > 0 {
				e["params"] = m.Params
			}
			list[i] = e
		}
		out["material"] = list
	}

	if len(d.Spheres) > 0 {
		list := make([]any, len(d.Spheres))
		for i, s := range d.Spheres {
			list[i] = map[string]any{"id": s.ID, "radius": s.Radius, "rev_orientation": s.ReverseOrientation}
		}
		out["sphere_geometry"] = list
	}

	if len(d.MeshGeometries) > 0 {
		list := make([]any, len(d.MeshGeometries))
		for i, m := range d.MeshGeometries {
			list[i] = map[string]any{"id": m.ID, "file_type": m.FileType, "dir": m.Dir}
		}
		out["mesh_geometry"] = list
	}

	if len(d.Meshes) > 0 {
		list := make([]any, len(d.Meshes))
		for i, m := range d.Meshes {
			attrs := make([]any, len(m.Attributes))
			for j, a := range m.Attributes {
				attrs[j] = map[string]any{"name": a.Name, "path": a.Path, "transform": xform.Encode(a.Transform)}
			}
			list[i] = map[string]any{"name": m.Name, "attributes": attrs, "transform": xform.Encode(m.Transform)}
		}
		out["mesh"] = list
	}

	if len(d.SubGroups) > 0 {
		out["sub_group"] = encodeGroups(d.SubGroups)
	}
	if len(d.MasterGroups) > 0 {
		out["master_group"] = encodeGroups(d.MasterGroups)
	}

	if len(d.Bindings) > 0 {
		list := make([]any, len(d.Bindings))
		for i, b := range d.Bindings {
			sels := make([]any, len(b.Selectors))
			for j, s := range b.Selectors {
				sels[j] = map[string]any{"geometry_id": s.GeometryID, "instance_id": s.InstanceID}
			}
			list[i] = map[string]any{"material_id": b.MaterialID, "instance_id": b.InstanceID, "geometries": sels}
		}
		out["material_instance"] = list
	}

	if len(d.SceneModels) > 0 {
		list := make([]any, len(d.SceneModels))
		for i, m := range d.SceneModels {
			list[i] = map[string]any{"geometry": m.Geometry, "material": m.Material, "transform": xform.Encode(m.Transform)}
		}
		out["scene_model"] = list
	}

	return out
}

func encodeGroups(groups []Group) []any {
	list := make([]any, len(groups))
	for i, g := range groups {
		members := make([]any, len(g.Members))
		for j, m := range g.Members {
			e := map[string]any{"transform": xform.Encode(m.Transform)}
			if m.IsInstance() {
				e["sub_group_id"] = m.SubGroupID
				e["instance_id"] = m.InstanceID
			} else {
				e["geometry_id"] = m.GeometryID
			}
			members[j] = e
		}
		list[i] = map[string]any{"id": g.ID, "members": members}
	}
	return list
}
