package ir

import (
	"fmt"

	"github.com/roach88/prism/internal/xform"
)

// Description is a complete parsed scene description. Every slice keeps
// declaration order.
type Description struct {
	Source         string         `json:"source,omitempty"`
	Materials      []Material     `json:"material,omitempty"`
	Spheres        []Sphere       `json:"sphere_geometry,omitempty"`
	MeshGeometries []MeshGeometry `json:"mesh_geometry,omitempty"`
	Meshes         []Mesh         `json:"mesh,omitempty"`
	SubGroups      []Group        `json:"sub_group,omitempty"`
	MasterGroups   []Group        `json:"master_group,omitempty"`
	Bindings       []Binding      `json:"material_instance,omitempty"`
	SceneModels    []SceneModel   `json:"scene_model,omitempty"`
}

// Material declares a material id. Type and Params are opaque to the
// resolver and passed through to the material table.
type Material struct {
	ID     string         `json:"id"`
	Type   string         `json:"type,omitempty"`
	Params map[string]any `json:"params,omitempty"`
	Pos    string         `json:"-"`
}

// Sphere declares an analytic sphere geometry.
type Sphere struct {
	ID                 string  `json:"id"`
	Radius             float64 `json:"radius"`
	ReverseOrientation bool    `json:"rev_orientation,omitempty"`
	Pos                string  `json:"-"`
}

// MeshGeometry declares a mesh geometry id and where its files live. The
// attributes come from the Mesh whose Name equals ID.
type MeshGeometry struct {
	ID       string `json:"id"`
	FileType string `json:"file_type"`
	Dir      string `json:"dir"`
	Pos      string `json:"-"`
}

// Mesh lists the attributes of the MeshGeometry named Name.
type Mesh struct {
	Name       string          `json:"name"`
	Attributes []MeshAttribute `json:"attributes"`
	Transform  xform.Transform `json:"-"`
	Pos        string          `json:"-"`
}

// MeshAttribute is one named attribute file of a mesh.
type MeshAttribute struct {
	Name      string          `json:"name"`
	Path      string          `json:"path"`
	Transform xform.Transform `json:"-"`
}

// Group is a named collection of members. Master groups are traversal roots;
// sub groups are only reached through instancing members.
type Group struct {
	ID      string   `json:"id,omitempty"`
	Master  bool     `json:"-"`
	Members []Member `json:"members"`
	Pos     string   `json:"-"`
}

// Member references either a geometry (GeometryID) or an instance of a sub
// group (SubGroupID plus InstanceID), with the transform applied before the
// enclosing group's.
type Member struct {
	GeometryID string          `json:"geometry_id,omitempty"`
	SubGroupID string          `json:"sub_group_id,omitempty"`
	InstanceID string          `json:"instance_id,omitempty"`
	Transform  xform.Transform `json:"-"`
	Pos        string          `json:"-"`
}

// IsInstance reports whether m instances a sub group.
func (m Member) IsInstance() bool { return m.SubGroupID != "" }

// Ref returns the id m references.
func (m Member) Ref() string {
	if m.IsInstance() {
		return m.SubGroupID
	}
	return m.GeometryID
}

// Binding assigns MaterialID to every placement matched by one of its
// selectors. InstanceID labels the binding in diagnostics.
type Binding struct {
	MaterialID string     `json:"material_id"`
	InstanceID string     `json:"instance_id,omitempty"`
	Selectors  []Selector `json:"geometries"`
	Pos        string     `json:"-"`
}

// Label names b for diagnostics.
func (b Binding) Label(index int) string {
	if b.InstanceID != "" {
		return b.InstanceID
	}
	return fmt.Sprintf("material_instance[%d]", index)
}

// Selector constrains a binding by geometry id and instance id. An empty
// field is a wildcard.
type Selector struct {
	GeometryID string `json:"geometry_id,omitempty"`
	InstanceID string `json:"instance_id,omitempty"`
	Pos        string `json:"-"`
}

// String renders s as "(geometry, instance)" with "*" for wildcards.
func (s Selector) String() string {
	g, i := s.GeometryID, s.InstanceID
	if g == "" {
		g = "*"
	}
	if i == "" {
		i = "*"
	}
	return "(" + g + ", " + i + ")"
}

// SceneModel places a geometry directly, with an explicit material and no
// instance path.
type SceneModel struct {
	Geometry  string          `json:"geometry"`
	Material  string          `json:"material"`
	Transform xform.Transform `json:"-"`
	Pos       string          `json:"-"`
}

// GroupLabel names the group at index in d.MasterGroups or d.SubGroups for
// diagnostics when it has no id.
func GroupLabel(g Group, index int) string {
	if g.ID != "" {
		return g.ID
	}
	if g.Master {
		return fmt.Sprintf("master_group[%d]", index)
	}
	return fmt.Sprintf("sub_group[%d]", index)
}

// GeometryIDs returns every declared geometry id, spheres first, in
// declaration order.
func (d *Description) GeometryIDs() []string {
	ids := make([]string, 0, len(d.Spheres)+len(d.MeshGeometries))
	for _, s := range d.Spheres {
		ids = append(ids, s.ID)
	}
	for _, m := range d.MeshGeometries {
		ids = append(ids, m.ID)
	}
	return ids
}

// MeshFor returns the Mesh whose Name is id.
func (d *Description) MeshFor(id string) (Mesh, bool) {
	for _, m := range d.Meshes {
		if m.Name == id {
			return m, true
		}
	}
	return Mesh{}, false
}
