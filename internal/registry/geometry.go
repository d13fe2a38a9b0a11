package registry

import (
	"github.com/roach88/prism/internal/xform"
)

// Geometry is the data registered for a geometry id: a *Sphere or a *Mesh.
// The resolver never inspects it beyond registration-time checks.
type Geometry interface {
	GeometryKind() string
}

// Sphere is an analytic sphere centered at the origin.
type Sphere struct {
	Radius             float64
	ReverseOrientation bool
}

// Mesh is a triangle mesh whose per-attribute data lives in files under Dir.
type Mesh struct {
	FileType   string
	Dir        string
	Attributes []Attribute

	// Transform applies to the whole mesh, after each attribute's own
	// transform.
	Transform xform.Transform
}

// Attribute is one named data set of a mesh (points, normals, ...).
type Attribute struct {
	Name      string
	Path      string
	Transform xform.Transform
}

// GeometryKind implements Geometry.
func (*Sphere) GeometryKind() string { return "sphere" }

// GeometryKind implements Geometry.
func (*Mesh) GeometryKind() string { return "mesh" }
