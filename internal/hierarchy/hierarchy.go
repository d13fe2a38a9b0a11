// Package hierarchy builds the validated group DAG a scene is assembled from.
//
// Groups are stored in an arena and addressed by GroupHandle, so one sub
// group node is shared by every member that instances it. Build validates
// in three ordered passes, each reported only when the previous one is
// clean:
//
//  1. structure: references, uniqueness, member transforms (all collected)
//  2. cycles: any group reaching itself through instancing edges
//  3. depth: only one level of sub-group instancing below a master group
package hierarchy

import (
	"fmt"

	"github.com/roach88/prism/internal/diag"
	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/registry"
	"github.com/roach88/prism/internal/xform"
)

// GroupHandle addresses a group in a Graph.
type GroupHandle int

// NoGroup is the GroupHandle of a member that does not instance a group.
const NoGroup GroupHandle = -1

// GeometryLookup resolves geometry ids. *registry.Registry implements it.
type GeometryLookup interface {
	Lookup(id string) (registry.Handle, error)
}

// Node is a validated group.
type Node struct {
	ID      string
	Label   string
	Master  bool
	Members []Member
	Pos     string
}

// Member is a validated group member: either a direct geometry (Geometry is
// valid, Group is NoGroup) or an instance of the sub group Group.
type Member struct {
	Geometry   registry.Handle
	GeometryID string

	Group      GroupHandle
	SubGroupID string
	InstanceID string

	Transform xform.Transform
	Pos       string
}

// IsInstance reports whether m instances a sub group.
func (m Member) IsInstance() bool { return m.Group != NoGroup }

// Graph is the validated group DAG. It is immutable once built.
type Graph struct {
	nodes   []Node
	masters []GroupHandle
}

// Masters returns the master groups in declaration order.
func (g *Graph) Masters() []GroupHandle {
	return append([]GroupHandle(nil), g.masters...)
}

// Node returns the group behind h.
func (g *Graph) Node(h GroupHandle) *Node {
	return &g.nodes[h]
}

// Len returns the number of groups.
func (g *Graph) Len() int { return len(g.nodes) }

// Builder collects group declarations and validates them into a Graph.
type Builder struct {
	geoms  GeometryLookup
	groups []ir.Group
	labels []string
	nSub   int
	nMast  int
}

// NewBuilder creates a builder that resolves direct geometry members
// against geoms.
func NewBuilder(geoms GeometryLookup) *Builder {
	return &Builder{geoms: geoms}
}

// DeclareGroup stores a group declaration. Declarations are validated by
// Build; duplicate ids are reported there.
func (b *Builder) DeclareGroup(g ir.Group) {
	var label string
	if g.Master {
		label = ir.GroupLabel(g, b.nMast)
		b.nMast++
	} else {
		label = ir.GroupLabel(g, b.nSub)
		b.nSub++
	}
	b.groups = append(b.groups, g)
	b.labels = append(b.labels, label)
}

// Build validates every declared group and returns the DAG. On failure the
// returned error holds every diagnostic of the first failing pass.
func (b *Builder) Build() (*Graph, error) {
	g, errs := b.structure()
	if errs != nil {
		return nil, errs
	}
	if errs := findCycles(g); errs != nil {
		return nil, errs
	}
	if errs := checkDepth(g); errs != nil {
		return nil, errs
	}
	return g, nil
}

func memberPath(j int) string {
	return fmt.Sprintf("members[%d]", j)
}

func located(d *diag.Diagnostic, pos string) *diag.Diagnostic {
	if pos == "" {
		return d
	}
	return d.Located(pos)
}

// structure resolves references and checks uniqueness and member
// transforms, collecting every violation.
func (b *Builder) structure() (*Graph, error) {
	var errs error
	g := &Graph{nodes: make([]Node, len(b.groups))}

	byID := make(map[string]GroupHandle, len(b.groups))
	for i, decl := range b.groups {
		h := GroupHandle(i)
		g.nodes[i] = Node{ID: decl.ID, Label: b.labels[i], Master: decl.Master, Pos: decl.Pos}
		if decl.Master {
			g.masters = append(g.masters, h)
		}
		if decl.ID == "" {
			if !decl.Master {
				errs = diag.Append(errs, located(diag.New(diag.CodeSchema, b.labels[i], "sub_group requires an id"), decl.Pos))
			}
			continue
		}
		if _, dup := byID[decl.ID]; dup {
			errs = diag.Append(errs, located(diag.New(diag.CodeUniqueness, decl.ID, "group id is not unique"), decl.Pos))
			continue
		}
		byID[decl.ID] = h
	}

	for i, decl := range b.groups {
		node := &g.nodes[i]
		node.Members = make([]Member, 0, len(decl.Members))

		direct := make(map[string]bool)
		type sibling struct{ group, instance string }
		siblings := make(map[sibling]bool)

		for j, m := range decl.Members {
			path := memberPath(j)
			fail := func(d *diag.Diagnostic) {
				errs = diag.Append(errs, located(d.At(path), m.Pos))
			}

			vm := Member{Group: NoGroup, Transform: m.Transform, Pos: m.Pos}
			switch {
			case m.GeometryID != "" && m.SubGroupID != "":
				fail(diag.New(diag.CodeSchema, node.Label, "member names both geometry_id and sub_group_id"))
				continue
			case m.GeometryID == "" && m.SubGroupID == "":
				fail(diag.New(diag.CodeSchema, node.Label, "member requires geometry_id or sub_group_id"))
				continue

			case m.GeometryID != "":
				vm.GeometryID = m.GeometryID
				h, err := b.geoms.Lookup(m.GeometryID)
				if err != nil {
					fail(diag.Newf(diag.CodeReference, node.Label, "unknown geometry %q", m.GeometryID))
				}
				vm.Geometry = h
				if direct[m.GeometryID] {
					fail(diag.Newf(diag.CodeUniqueness, node.Label, "geometry %q appears more than once", m.GeometryID))
				}
				direct[m.GeometryID] = true

			default:
				vm.SubGroupID = m.SubGroupID
				vm.InstanceID = m.InstanceID
				target, ok := byID[m.SubGroupID]
				switch {
				case !ok:
					fail(diag.Newf(diag.CodeReference, node.Label, "unknown sub_group %q", m.SubGroupID))
				case g.nodes[target].Master:
					fail(diag.Newf(diag.CodeReference, node.Label, "%q is a master_group and cannot be instanced", m.SubGroupID))
				default:
					vm.Group = target
				}
				if m.InstanceID == "" {
					fail(diag.Newf(diag.CodeSchema, node.Label, "instance of %q requires an instance_id", m.SubGroupID))
				} else {
					key := sibling{m.SubGroupID, m.InstanceID}
					if siblings[key] {
						fail(diag.Newf(diag.CodeUniqueness, node.Label, "instance (%s, %s) appears more than once", m.SubGroupID, m.InstanceID))
					}
					siblings[key] = true
				}
			}

			if err := xform.ValidateAt(m.Transform, node.Label, path+".transform"); err != nil {
				for _, d := range diag.All(err) {
					errs = diag.Append(errs, located(d, m.Pos))
				}
			}
			node.Members = append(node.Members, vm)
		}
	}

	return g, errs
}
