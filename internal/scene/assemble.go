package scene

import (
	"context"

	"github.com/roach88/prism/internal/binding"
	"github.com/roach88/prism/internal/diag"
	"github.com/roach88/prism/internal/hierarchy"
	"github.com/roach88/prism/internal/registry"
	"github.com/roach88/prism/internal/xform"
)

// Geometries is the part of the geometry registry the assembler needs.
// *registry.Registry implements it.
type Geometries interface {
	Await(ctx context.Context, h registry.Handle) error
}

// MaterialResolver binds a placement to a material. *binding.Resolver
// implements it.
type MaterialResolver interface {
	Resolve(geometryID string, path binding.Path) (binding.Match, error)
}

// Direct is a placement declared outside any group, with an explicit
// material.
type Direct struct {
	GeometryID string
	Geometry   registry.Handle
	MaterialID string
	Material   registry.MaterialHandle
	Transform  xform.Transform
}

// Assembler walks a validated group graph and emits the resolved scene.
type Assembler struct {
	graph     *hierarchy.Graph
	geoms     Geometries
	materials MaterialResolver
}

// NewAssembler creates an assembler over graph.
func NewAssembler(graph *hierarchy.Graph, geoms Geometries, materials MaterialResolver) *Assembler {
	return &Assembler{graph: graph, geoms: geoms, materials: materials}
}

type assembly struct {
	*Assembler
	ctx     context.Context
	models  []Model
	errs    error
	awaited map[registry.Handle]error
}

// Assemble walks every master group in declaration order, depth first,
// members in declaration order, then appends the direct placements. Each
// placement waits for its geometry to finish loading before it is emitted.
//
// Binding and load failures are collected across the whole walk; a
// canceled ctx stops the walk immediately.
func (a *Assembler) Assemble(ctx context.Context, direct []Direct) (*Scene, error) {
	run := &assembly{Assembler: a, ctx: ctx, awaited: make(map[registry.Handle]error)}

	for _, root := range a.graph.Masters() {
		node := a.graph.Node(root)
		if err := run.walk(node, node.Label, xform.Chain{}, nil); err != nil {
			return nil, err
		}
	}

	for _, d := range direct {
		ok, err := run.ready(d.Geometry)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		run.emit(Model{
			GeometryID: d.GeometryID,
			Geometry:   d.Geometry,
			MaterialID: d.MaterialID,
			Material:   d.Material,
		}, xform.Chain{}.Nest(d.Transform))
	}

	if run.errs != nil {
		return nil, run.errs
	}
	return &Scene{models: run.models}, nil
}

// walk emits the placements under node. It returns only fatal errors;
// diagnostics are collected on the assembly.
func (r *assembly) walk(node *hierarchy.Node, group string, chain xform.Chain, path binding.Path) error {
	for _, m := range node.Members {
		child := chain.Nest(m.Transform)

		if m.IsInstance() {
			step := binding.Step{SubGroupID: m.SubGroupID, InstanceID: m.InstanceID}
			if err := r.walk(r.graph.Node(m.Group), group, child, path.Append(step)); err != nil {
				return err
			}
			continue
		}

		ok, err := r.ready(m.Geometry)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		match, err := r.materials.Resolve(m.GeometryID, path)
		if err != nil {
			r.errs = diag.Combine(r.errs, err)
			continue
		}
		r.emit(Model{
			GeometryID: m.GeometryID,
			Geometry:   m.Geometry,
			MaterialID: match.MaterialID,
			Material:   match.Material,
			Binding:    match.Binding,
			Group:      group,
			Path:       path,
		}, child)
	}
	return nil
}

// ready is the barrier between a geometry finishing its load and any
// placement of it being emitted. A load failure is recorded once per
// geometry and reported as not ready; only a done context is fatal.
func (r *assembly) ready(h registry.Handle) (bool, error) {
	if err, seen := r.awaited[h]; seen {
		return err == nil, nil
	}
	err := r.geoms.Await(r.ctx, h)
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	r.awaited[h] = err
	if err != nil {
		r.errs = diag.Combine(r.errs, err)
		return false, nil
	}
	return true, nil
}

func (r *assembly) emit(m Model, chain xform.Chain) {
	m.Index = len(r.models)
	m.chain = chain
	if static, ok := chain.Static(); ok {
		m.static = static
	}
	r.models = append(r.models, m)
}
