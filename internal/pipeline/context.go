package pipeline

import (
	"context"
	"fmt"

	"github.com/roach88/prism/internal/binding"
	"github.com/roach88/prism/internal/diag"
	"github.com/roach88/prism/internal/hierarchy"
	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/registry"
	"github.com/roach88/prism/internal/scene"
	"github.com/roach88/prism/internal/xform"
)

// buildContext holds the named lookups of one resolution.
type buildContext struct {
	desc      *ir.Description
	geoms     *registry.Registry
	materials *registry.Materials
	graph     *hierarchy.Graph
	resolver  *binding.Resolver
	direct    []scene.Direct
}

func newBuildContext(d *ir.Description, loader registry.Loader, workers int) *buildContext {
	return &buildContext{
		desc:      d,
		geoms:     registry.New(loader, workers),
		materials: registry.NewMaterials(),
	}
}

// declare registers and validates every declaration, collecting all
// diagnostics. Mesh loading starts as soon as geometries are registered.
func (bc *buildContext) declare(ctx context.Context) error {
	var errs error
	errs = diag.Combine(errs, bc.registerMaterials())
	errs = diag.Combine(errs, bc.registerGeometries())
	bc.geoms.Load(ctx)

	builder := hierarchy.NewBuilder(bc.geoms)
	for _, g := range bc.desc.SubGroups {
		builder.DeclareGroup(g)
	}
	for _, g := range bc.desc.MasterGroups {
		builder.DeclareGroup(g)
	}
	graph, err := builder.Build()
	errs = diag.Combine(errs, err)
	bc.graph = graph

	resolver, err := binding.NewResolver(bc.desc.Bindings, bc.materials)
	errs = diag.Combine(errs, err)
	bc.resolver = resolver

	errs = diag.Combine(errs, bc.placements())
	return errs
}

func (bc *buildContext) registerMaterials() error {
	var errs error
	for _, m := range bc.desc.Materials {
		_, err := bc.materials.Register(registry.Material{ID: m.ID, Type: m.Type, Params: m.Params})
		errs = diag.Combine(errs, locate(err, m.Pos))
	}
	return errs
}

// registerGeometries registers spheres, then each mesh_geometry merged
// with its mesh declaration.
func (bc *buildContext) registerGeometries() error {
	var errs error
	for _, s := range bc.desc.Spheres {
		_, err := bc.geoms.Register(s.ID, &registry.Sphere{Radius: s.Radius, ReverseOrientation: s.ReverseOrientation})
		errs = diag.Combine(errs, locate(err, s.Pos))
	}

	declared := make(map[string]bool, len(bc.desc.MeshGeometries))
	for _, mg := range bc.desc.MeshGeometries {
		declared[mg.ID] = true
		decl, ok := bc.desc.MeshFor(mg.ID)
		if !ok {
			errs = diag.Append(errs, located(diag.New(diag.CodeSchema, mg.ID, "mesh_geometry has no mesh declaration"), mg.Pos))
		}
		mesh := &registry.Mesh{FileType: mg.FileType, Dir: mg.Dir, Transform: decl.Transform}
		for _, a := range decl.Attributes {
			mesh.Attributes = append(mesh.Attributes, registry.Attribute{Name: a.Name, Path: a.Path, Transform: a.Transform})
		}
		_, err := bc.geoms.Register(mg.ID, mesh)
		errs = diag.Combine(errs, locate(err, mg.Pos))
	}

	seen := make(map[string]bool, len(bc.desc.Meshes))
	for _, m := range bc.desc.Meshes {
		switch {
		case seen[m.Name]:
			errs = diag.Append(errs, located(diag.New(diag.CodeUniqueness, m.Name, "mesh name is not unique"), m.Pos))
		case !declared[m.Name]:
			errs = diag.Append(errs, located(diag.New(diag.CodeReference, m.Name, "mesh names no mesh_geometry"), m.Pos))
		}
		seen[m.Name] = true
	}
	return errs
}

// placements checks every scene_model and prepares it for assembly.
func (bc *buildContext) placements() error {
	var errs error
	for i, sm := range bc.desc.SceneModels {
		entity := fmt.Sprintf("scene_model[%d]", i)

		g, err := bc.geoms.Lookup(sm.Geometry)
		if err != nil {
			errs = diag.Append(errs, located(diag.Newf(diag.CodeReference, entity, "unknown geometry %q", sm.Geometry).At("geometry"), sm.Pos))
		}
		m, err := bc.materials.Lookup(sm.Material)
		if err != nil {
			errs = diag.Append(errs, located(diag.Newf(diag.CodeReference, entity, "unknown material %q", sm.Material).At("material"), sm.Pos))
		}
		errs = diag.Combine(errs, xform.ValidateAt(sm.Transform, entity, "transform"))

		bc.direct = append(bc.direct, scene.Direct{
			GeometryID: sm.Geometry,
			Geometry:   g,
			MaterialID: sm.Material,
			Material:   m,
			Transform:  sm.Transform,
		})
	}
	return errs
}

// assemble walks the validated graph. Load failures of geometries that are
// never placed still fail the build.
func (bc *buildContext) assemble(ctx context.Context) (*scene.Scene, error) {
	sc, err := scene.NewAssembler(bc.graph, bc.geoms, bc.resolver).Assemble(ctx, bc.direct)
	if err != nil {
		return nil, err
	}
	if err := bc.geoms.Wait(ctx); err != nil {
		return nil, err
	}
	return sc, nil
}

func located(d *diag.Diagnostic, pos string) *diag.Diagnostic {
	if pos == "" || d.Location != "" {
		return d
	}
	return d.Located(pos)
}

// locate attaches pos to every diagnostic in err that lacks a location.
func locate(err error, pos string) error {
	if err == nil || pos == "" {
		return err
	}
	all := diag.All(err)
	if len(all) == 0 {
		return err
	}
	var out error
	for _, d := range all {
		out = diag.Append(out, located(d, pos))
	}
	return out
}
