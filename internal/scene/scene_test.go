package scene

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/binding"
	"github.com/roach88/prism/internal/diag"
	"github.com/roach88/prism/internal/hierarchy"
	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/registry"
	"github.com/roach88/prism/internal/xform"
)

type fixture struct {
	reg   *registry.Registry
	mats  *registry.Materials
	graph *hierarchy.Graph
	res   *binding.Resolver
}

func newFixture(t *testing.T, loader registry.Loader, groups []ir.Group, bindings []ir.Binding) *fixture {
	t.Helper()
	reg := registry.New(loader, 2)
	for _, id := range []string{"trunk", "leaf", "rock"} {
		_, err := reg.Register(id, &registry.Sphere{Radius: 1})
		require.NoError(t, err)
	}
	_, err := reg.Register("bunny", &registry.Mesh{})
	require.NoError(t, err)

	mats := registry.NewMaterials()
	for _, id := range []string{"bark", "foliage", "stone"} {
		_, err := mats.Register(registry.Material{ID: id})
		require.NoError(t, err)
	}

	b := hierarchy.NewBuilder(reg)
	for _, g := range groups {
		b.DeclareGroup(g)
	}
	graph, err := b.Build()
	require.NoError(t, err)

	res, err := binding.NewResolver(bindings, mats)
	require.NoError(t, err)

	reg.Load(context.Background())
	return &fixture{reg: reg, mats: mats, graph: graph, res: res}
}

func (f *fixture) assemble(t *testing.T, direct ...Direct) (*Scene, error) {
	t.Helper()
	return NewAssembler(f.graph, f.reg, f.res).Assemble(context.Background(), direct)
}

var forest = []ir.Group{
	{ID: "tree", Members: []ir.Member{
		{GeometryID: "trunk"},
		{GeometryID: "leaf", Transform: xform.Translate(0, 2, 0)},
	}},
	{Master: true, Members: []ir.Member{
		{SubGroupID: "tree", InstanceID: "a"},
		{SubGroupID: "tree", InstanceID: "b", Transform: xform.Translate(10, 0, 0)},
		{GeometryID: "rock", Transform: xform.ScaleBy(2, 2, 2)},
	}},
}

var forestBindings = []ir.Binding{
	{MaterialID: "bark", Selectors: []ir.Selector{{GeometryID: "trunk"}}},
	{MaterialID: "foliage", Selectors: []ir.Selector{{GeometryID: "leaf"}}},
	{MaterialID: "stone", Selectors: []ir.Selector{{}}},
}

func origin(m Model, time float64) mgl64.Vec3 {
	return xform.Point(m.Transform(time), mgl64.Vec3{})
}

func TestAssemble_EmissionOrderAndTransforms(t *testing.T) {
	f := newFixture(t, nil, forest, forestBindings)
	s, err := f.assemble(t)
	require.NoError(t, err)
	require.Equal(t, 5, s.Len())

	type want struct {
		geometry, material, path string
		origin                   mgl64.Vec3
	}
	expected := []want{
		{"trunk", "bark", "(tree,a)", mgl64.Vec3{0, 0, 0}},
		{"leaf", "foliage", "(tree,a)", mgl64.Vec3{0, 2, 0}},
		{"trunk", "bark", "(tree,b)", mgl64.Vec3{10, 0, 0}},
		{"leaf", "foliage", "(tree,b)", mgl64.Vec3{10, 2, 0}},
		{"rock", "stone", "", mgl64.Vec3{0, 0, 0}},
	}
	for i, w := range expected {
		m := s.Model(i)
		assert.Equal(t, i, m.Index)
		assert.Equal(t, w.geometry, m.GeometryID)
		assert.Equal(t, w.material, m.MaterialID)
		assert.Equal(t, w.path, m.Path.String())
		assert.Equal(t, "master_group[0]", m.Group)
		assert.True(t, w.origin.ApproxEqual(origin(m, 0)), "model %d origin %v", i, origin(m, 0))
		assert.False(t, m.Animated())
	}

	rock := s.Model(4)
	assert.True(t, mgl64.Vec3{2, 0, 0}.ApproxEqual(xform.Vector(rock.Transform(0), mgl64.Vec3{1, 0, 0})))
	assert.Equal(t, 0, s.Animated())
	_, _, ok := s.Interval()
	assert.False(t, ok)
}

func TestAssemble_DeterministicOrder(t *testing.T) {
	f := newFixture(t, nil, forest, forestBindings)
	first, err := f.assemble(t)
	require.NoError(t, err)
	second, err := f.assemble(t)
	require.NoError(t, err)
	assert.Equal(t, first.Encode(), second.Encode())
}

func TestAssemble_AnimatedAncestor(t *testing.T) {
	groups := []ir.Group{
		{ID: "tree", Members: []ir.Member{{GeometryID: "trunk", Transform: xform.Translate(0, 1, 0)}}},
		{Master: true, Members: []ir.Member{{
			SubGroupID: "tree",
			InstanceID: "moving",
			Transform: xform.Animated{
				Start: xform.Identity{}, End: xform.Translate(4, 0, 0),
				StartTime: 0, EndTime: 2,
			},
		}}},
	}
	f := newFixture(t, nil, groups, forestBindings)
	s, err := f.assemble(t)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	m := s.Model(0)
	assert.True(t, m.Animated())
	assert.Equal(t, 1, s.Animated())
	assert.True(t, mgl64.Vec3{0, 1, 0}.ApproxEqual(origin(m, -1)))
	assert.True(t, mgl64.Vec3{2, 1, 0}.ApproxEqualThreshold(origin(m, 1), 1e-9))
	assert.True(t, mgl64.Vec3{4, 1, 0}.ApproxEqual(origin(m, 5)))
	assert.Len(t, m.Stages(), 2)

	start, end, ok := s.Interval()
	require.True(t, ok)
	assert.Equal(t, 0.0, start)
	assert.Equal(t, 2.0, end)
}

func TestAssemble_DirectPlacementsLast(t *testing.T) {
	f := newFixture(t, nil, forest, forestBindings)
	rock, err := f.reg.Lookup("rock")
	require.NoError(t, err)
	bark, err := f.mats.Lookup("bark")
	require.NoError(t, err)

	s, err := f.assemble(t, Direct{
		GeometryID: "rock", Geometry: rock,
		MaterialID: "bark", Material: bark,
		Transform: xform.Translate(0, 0, 7),
	})
	require.NoError(t, err)
	require.Equal(t, 6, s.Len())

	m := s.Model(5)
	assert.Equal(t, "rock", m.GeometryID)
	assert.Equal(t, "bark", m.MaterialID)
	assert.Empty(t, m.Path)
	assert.Empty(t, m.Group)
	assert.Empty(t, m.Binding)
	assert.True(t, mgl64.Vec3{0, 0, 7}.ApproxEqual(origin(m, 0)))
}

func TestAssemble_CollectsBindingErrors(t *testing.T) {
	bindings := []ir.Binding{
		{MaterialID: "bark", Selectors: []ir.Selector{{GeometryID: "trunk"}}},
		{MaterialID: "stone", Selectors: []ir.Selector{{GeometryID: "trunk"}}},
	}
	f := newFixture(t, nil, forest, bindings)

	_, err := f.assemble(t)
	require.Error(t, err)

	var ambiguous, unbound int
	for _, d := range diag.All(err) {
		switch d.Code {
		case diag.CodeBindingAmbiguity:
			ambiguous++
		case diag.CodeUnboundMaterial:
			unbound++
		}
	}
	assert.Equal(t, 2, ambiguous, "one per trunk placement")
	assert.Equal(t, 3, unbound, "two leaves and the rock")
}

func TestAssemble_WaitsForMeshLoad(t *testing.T) {
	release := make(chan struct{})
	loader := registry.LoaderFunc(func(ctx context.Context, id string, m *registry.Mesh) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	groups := []ir.Group{{Master: true, Members: []ir.Member{{GeometryID: "bunny"}}}}
	f := newFixture(t, loader, groups, forestBindings)

	done := make(chan *Scene)
	go func() {
		s, err := f.assemble(t)
		assert.NoError(t, err)
		done <- s
	}()

	select {
	case <-done:
		t.Fatal("assembled before the mesh finished loading")
	default:
	}
	close(release)
	s := <-done
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "bunny", s.Model(0).GeometryID)
}

func TestAssemble_LoadFailureReportedOnce(t *testing.T) {
	cause := errors.New("truncated file")
	loader := registry.LoaderFunc(func(context.Context, string, *registry.Mesh) error { return cause })
	groups := []ir.Group{
		{ID: "pair", Members: []ir.Member{{GeometryID: "bunny"}}},
		{Master: true, Members: []ir.Member{
			{SubGroupID: "pair", InstanceID: "a"},
			{SubGroupID: "pair", InstanceID: "b"},
		}},
	}
	f := newFixture(t, loader, groups, forestBindings)

	_, err := f.assemble(t)
	require.Error(t, err)
	ds := diag.All(err)
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeReference, ds[0].Code)
	assert.Equal(t, "bunny", ds[0].Entity)
	assert.ErrorIs(t, err, cause)
}

type stalled struct{}

func (stalled) Await(ctx context.Context, _ registry.Handle) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestAssemble_CanceledContext(t *testing.T) {
	f := newFixture(t, nil, forest, forestBindings)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAssembler(f.graph, stalled{}, f.res).Assemble(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScene_ModelsIsACopy(t *testing.T) {
	f := newFixture(t, nil, forest, forestBindings)
	s, err := f.assemble(t)
	require.NoError(t, err)

	models := s.Models()
	models[0].GeometryID = "changed"
	assert.Equal(t, "trunk", s.Model(0).GeometryID)
}

func TestScene_Encode(t *testing.T) {
	f := newFixture(t, nil, forest, forestBindings)
	s, err := f.assemble(t)
	require.NoError(t, err)

	enc := s.Encode()
	models, ok := enc["models"].([]any)
	require.True(t, ok)
	require.Len(t, models, 5)

	first := models[0].(map[string]any)
	assert.Equal(t, "trunk", first["geometry"])
	assert.Equal(t, "bark", first["material"])
	assert.Equal(t, "material_instance[0]", first["binding"])
	assert.Equal(t, "matrix", first["transform"].(map[string]any)["type"])
	assert.Equal(t, []any{map[string]any{"sub_group_id": "tree", "instance_id": "a"}}, first["path"])
}
