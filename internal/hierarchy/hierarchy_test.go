package hierarchy

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prism/internal/diag"
	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/registry"
	"github.com/roach88/prism/internal/xform"
)

func newBuilder(t *testing.T, geometries ...string) *Builder {
	t.Helper()
	reg := registry.New(nil, 1)
	for _, id := range geometries {
		_, err := reg.Register(id, &registry.Sphere{Radius: 1})
		require.NoError(t, err)
	}
	return NewBuilder(reg)
}

func geo(id string) ir.Member { return ir.Member{GeometryID: id} }

func inst(group, instance string) ir.Member {
	return ir.Member{SubGroupID: group, InstanceID: instance}
}

func sub(id string, members ...ir.Member) ir.Group {
	return ir.Group{ID: id, Members: members}
}

func master(members ...ir.Member) ir.Group {
	return ir.Group{Master: true, Members: members}
}

func codes(err error) []diag.Code {
	var out []diag.Code
	for _, d := range diag.All(err) {
		out = append(out, d.Code)
	}
	return out
}

func TestBuild_SharedSubGroup(t *testing.T) {
	b := newBuilder(t, "trunk", "leaf", "rock")
	b.DeclareGroup(sub("tree", geo("trunk"), geo("leaf")))
	b.DeclareGroup(master(inst("tree", "a"), inst("tree", "b"), geo("rock")))

	g, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())

	masters := g.Masters()
	require.Len(t, masters, 1)
	root := g.Node(masters[0])
	assert.Equal(t, "master_group[0]", root.Label)
	require.Len(t, root.Members, 3)

	// Both instances address the same node.
	assert.Equal(t, root.Members[0].Group, root.Members[1].Group)
	assert.Equal(t, "tree", g.Node(root.Members[0].Group).ID)

	rock := root.Members[2]
	assert.False(t, rock.IsInstance())
	assert.True(t, rock.Geometry.Valid())
}

func TestBuild_EmptyGraph(t *testing.T) {
	g, err := newBuilder(t).Build()
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.Masters())
}

func TestBuild_UnknownReferences(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(master(geo("ghost"), inst("nowhere", "a"), geo("ball")))

	_, err := b.Build()
	require.Error(t, err)
	assert.Equal(t, []diag.Code{diag.CodeReference, diag.CodeReference}, codes(err))

	ds := diag.All(err)
	assert.Equal(t, "master_group[0]", ds[0].Entity)
	assert.Equal(t, "members[0]", ds[0].Path)
	assert.Contains(t, ds[0].Message, `"ghost"`)
	assert.Equal(t, "members[1]", ds[1].Path)
}

func TestBuild_InstancingMasterGroup(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(ir.Group{ID: "top", Master: true, Members: []ir.Member{geo("ball")}})
	b.DeclareGroup(master(inst("top", "a")))

	_, err := b.Build()
	require.Error(t, err)
	assert.Equal(t, []diag.Code{diag.CodeReference}, codes(err))
	assert.Contains(t, err.Error(), "master_group")
}

func TestBuild_DuplicateDirectGeometry(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(master(geo("ball"), ir.Member{GeometryID: "ball", Transform: xform.Translate(1, 0, 0)}))

	_, err := b.Build()
	require.Error(t, err)
	assert.Equal(t, []diag.Code{diag.CodeUniqueness}, codes(err))
	assert.Equal(t, "members[1]", diag.All(err)[0].Path)
}

func TestBuild_SameGeometryInDifferentGroups(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(sub("pair", geo("ball")))
	b.DeclareGroup(master(geo("ball"), inst("pair", "a")))

	_, err := b.Build()
	assert.NoError(t, err)
}

func TestBuild_DuplicateSiblingInstance(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(sub("tree", geo("ball")))
	b.DeclareGroup(master(inst("tree", "a"), inst("tree", "a")))

	_, err := b.Build()
	require.Error(t, err)
	assert.Equal(t, []diag.Code{diag.CodeUniqueness}, codes(err))
}

func TestBuild_SameInstanceIDUnderDifferentParents(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(sub("tree", geo("ball")))
	b.DeclareGroup(master(inst("tree", "a")))
	b.DeclareGroup(master(inst("tree", "a")))

	_, err := b.Build()
	assert.NoError(t, err)
}

func TestBuild_MemberShape(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(sub("tree", geo("ball")))
	b.DeclareGroup(master(
		ir.Member{},
		ir.Member{GeometryID: "ball", SubGroupID: "tree", InstanceID: "x"},
		ir.Member{SubGroupID: "tree"},
	))

	_, err := b.Build()
	require.Error(t, err)
	assert.Equal(t, []diag.Code{diag.CodeSchema, diag.CodeSchema, diag.CodeSchema}, codes(err))
}

func TestBuild_GroupIDs(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(sub("tree", geo("ball")))
	b.DeclareGroup(ir.Group{ID: "tree", Pos: "scene.cue:9:2", Members: []ir.Member{geo("ball")}})
	b.DeclareGroup(ir.Group{Members: []ir.Member{geo("ball")}})

	_, err := b.Build()
	require.Error(t, err)
	assert.Equal(t, []diag.Code{diag.CodeUniqueness, diag.CodeSchema}, codes(err))
	assert.Equal(t, "scene.cue:9:2", diag.All(err)[0].Location)
	assert.Equal(t, "sub_group[2]", diag.All(err)[1].Entity)
}

func TestBuild_InvalidMemberTransform(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(master(ir.Member{
		GeometryID: "ball",
		Transform:  xform.Sequence(xform.Translate(1, 0, 0), xform.Animated{Start: xform.Identity{}, End: xform.Identity{}, EndTime: 1}),
		Pos:        "scene.cue:4:5",
	}))

	_, err := b.Build()
	require.Error(t, err)
	ds := diag.All(err)
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeTransform, ds[0].Code)
	assert.Equal(t, "members[0].transform.transf[1]", ds[0].Path)
	assert.Equal(t, "scene.cue:4:5", ds[0].Location)
}

func TestBuild_CollectsAllStructuralErrors(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(master(
		geo("ghost"),
		geo("ball"),
		geo("ball"),
		ir.Member{GeometryID: "ball2", Transform: xform.Rotate(5, mgl64.Vec3{})},
	))

	_, err := b.Build()
	require.Error(t, err)
	assert.Equal(t, []diag.Code{
		diag.CodeReference,
		diag.CodeUniqueness,
		diag.CodeReference,
		diag.CodeTransform,
	}, codes(err))
}

func TestBuild_Cycle(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(sub("a", geo("ball"), inst("b", "x")))
	b.DeclareGroup(sub("b", inst("a", "y")))
	b.DeclareGroup(master(inst("a", "root")))

	_, err := b.Build()
	require.Error(t, err)
	ds := diag.All(err)
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeCycle, ds[0].Code)
	assert.Equal(t, "a", ds[0].Entity)
	assert.Contains(t, ds[0].Message, "a -> b -> a")
}

func TestBuild_SelfCycle(t *testing.T) {
	b := newBuilder(t)
	b.DeclareGroup(sub("loop", inst("loop", "again")))

	_, err := b.Build()
	require.Error(t, err)
	assert.Equal(t, []diag.Code{diag.CodeCycle}, codes(err))
	assert.Contains(t, err.Error(), "loop -> loop")
}

func TestBuild_UnreachableCycleStillReported(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(sub("a", inst("b", "1")))
	b.DeclareGroup(sub("b", inst("a", "2")))
	b.DeclareGroup(sub("c", inst("d", "3")))
	b.DeclareGroup(sub("d", inst("c", "4")))
	b.DeclareGroup(master(geo("ball")))

	_, err := b.Build()
	require.Error(t, err)
	ds := diag.All(err)
	require.Len(t, ds, 2)
	assert.Equal(t, "a", ds[0].Entity)
	assert.Equal(t, "c", ds[1].Entity)
}

func TestBuild_CycleReportedBeforeDepth(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(sub("a", inst("b", "x")))
	b.DeclareGroup(sub("b", inst("a", "y")))
	b.DeclareGroup(sub("leaf", geo("ball")))
	b.DeclareGroup(sub("mid", inst("leaf", "l")))
	b.DeclareGroup(master(inst("mid", "m")))

	_, err := b.Build()
	require.Error(t, err)
	assert.Equal(t, []diag.Code{diag.CodeCycle}, codes(err))
}

func TestBuild_DiamondIsNotACycle(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(sub("leaf", geo("ball")))
	b.DeclareGroup(master(inst("leaf", "a"), inst("leaf", "b")))
	b.DeclareGroup(master(inst("leaf", "c")))

	_, err := b.Build()
	assert.NoError(t, err)
}

func TestBuild_NestedInstancingRejected(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(sub("leaf", geo("ball")))
	b.DeclareGroup(sub("branch", geo("ball"), inst("leaf", "l1")))
	b.DeclareGroup(master(inst("branch", "b1"), inst("branch", "b2")))

	_, err := b.Build()
	require.Error(t, err)
	ds := diag.All(err)
	require.Len(t, ds, 1, "reported once although two instances reach it")
	assert.Equal(t, diag.CodeCycleDepth, ds[0].Code)
	assert.Equal(t, "branch", ds[0].Entity)
	assert.Equal(t, "members[1]", ds[0].Path)
}

func TestBuild_NestedInstancingUnreachableAllowed(t *testing.T) {
	b := newBuilder(t, "ball")
	b.DeclareGroup(sub("leaf", geo("ball")))
	b.DeclareGroup(sub("branch", inst("leaf", "l1")))
	b.DeclareGroup(master(inst("leaf", "a")))

	_, err := b.Build()
	assert.NoError(t, err)
}
