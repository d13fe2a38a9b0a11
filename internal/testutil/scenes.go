package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ForestCUE is a small valid scene: two instances of a tree sub group, a
// rock placed directly in the master group, and an animated scene_model.
//
// It resolves to six models, in order: (tree,oak) trunk, (tree,oak) crown,
// (tree,pine) trunk, (tree,pine) crown, rock, and the direct rock placement.
const ForestCUE = `package scene

material: [
	{id: "bark", type: "matte", kd: [0.4, 0.3, 0.2]},
	{id: "leaf", type: "matte", kd: [0.1, 0.6, 0.1]},
	{id: "stone", type: "plastic", roughness: 0.3},
]

sphere_geometry: [
	{id: "trunk", radius: 0.5},
	{id: "crown", radius: 2},
	{id: "rock", radius: 1, rev_orientation: true},
]

sub_group: [{
	id: "tree"
	members: [
		{geometry_id: "trunk"},
		{geometry_id: "crown", transform: {type: "translate", trans: [0, 3, 0]}},
	]
}]

master_group: [{
	id: "forest"
	members: [
		{sub_group_id: "tree", instance_id: "oak", transform: {translate: true, trans: [-5, 0, 0]}},
		{sub_group_id: "tree", instance_id: "pine", transform: {type: "composite", transf: [
			{type: "scale", vec: [1, 1.5, 1]},
			{type: "translate", trans: [5, 0, 0]},
		]}},
		{geometry_id: "rock", transform: {type: "rotate", degrees: 45, axis: [0, 1, 0]}},
	]
}]

material_instance: [
	{material_id: "bark", instance_id: "bark_all", geometries: [{geometry_id: "trunk"}]},
	{material_id: "leaf", instance_id: "leaves", geometries: [{geometry_id: "crown"}]},
	{material_id: "stone", instance_id: "stones", geometries: [{geometry_id: "rock"}]},
]

scene_model: [{
	geometry: "rock"
	material: "stone"
	transform: {
		type:         "animated"
		start_time:   0
		end_time:     1
		start_transf: {type: "identity"}
		end_transf:   {type: "translate", trans: [0, 1, 0]}
	}
}]
`

// TeapotCUE declares a mesh geometry whose attribute files live under
// meshes/teapot relative to the mesh root.
const TeapotCUE = `package scene

material: [{id: "porcelain", type: "plastic"}]

mesh_geometry: [{id: "teapot", file_type: "obj", dir: "meshes/teapot"}]

mesh: [{
	name: "teapot"
	attributes: [
		{name: "body", path: "body.obj"},
		{name: "lid", path: "lid.obj", transform: {type: "translate", trans: [0, 0.1, 0]}},
	]
}]

master_group: [{
	members: [{geometry_id: "teapot"}]
}]

material_instance: [{material_id: "porcelain", geometries: [{}]}]
`

// WriteScene writes src to dir/name and returns the path.
func WriteScene(t testing.TB, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	return path
}

// WriteMeshFiles creates empty attribute files under root/dir.
func WriteMeshFiles(t testing.TB, root, dir string, names ...string) {
	t.Helper()
	full := filepath.Join(root, dir)
	if err := os.MkdirAll(full, 0o755); err != nil {
		t.Fatalf("create mesh dir: %v", err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(full, name), nil, 0o644); err != nil {
			t.Fatalf("write mesh file: %v", err)
		}
	}
}
