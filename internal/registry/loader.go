package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loader loads the attribute data of a mesh. Implementations are supplied by
// the mesh-loading subsystem and may be called concurrently.
type Loader interface {
	Load(ctx context.Context, id string, mesh *Mesh) error
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, id string, mesh *Mesh) error

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, id string, mesh *Mesh) error {
	return f(ctx, id, mesh)
}

// FileLoader checks that every attribute file exists under the mesh
// directory and carries the declared file type extension. It does not parse
// the files.
type FileLoader struct {
	// Root is prepended to relative mesh directories.
	Root string
}

// Load implements Loader.
func (l FileLoader) Load(ctx context.Context, id string, mesh *Mesh) error {
	dir := mesh.Dir
	if !filepath.IsAbs(dir) && l.Root != "" {
		dir = filepath.Join(l.Root, dir)
	}

	for _, attr := range mesh.Attributes {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, attr.Path)
		if mesh.FileType != "" && !strings.EqualFold(filepath.Ext(path), "."+mesh.FileType) {
			return fmt.Errorf("attribute %q: %s is not a %s file", attr.Name, path, mesh.FileType)
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", attr.Name, err)
		}
		if info.IsDir() {
			return fmt.Errorf("attribute %q: %s is a directory", attr.Name, path)
		}
	}
	return nil
}
