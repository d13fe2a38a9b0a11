// Package registry holds the geometry and material tables a scene resolves
// against.
//
// Geometries are registered by id and referred to by opaque Handles. Sphere
// data is available as soon as it is registered; mesh attribute data is
// loaded by a Loader in the background once Load is called, bounded to a
// fixed number of concurrent loads. Await is the barrier a consumer passes
// before relying on a handle:
//
//	reg := registry.New(registry.FileLoader{}, 8)
//	h, _ := reg.Register("bunny", &registry.Mesh{...})
//	reg.Load(ctx)
//	if err := reg.Await(ctx, h); err != nil { ... }
package registry

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/prism/internal/diag"
	"github.com/roach88/prism/internal/xform"
)

// DefaultWorkers bounds concurrent mesh loads when New is given a
// non-positive limit.
const DefaultWorkers = 8

// Handle is an opaque reference to a registered geometry. The zero Handle
// refers to nothing.
type Handle uint32

// Valid reports whether h was issued by a registry.
func (h Handle) Valid() bool { return h != 0 }

type entry struct {
	id   string
	geom Geometry
	done chan struct{}
	err  error
}

func (e *entry) finish(err error) {
	e.err = err
	close(e.done)
}

// Registry maps geometry ids to handles and tracks their load state.
// It is safe for concurrent use.
type Registry struct {
	loader  Loader
	workers int

	mu      sync.Mutex
	ids     map[string]Handle
	entries []*entry
	sealed  bool
	loaded  chan struct{}
}

// New creates a registry that loads meshes with loader, at most workers at a
// time. A nil loader accepts every mesh without touching the filesystem.
func New(loader Loader, workers int) *Registry {
	if loader == nil {
		loader = LoaderFunc(func(context.Context, string, *Mesh) error { return nil })
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Registry{
		loader:  loader,
		workers: workers,
		ids:     make(map[string]Handle),
	}
}

// Register adds geometry under id and returns its handle.
//
// A duplicate id is a UNIQUENESS_VIOLATION and yields no handle. Malformed
// geometry (non-positive radius, duplicate attribute names, invalid
// transforms) is reported but the geometry is still registered, so
// references to it do not produce follow-on errors.
func (r *Registry) Register(id string, g Geometry) (Handle, error) {
	if g == nil {
		return 0, diag.New(diag.CodeSchema, id, "geometry has no data")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return 0, fmt.Errorf("register %q: registry is already loading", id)
	}
	if _, dup := r.ids[id]; dup {
		return 0, diag.New(diag.CodeUniqueness, id, "geometry id is not unique")
	}

	e := &entry{id: id, geom: g, done: make(chan struct{})}
	if _, ok := g.(*Mesh); !ok {
		close(e.done)
	}
	r.entries = append(r.entries, e)
	h := Handle(len(r.entries))
	r.ids[id] = h

	return h, check(id, g)
}

func check(id string, g Geometry) error {
	var errs error
	switch g := g.(type) {
	case *Sphere:
		if !(g.Radius > 0) {
			errs = diag.Append(errs, diag.Newf(diag.CodeSchema, id, "radius must be positive, got %g", g.Radius).At("radius"))
		}
	case *Mesh:
		seen := make(map[string]bool, len(g.Attributes))
		for i, a := range g.Attributes {
			path := fmt.Sprintf("attributes[%d]", i)
			if seen[a.Name] {
				errs = diag.Append(errs, diag.Newf(diag.CodeUniqueness, id, "attribute name %q is not unique", a.Name).At(path))
			}
			seen[a.Name] = true
			errs = diag.Combine(errs, xform.ValidateAt(a.Transform, id, path+".transform"))
		}
		errs = diag.Combine(errs, xform.ValidateAt(g.Transform, id, "transform"))
	}
	return errs
}

// Lookup returns the handle registered for id, or a REFERENCE_ERROR.
func (r *Registry) Lookup(id string) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.ids[id]
	if !ok {
		return 0, diag.New(diag.CodeReference, id, "unknown geometry id")
	}
	return h, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, err := r.Lookup(id)
	return err == nil
}

// Get returns the id and data behind h.
func (r *Registry) Get(h Handle) (string, Geometry, bool) {
	e := r.entry(h)
	if e == nil {
		return "", nil, false
	}
	return e.id, e.geom, true
}

// Len returns the number of registered geometries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) entry(h Handle) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h == 0 || int(h) > len(r.entries) {
		return nil
	}
	return r.entries[h-1]
}

// Load starts loading every registered mesh in the background and returns
// immediately. The registry accepts no further registrations. Calling Load
// more than once has no further effect.
func (r *Registry) Load(ctx context.Context) {
	r.mu.Lock()
	if r.sealed {
		r.mu.Unlock()
		return
	}
	r.sealed = true
	r.loaded = make(chan struct{})
	var pending []*entry
	for _, e := range r.entries {
		if _, ok := e.geom.(*Mesh); ok {
			pending = append(pending, e)
		}
	}
	done := r.loaded
	r.mu.Unlock()

	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(r.workers)
		for _, e := range pending {
			e := e
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					e.finish(err)
					return nil
				}
				e.finish(r.loader.Load(ctx, e.id, e.geom.(*Mesh)))
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// Await blocks until the geometry behind h is available. A failed load is
// returned as a REFERENCE_ERROR wrapping the loader's error. Await on a mesh
// before Load is called blocks until Load runs or ctx is done.
func (r *Registry) Await(ctx context.Context, h Handle) error {
	e := r.entry(h)
	if e == nil {
		return diag.Newf(diag.CodeReference, "", "unknown geometry handle %d", h)
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if e.err != nil {
		return diag.Wrap(diag.CodeReference, e.id, e.err, "geometry failed to load")
	}
	return nil
}

// Wait blocks until every load started by Load has finished and returns the
// combined load failures in registration order. Without a prior Load it
// returns nil.
func (r *Registry) Wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.loaded
	entries := r.entries
	r.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	var errs error
	for _, e := range entries {
		if e.err != nil {
			errs = diag.Append(errs, diag.Wrap(diag.CodeReference, e.id, e.err, "geometry failed to load"))
		}
	}
	return errs
}
