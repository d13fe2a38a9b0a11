package registry

import (
	"sync"

	"github.com/roach88/prism/internal/diag"
)

// MaterialHandle is an opaque reference to a registered material. The zero
// value refers to nothing.
type MaterialHandle uint32

// Valid reports whether h was issued by a material table.
func (h MaterialHandle) Valid() bool { return h != 0 }

// Material is a material definition. Params are opaque to the resolver.
type Material struct {
	ID     string
	Type   string
	Params map[string]any
}

// Materials maps material ids to handles. It is safe for concurrent use.
type Materials struct {
	mu   sync.RWMutex
	ids  map[string]MaterialHandle
	list []Material
}

// NewMaterials creates an empty material table.
func NewMaterials() *Materials {
	return &Materials{ids: make(map[string]MaterialHandle)}
}

// Register adds m. A duplicate id is a UNIQUENESS_VIOLATION.
func (t *Materials) Register(m Material) (MaterialHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.ids[m.ID]; dup {
		return 0, diag.New(diag.CodeUniqueness, m.ID, "material id is not unique")
	}
	t.list = append(t.list, m)
	h := MaterialHandle(len(t.list))
	t.ids[m.ID] = h
	return h, nil
}

// Lookup returns the handle registered for id, or a REFERENCE_ERROR.
func (t *Materials) Lookup(id string) (MaterialHandle, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.ids[id]
	if !ok {
		return 0, diag.New(diag.CodeReference, id, "unknown material id")
	}
	return h, nil
}

// Get returns the material behind h.
func (t *Materials) Get(h MaterialHandle) (Material, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if h == 0 || int(h) > len(t.list) {
		return Material{}, false
	}
	return t.list[h-1], true
}

// Len returns the number of registered materials.
func (t *Materials) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.list)
}
