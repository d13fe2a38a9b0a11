package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/prism/internal/compiler"
	"github.com/roach88/prism/internal/pipeline"
	"github.com/roach88/prism/internal/testutil"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// resolveRecords resolves src once per build and returns the records.
// Build ids are build-0001, build-0002, ...; creation times step by one
// second from testutil.Epoch.
func resolveRecords(t *testing.T, src string, builds int) []BuildRecord {
	t.Helper()
	d, err := compiler.CompileString(src, "scene.cue")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	p := pipeline.New(
		pipeline.WithBuildIDs(testutil.NewSequenceIDGenerator("")),
		pipeline.WithClock(testutil.NewStepClock()),
	)

	var out []BuildRecord
	for i := 0; i < builds; i++ {
		b, err := p.Resolve(context.Background(), d)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		rec, err := Record(b)
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		out = append(out, rec)
	}
	return out
}
