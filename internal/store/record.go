package store

import (
	"fmt"
	"time"

	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/pipeline"
)

// BuildRecord is a stored build.
type BuildRecord struct {
	ID              string
	CreatedAt       time.Time
	Source          string
	DescriptionHash string
	SceneHash       string
	ResolverVersion string
	SchemaVersion   string
	ModelCount      int
	AnimatedCount   int
	Models          []ModelRecord
}

// ModelRecord is a stored model.
type ModelRecord struct {
	BuildID    string
	Index      int
	GeometryID string
	MaterialID string
	Binding    string
	Group      string
	Path       []PathStep
	Animated   bool

	// Transform is the canonical JSON of the model's transform: the baked
	// matrix when static, the stage list when animated.
	Transform string
}

// PathStep is one (sub_group_id, instance_id) step of an instance path.
type PathStep struct {
	SubGroupID string
	InstanceID string
}

// PathString renders the path the way binding.Path does.
func (m ModelRecord) PathString() string {
	s := ""
	for i, st := range m.Path {
		if i > 0 {
			s += "/"
		}
		s += "(" + st.SubGroupID + "," + st.InstanceID + ")"
	}
	return s
}

// Record converts a resolved build into its stored form.
func Record(b *pipeline.Build) (BuildRecord, error) {
	rec := BuildRecord{
		ID:              b.ID,
		CreatedAt:       b.CreatedAt,
		Source:          b.Source,
		DescriptionHash: b.DescriptionHash,
		SceneHash:       b.SceneHash,
		ResolverVersion: ir.ResolverVersion,
		SchemaVersion:   ir.SchemaVersion,
		ModelCount:      b.Scene.Len(),
		AnimatedCount:   b.Scene.Animated(),
	}

	encoded, _ := b.Scene.Encode()["models"].([]any)
	for i, m := range b.Scene.Models() {
		var tr any
		if i < len(encoded) {
			if em, ok := encoded[i].(map[string]any); ok {
				tr = em["transform"]
			}
		}
		data, err := ir.MarshalCanonical(tr)
		if err != nil {
			return BuildRecord{}, fmt.Errorf("record model %d: %w", i, err)
		}

		mr := ModelRecord{
			BuildID:    b.ID,
			Index:      m.Index,
			GeometryID: m.GeometryID,
			MaterialID: m.MaterialID,
			Binding:    m.Binding,
			Group:      m.Group,
			Animated:   m.Animated(),
			Transform:  string(data),
		}
		for _, st := range m.Path {
			mr.Path = append(mr.Path, PathStep{SubGroupID: st.SubGroupID, InstanceID: st.InstanceID})
		}
		rec.Models = append(rec.Models, mr)
	}
	return rec, nil
}
