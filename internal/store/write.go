package store

import (
	"context"
	"fmt"
)

// WriteBuild inserts a build with its models and instance paths in one
// transaction. Uses ON CONFLICT(id) DO NOTHING for idempotency: writing the
// same build id twice keeps the first write.
func (s *Store) WriteBuild(ctx context.Context, b BuildRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write build: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO builds
		(id, created_at, source, description_hash, scene_hash, resolver_version, schema_version, model_count, animated_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		b.ID,
		b.CreatedAt.UTC().Format(timeLayout),
		b.Source,
		b.DescriptionHash,
		b.SceneHash,
		b.ResolverVersion,
		b.SchemaVersion,
		len(b.Models),
		b.AnimatedCount,
	)
	if err != nil {
		return fmt.Errorf("write build: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("write build: %w", err)
	} else if n == 0 {
		return nil
	}

	modelStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO models
		(build_id, idx, geometry_id, material_id, binding, group_label, path, animated, transform)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write build: prepare models: %w", err)
	}
	defer modelStmt.Close()

	pathStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO model_path
		(build_id, model_idx, depth, sub_group_id, instance_id)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write build: prepare paths: %w", err)
	}
	defer pathStmt.Close()

	for _, m := range b.Models {
		if _, err := modelStmt.ExecContext(ctx,
			b.ID, m.Index, m.GeometryID, m.MaterialID, m.Binding, m.Group, m.PathString(), m.Animated, m.Transform,
		); err != nil {
			return fmt.Errorf("write model %d: %w", m.Index, err)
		}
		for depth, st := range m.Path {
			if _, err := pathStmt.ExecContext(ctx, b.ID, m.Index, depth, st.SubGroupID, st.InstanceID); err != nil {
				return fmt.Errorf("write model %d path: %w", m.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write build: commit: %w", err)
	}
	return nil
}

// DeleteBuild removes a build and its models. Deleting an unknown id is a
// no-op.
func (s *Store) DeleteBuild(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM builds WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete build: %w", err)
	}
	return nil
}
