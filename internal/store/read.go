package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a build does not exist.
var ErrNotFound = errors.New("build not found")

// timeLayout has a fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const buildColumns = `id, created_at, source, description_hash, scene_hash, resolver_version, schema_version, model_count, animated_count`

// ReadBuild returns the build with id and all of its models in emission
// order. Returns ErrNotFound if no such build exists.
func (s *Store) ReadBuild(ctx context.Context, id string) (BuildRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+buildColumns+` FROM builds WHERE id = ?`, id)
	b, err := scanBuild(row)
	if err != nil {
		return BuildRecord{}, err
	}

	models, err := s.QueryModels(ctx, ModelFilter{BuildID: id})
	if err != nil {
		return BuildRecord{}, err
	}
	b.Models = models
	return b, nil
}

// LatestBuild returns the most recently created build, without models.
// Returns ErrNotFound if the store is empty.
func (s *Store) LatestBuild(ctx context.Context) (BuildRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+buildColumns+` FROM builds
		ORDER BY created_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`)
	return scanBuild(row)
}

// ListBuilds returns every build, oldest first, without models.
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListBuilds(ctx context.Context) ([]BuildRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+buildColumns+` FROM builds
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	builds := []BuildRecord{}
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return builds, nil
}

// QueryModels returns the models matching f with their instance paths.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) QueryModels(ctx context.Context, f ModelFilter) ([]ModelRecord, error) {
	query, params := compileModelQuery(f)
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	defer rows.Close()

	models := []ModelRecord{}
	for rows.Next() {
		var m ModelRecord
		if err := rows.Scan(&m.BuildID, &m.Index, &m.GeometryID, &m.MaterialID, &m.Binding, &m.Group, &m.Animated, &m.Transform); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate models: %w", err)
	}
	rows.Close()

	for i := range models {
		path, err := s.readPath(ctx, models[i].BuildID, models[i].Index)
		if err != nil {
			return nil, err
		}
		models[i].Path = path
	}
	return models, nil
}

func (s *Store) readPath(ctx context.Context, buildID string, idx int) ([]PathStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sub_group_id, instance_id FROM model_path
		WHERE build_id = ? AND model_idx = ?
		ORDER BY depth ASC
	`, buildID, idx)
	if err != nil {
		return nil, fmt.Errorf("query model path: %w", err)
	}
	defer rows.Close()

	var path []PathStep
	for rows.Next() {
		var st PathStep
		if err := rows.Scan(&st.SubGroupID, &st.InstanceID); err != nil {
			return nil, fmt.Errorf("scan model path: %w", err)
		}
		path = append(path, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model path: %w", err)
	}
	return path, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(row scanner) (BuildRecord, error) {
	var (
		b       BuildRecord
		created string
	)
	err := row.Scan(&b.ID, &created, &b.Source, &b.DescriptionHash, &b.SceneHash,
		&b.ResolverVersion, &b.SchemaVersion, &b.ModelCount, &b.AnimatedCount)
	if errors.Is(err, sql.ErrNoRows) {
		return BuildRecord{}, ErrNotFound
	}
	if err != nil {
		return BuildRecord{}, fmt.Errorf("scan build: %w", err)
	}
	if b.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return BuildRecord{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	return b, nil
}
