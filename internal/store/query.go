package store

import (
	"fmt"
	"strings"
)

// ModelFilter selects stored models. Empty fields match everything; set
// fields are combined with AND.
type ModelFilter struct {
	BuildID    string
	GeometryID string
	MaterialID string
	Group      string

	// SubGroupID and InstanceID match a step anywhere on the model's
	// instance path.
	SubGroupID string
	InstanceID string

	// Animated, when set, matches only animated (true) or static (false)
	// models.
	Animated *bool
}

// predicate is one WHERE clause fragment with its parameters.
type predicate interface {
	compile() (string, []any)
}

// equals compiles to "column = ?". column is always a constant of this
// package; values are never interpolated.
type equals struct {
	column string
	value  any
}

func (p equals) compile() (string, []any) {
	return p.column + " = ?", []any{p.value}
}

// onPath matches models with a path step whose column equals value.
type onPath struct {
	column string
	value  string
}

func (p onPath) compile() (string, []any) {
	return fmt.Sprintf(
		"EXISTS (SELECT 1 FROM model_path p WHERE p.build_id = m.build_id AND p.model_idx = m.idx AND p.%s = ?)",
		p.column,
	), []any{p.value}
}

func (f ModelFilter) predicates() []predicate {
	var ps []predicate
	if f.BuildID != "" {
		ps = append(ps, equals{"m.build_id", f.BuildID})
	}
	if f.GeometryID != "" {
		ps = append(ps, equals{"m.geometry_id", f.GeometryID})
	}
	if f.MaterialID != "" {
		ps = append(ps, equals{"m.material_id", f.MaterialID})
	}
	if f.Group != "" {
		ps = append(ps, equals{"m.group_label", f.Group})
	}
	if f.SubGroupID != "" {
		ps = append(ps, onPath{"sub_group_id", f.SubGroupID})
	}
	if f.InstanceID != "" {
		ps = append(ps, onPath{"instance_id", f.InstanceID})
	}
	if f.Animated != nil {
		ps = append(ps, equals{"m.animated", *f.Animated})
	}
	return ps
}

// compileModelQuery builds the parameterized SELECT for f.
//
// MANDATORY: the ORDER BY is always present so results are deterministic:
// builds oldest first, then emission order.
func compileModelQuery(f ModelFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT m.build_id, m.idx, m.geometry_id, m.material_id, m.binding, m.group_label, m.animated, m.transform
		FROM models m
		JOIN builds b ON b.id = m.build_id`)

	var params []any
	var where []string
	for _, p := range f.predicates() {
		sql, args := p.compile()
		where = append(where, sql)
		params = append(params, args...)
	}
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	b.WriteString(" ORDER BY b.created_at ASC, m.build_id COLLATE BINARY ASC, m.idx ASC")
	return b.String(), params
}
