// Package diag defines the structured diagnostics produced while resolving a
// scene description.
//
// Every failure surfaced by the resolver is a *Diagnostic carrying the
// offending entity, the path that reached it and the violated invariant as a
// Code. Independent diagnostics are combined into a single error with
// multierr so callers can report every problem at once:
//
//	var errs error
//	errs = diag.Append(errs, diag.New(diag.CodeReference, "car", "unknown geometry"))
//	for _, d := range diag.All(errs) {
//		fmt.Println(d)
//	}
package diag

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Code identifies the invariant a diagnostic reports.
type Code string

const (
	// CodeSchema indicates a malformed declaration (missing field, wrong type).
	CodeSchema Code = "SCHEMA_ERROR"

	// CodeReference indicates an unknown geometry, sub_group or material id,
	// or a geometry that failed to load.
	CodeReference Code = "REFERENCE_ERROR"

	// CodeUniqueness indicates a duplicate id, a duplicate direct geometry in
	// one group, or a duplicate sibling (sub_group_id, instance_id) pair.
	CodeUniqueness Code = "UNIQUENESS_VIOLATION"

	// CodeTransform indicates a non-invertible matrix, illegal animated
	// nesting or a reversed animation interval.
	CodeTransform Code = "TRANSFORM_VALIDATION_ERROR"

	// CodeCycle indicates a group that reaches itself through sub-group edges.
	CodeCycle Code = "CYCLE_ERROR"

	// CodeCycleDepth indicates multi-level instancing.
	CodeCycleDepth Code = "CYCLE_DEPTH_ERROR"

	// CodeBindingAmbiguity indicates two equally specific selectors match.
	CodeBindingAmbiguity Code = "BINDING_AMBIGUITY_ERROR"

	// CodeUnboundMaterial indicates a placement no selector matches.
	CodeUnboundMaterial Code = "UNBOUND_MATERIAL_ERROR"
)

// Diagnostic is a single structured build failure.
type Diagnostic struct {
	// Code identifies the violated invariant.
	Code Code `json:"code"`

	// Entity is the declared id (or index label) of the offending entity.
	Entity string `json:"entity"`

	// Path locates the entity: a field path inside a declaration
	// ("members[2].transform") or an instance path ("master/(trees,a)").
	Path string `json:"path,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Location is a source position "file:line:col" when known.
	Location string `json:"location,omitempty"`

	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

// New creates a diagnostic for entity.
func New(code Code, entity, message string) *Diagnostic {
	return &Diagnostic{Code: code, Entity: entity, Message: message}
}

// Newf creates a diagnostic with a formatted message.
func Newf(code Code, entity, format string, args ...any) *Diagnostic {
	return New(code, entity, fmt.Sprintf(format, args...))
}

// Wrap creates a diagnostic that wraps cause.
func Wrap(code Code, entity string, cause error, message string) *Diagnostic {
	return &Diagnostic{Code: code, Entity: entity, Message: message, Err: cause}
}

// At returns a copy of d with Path set.
func (d *Diagnostic) At(path string) *Diagnostic {
	c := *d
	c.Path = path
	return &c
}

// Located returns a copy of d with Location set.
func (d *Diagnostic) Located(location string) *Diagnostic {
	c := *d
	c.Location = location
	return &c
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	var b strings.Builder
	if d.Location != "" {
		b.WriteString(d.Location)
		b.WriteString(": ")
	}
	b.WriteString(string(d.Code))
	b.WriteString(": ")
	if d.Entity != "" {
		fmt.Fprintf(&b, "%q", d.Entity)
		if d.Path != "" {
			fmt.Fprintf(&b, " at %s", d.Path)
		}
		b.WriteString(": ")
	}
	b.WriteString(d.Message)
	if d.Err != nil {
		fmt.Fprintf(&b, ": %v", d.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// Append adds d to the accumulated error set. A nil d is ignored.
func Append(errs error, d *Diagnostic) error {
	if d == nil {
		return errs
	}
	return multierr.Append(errs, d)
}

// Combine merges several accumulated error sets.
func Combine(errs ...error) error {
	return multierr.Combine(errs...)
}

// All flattens err into its diagnostics, in the order they were appended.
// Errors that are not diagnostics are skipped.
func All(err error) []*Diagnostic {
	var out []*Diagnostic
	for _, e := range multierr.Errors(err) {
		var d *Diagnostic
		if errors.As(e, &d) {
			out = append(out, d)
		}
	}
	return out
}

// Is reports whether err contains a diagnostic with the given code.
func Is(err error, code Code) bool {
	for _, d := range All(err) {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Count returns the number of diagnostics in err. Errors that are not
// diagnostics are not counted.
func Count(err error) int {
	return len(All(err))
}
