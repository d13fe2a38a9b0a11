package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/prism/internal/diag"
)

// position renders p as "file:line:col", or "" when p is unknown.
func position(p token.Pos) string {
	if !p.IsValid() {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename(), p.Line(), p.Column())
}

// formatCUEError converts every error in a CUE error list into a
// SCHEMA_ERROR diagnostic carrying its source position.
func formatCUEError(err error, entity string) error {
	if err == nil {
		return nil
	}

	list := errors.Errors(err)
	if len(list) == 0 {
		return diag.Wrap(diag.CodeSchema, entity, err, "invalid CUE")
	}

	var out error
	for _, e := range list {
		format, args := e.Msg()
		d := diag.New(diag.CodeSchema, entity, fmt.Sprintf(format, args...))
		if path := e.Path(); len(path) > 0 {
			d = d.At(strings.Join(path, "."))
		}
		if positions := errors.Positions(e); len(positions) > 0 {
			d = d.Located(position(positions[0]))
		}
		out = diag.Append(out, d)
	}
	return out
}
