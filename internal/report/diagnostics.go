package report

import (
	"fmt"
	"io"

	"github.com/roach88/prism/internal/diag"
	"github.com/roach88/prism/internal/ir"
)

// DiagnosticsSnapshot renders every diagnostic in err. Errors that are not
// diagnostics are rendered with only a message.
func DiagnosticsSnapshot(err error) map[string]any {
	all := diag.All(err)
	list := make([]any, 0, len(all))
	for _, d := range all {
		entry := map[string]any{
			"code":    string(d.Code),
			"entity":  d.Entity,
			"message": d.Message,
		}
		if d.Path != "" {
			entry["path"] = d.Path
		}
		if d.Location != "" {
			entry["location"] = d.Location
		}
		if d.Err != nil {
			entry["cause"] = d.Err.Error()
		}
		list = append(list, entry)
	}
	if len(all) == 0 && err != nil {
		list = append(list, map[string]any{"message": err.Error()})
	}
	return map[string]any{"count": len(list), "diagnostics": list}
}

// WriteDiagnosticsJSON writes the diagnostics in err as canonical JSON.
func WriteDiagnosticsJSON(w io.Writer, err error) error {
	data, mErr := ir.MarshalCanonical(DiagnosticsSnapshot(err))
	if mErr != nil {
		return fmt.Errorf("report: %w", mErr)
	}
	data = append(data, '\n')
	_, wErr := w.Write(data)
	return wErr
}

// WriteDiagnosticsText writes one line per diagnostic, followed by a count.
func WriteDiagnosticsText(w io.Writer, err error) error {
	p := &printer{w: w}
	all := diag.All(err)
	for _, d := range all {
		p.printf("%s\n", d.Error())
	}
	if len(all) == 0 && err != nil {
		p.printf("%s\n", err.Error())
		return p.err
	}
	p.printf("%d problem(s)\n", len(all))
	return p.err
}
