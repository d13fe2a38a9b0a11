// Package report renders resolved builds and build diagnostics for people
// (text) and tools (canonical JSON).
//
// Both renderings are deterministic: the same build sampled at the same
// times always produces byte-identical output, so reports can be compared
// against golden files.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/pipeline"
	"github.com/roach88/prism/internal/xform"
)

// Options controls what a report contains.
type Options struct {
	// Times are the sample times at which every model's world transform is
	// reported.
	Times []float64

	// Fingerprints adds the description and scene hashes.
	Fingerprints bool
}

// Snapshot renders b as a canonical-marshalable map.
func Snapshot(b *pipeline.Build, opts Options) map[string]any {
	sc := b.Scene
	times := make([]any, len(opts.Times))
	for i, t := range opts.Times {
		times[i] = t
	}

	models := make([]any, sc.Len())
	for i, m := range sc.Models() {
		samples := make([]any, len(opts.Times))
		for j, t := range opts.Times {
			samples[j] = map[string]any{"time": t, "matrix": xform.Rows(m.Transform(t))}
		}
		models[i] = map[string]any{
			"index":    m.Index,
			"geometry": m.GeometryID,
			"material": m.MaterialID,
			"binding":  m.Binding,
			"group":    m.Group,
			"path":     m.Path.String(),
			"animated": m.Animated(),
			"samples":  samples,
		}
	}

	out := map[string]any{
		"build":          b.ID,
		"source":         b.Source,
		"model_count":    sc.Len(),
		"animated_count": sc.Animated(),
		"times":          times,
		"models":         models,
	}
	if start, end, ok := sc.Interval(); ok {
		out["interval"] = []any{start, end}
	}
	if opts.Fingerprints {
		out["description_hash"] = b.DescriptionHash
		out["scene_hash"] = b.SceneHash
	}
	return out
}

// WriteJSON writes the snapshot of b as one line of canonical JSON.
func WriteJSON(w io.Writer, b *pipeline.Build, opts Options) error {
	data, err := ir.MarshalCanonical(Snapshot(b, opts))
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteText writes a human-readable summary of b: a header, then one line
// per model followed by its origin at each sample time.
func WriteText(w io.Writer, b *pipeline.Build, opts Options) error {
	sc := b.Scene
	p := &printer{w: w}

	p.printf("build %s\n", b.ID)
	if b.Source != "" {
		p.printf("source %s\n", b.Source)
	}
	if opts.Fingerprints {
		p.printf("description_hash %s\n", b.DescriptionHash)
		p.printf("scene_hash %s\n", b.SceneHash)
	}
	p.printf("models %d (%d animated)\n", sc.Len(), sc.Animated())
	if start, end, ok := sc.Interval(); ok {
		p.printf("interval [%s, %s]\n", num(start), num(end))
	}

	if sc.Len() > 0 {
		p.printf("\n")
	}
	for _, m := range sc.Models() {
		p.printf("#%d %s material=%s", m.Index, m.GeometryID, m.MaterialID)
		if m.Binding != "" {
			p.printf(" binding=%s", m.Binding)
		}
		if m.Group != "" {
			p.printf(" group=%s", m.Group)
		}
		if len(m.Path) > 0 {
			p.printf(" path=%s", m.Path)
		}
		if m.Animated() {
			p.printf(" animated")
		}
		p.printf("\n")

		for _, t := range opts.Times {
			o := origin(m.Transform(t))
			p.printf("  t=%s origin=(%s, %s, %s)\n", num(t), num(o[0]), num(o[1]), num(o[2]))
		}
	}
	return p.err
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func origin(m mgl64.Mat4) mgl64.Vec3 {
	return m.Col(3).Vec3()
}

// num formats x compactly; negative zero prints as 0.
func num(x float64) string {
	if x == 0 {
		return "0"
	}
	return strconv.FormatFloat(x, 'g', -1, 64)
}
