package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/prism/internal/ir"
)

// Load reads a scene description from a single .cue file, or from a
// directory whose .cue files form one package.
func Load(path string) (*ir.Description, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scene description: %w", err)
	}

	cfg := &load.Config{}
	var args []string
	if info.IsDir() {
		cfg.Dir = path
		args = []string{"."}
	} else {
		cfg.Dir = filepath.Dir(path)
		args = []string{"./" + filepath.Base(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, fmt.Errorf("scene description %s: no CUE instances loaded", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err, "")
	}

	d, err := Compile(cuecontext.New().BuildInstance(inst))
	if err != nil {
		return nil, err
	}
	d.Source = path
	return d, nil
}

// CompileString compiles CUE source text; filename is used in positions.
func CompileString(src, filename string) (*ir.Description, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	d, err := Compile(v)
	if err != nil {
		return nil, err
	}
	d.Source = filename
	return d, nil
}
