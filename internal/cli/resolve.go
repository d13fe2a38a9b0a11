package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/prism/internal/compiler"
	"github.com/roach88/prism/internal/config"
	"github.com/roach88/prism/internal/diag"
	"github.com/roach88/prism/internal/ir"
	"github.com/roach88/prism/internal/logger"
	"github.com/roach88/prism/internal/pipeline"
	"github.com/roach88/prism/internal/registry"
	"github.com/roach88/prism/internal/report"
	"github.com/roach88/prism/internal/store"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Times        []float64
	StorePath    string
	MeshRoot     string
	Workers      int
	Fingerprints bool
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <scene>",
		Short: "Resolve a scene and report its models",
		Long: `Resolve a CUE scene description (a .cue file or a package directory).

Every model is reported with its geometry, material, binding and instance
path, followed by its world-space origin at each sample time. With --store
the resolved build is also written to a SQLite database for later
inspection.

Examples:
  prism resolve scene.cue
  prism resolve ./scenes/forest --time 0 --time 0.5 --time 1
  prism resolve scene.cue --store ./prism.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64SliceVarP(&opts.Times, "time", "t", nil, "sample time (repeatable; default from config)")
	cmd.Flags().StringVar(&opts.StorePath, "store", "", "write the resolved build to this SQLite database")
	cmd.Flags().StringVar(&opts.MeshRoot, "mesh-root", "", "directory relative mesh dirs are resolved against")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent mesh loads (default from config)")
	cmd.Flags().BoolVar(&opts.Fingerprints, "fingerprints", false, "include description and scene hashes")

	return cmd
}

func runResolve(ctx context.Context, opts *ResolveOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.setup(cmd, config.Overrides{
		StorePath:   opts.StorePath,
		LoadWorkers: opts.Workers,
		MeshRoot:    opts.MeshRoot,
		SampleTimes: opts.Times,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	b, err := resolveScene(ctx, cfg, path, formatter)
	if err != nil {
		return err
	}

	if cfg.Store.Path != "" {
		if err := persist(ctx, cfg.Store.Path, b); err != nil {
			_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to store build", err)
		}
		formatter.VerboseLog("Stored build %s in %s", b.ID, cfg.Store.Path)
	}

	ropts := report.Options{Times: cfg.Resolve.SampleTimes, Fingerprints: opts.Fingerprints}
	if formatter.Format == "json" {
		data, err := ir.MarshalCanonical(report.Snapshot(b, ropts))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to encode report", err)
		}
		return formatter.Success(rawJSON(data))
	}
	return report.WriteText(formatter.Writer, b, ropts)
}

// resolveScene loads and resolves the scene at path. Failures are written
// through formatter; the returned error carries the exit code.
func resolveScene(ctx context.Context, cfg *config.Config, path string, formatter *OutputFormatter) (*pipeline.Build, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	d, err := compiler.Load(path)
	if err != nil {
		return nil, failure(formatter, err)
	}
	formatter.VerboseLog("Loaded %s", path)

	p := pipeline.New(
		pipeline.WithLoader(registry.FileLoader{Root: cfg.Resolve.MeshRoot}),
		pipeline.WithWorkers(cfg.Resolve.LoadWorkers),
	)
	b, err := p.Resolve(ctx, d)
	if err != nil {
		return nil, failure(formatter, err)
	}
	formatter.VerboseLog("Resolved %d model(s)", b.Scene.Len())
	return b, nil
}

// failure reports err: diagnostics mean an invalid scene (exit 1), anything
// else is a command error (exit 2).
func failure(formatter *OutputFormatter, err error) error {
	if diag.Count(err) > 0 {
		return formatter.Diagnostics(err)
	}
	code := ErrCodeCommand
	if errors.Is(err, os.ErrNotExist) {
		code = ErrCodeNotFound
	}
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, "failed to resolve scene", err)
}

func persist(ctx context.Context, path string, b *pipeline.Build) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := store.Record(b)
	if err != nil {
		return err
	}
	if err := st.WriteBuild(ctx, rec); err != nil {
		return err
	}
	logger.Named("cli").Info("build stored",
		zap.String("build", b.ID),
		zap.String("store", path),
	)
	return nil
}

// rawJSON embeds already-encoded JSON in a CLIResponse.
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return nil, fmt.Errorf("empty JSON payload")
	}
	return r, nil
}
