package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/config"
	"github.com/roach88/prism/internal/logger"
	"github.com/roach88/prism/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	StorePath  string
	BuildID    string
	GeometryID string
	MaterialID string
	Group      string
	SubGroupID string
	InstanceID string
	Animated   string // "" | "true" | "false"
	ListBuilds bool
}

// BuildSummary is one stored build in inspect output.
type BuildSummary struct {
	ID              string `json:"id"`
	CreatedAt       string `json:"created_at"`
	Source          string `json:"source"`
	DescriptionHash string `json:"description_hash"`
	SceneHash       string `json:"scene_hash"`
	ResolverVersion string `json:"resolver_version"`
	Models          int    `json:"models"`
	Animated        int    `json:"animated"`
}

// ModelSummary is one stored model in inspect output.
type ModelSummary struct {
	Index     int    `json:"index"`
	Geometry  string `json:"geometry"`
	Material  string `json:"material"`
	Binding   string `json:"binding,omitempty"`
	Group     string `json:"group,omitempty"`
	Path      string `json:"path,omitempty"`
	Animated  bool   `json:"animated"`
	Transform string `json:"transform"`
}

// InspectResult holds the inspect output for one build.
type InspectResult struct {
	Build  BuildSummary   `json:"build"`
	Models []ModelSummary `json:"models"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Query resolved builds stored by resolve --store",
		Long: `Query the models of a stored build.

Without --build the most recent build is inspected. Filters combine with
AND; --sub-group and --instance match any step of a model's instance path.

Examples:
  prism inspect --store ./prism.db --builds
  prism inspect --store ./prism.db --geometry trunk
  prism inspect --store ./prism.db --instance oak --animated=false --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.StorePath, "store", "", "SQLite database written by resolve --store (default from config)")
	cmd.Flags().StringVar(&opts.BuildID, "build", "", "build id (default: most recent build)")
	cmd.Flags().StringVar(&opts.GeometryID, "geometry", "", "filter by geometry id")
	cmd.Flags().StringVar(&opts.MaterialID, "material", "", "filter by material id")
	cmd.Flags().StringVar(&opts.Group, "group", "", "filter by master group")
	cmd.Flags().StringVar(&opts.SubGroupID, "sub-group", "", "filter by a sub group on the instance path")
	cmd.Flags().StringVar(&opts.InstanceID, "instance", "", "filter by an instance id on the instance path")
	cmd.Flags().StringVar(&opts.Animated, "animated", "", "filter animated (true) or static (false) models")
	cmd.Flags().BoolVar(&opts.ListBuilds, "builds", false, "list stored builds instead of models")

	return cmd
}

func runInspect(ctx context.Context, opts *InspectOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	cfg, err := opts.setup(cmd, config.Overrides{StorePath: opts.StorePath})
	if err != nil {
		return err
	}
	defer logger.Sync()

	filter, err := opts.filter()
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}

	if cfg.Store.Path == "" {
		msg := "no store: pass --store or set store.path in the config"
		_ = formatter.Error(ErrCodeCommand, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if _, err := os.Stat(cfg.Store.Path); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("store %s not found", cfg.Store.Path), nil)
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer st.Close()

	if opts.ListBuilds {
		return listBuilds(ctx, st, formatter)
	}

	var build store.BuildRecord
	if opts.BuildID != "" {
		build, err = st.ReadBuild(ctx, opts.BuildID)
	} else {
		build, err = st.LatestBuild(ctx)
	}
	if errors.Is(err, store.ErrNotFound) {
		msg := "no builds stored"
		if opts.BuildID != "" {
			msg = fmt.Sprintf("build %s not found", opts.BuildID)
		}
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read build", err)
	}
	formatter.VerboseLog("Inspecting build %s", build.ID)

	filter.BuildID = build.ID
	models, err := st.QueryModels(ctx, filter)
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to query models", err)
	}

	result := InspectResult{Build: summarizeBuild(build), Models: make([]ModelSummary, len(models))}
	for i, m := range models {
		result.Models[i] = ModelSummary{
			Index:     m.Index,
			Geometry:  m.GeometryID,
			Material:  m.MaterialID,
			Binding:   m.Binding,
			Group:     m.Group,
			Path:      m.PathString(),
			Animated:  m.Animated,
			Transform: m.Transform,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return writeInspectText(formatter.Writer, result)
}

// filter converts the flags into a store filter.
func (o *InspectOptions) filter() (store.ModelFilter, error) {
	f := store.ModelFilter{
		GeometryID: o.GeometryID,
		MaterialID: o.MaterialID,
		Group:      o.Group,
		SubGroupID: o.SubGroupID,
		InstanceID: o.InstanceID,
	}
	switch o.Animated {
	case "":
	case "true":
		v := true
		f.Animated = &v
	case "false":
		v := false
		f.Animated = &v
	default:
		return f, fmt.Errorf("--animated must be true or false, got %q", o.Animated)
	}
	return f, nil
}

func listBuilds(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	builds, err := st.ListBuilds(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeCommand, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list builds", err)
	}

	out := make([]BuildSummary, len(builds))
	for i, b := range builds {
		out[i] = summarizeBuild(b)
	}
	if formatter.Format == "json" {
		return formatter.Success(out)
	}

	for _, b := range out {
		fmt.Fprintf(formatter.Writer, "%s %s models=%d animated=%d source=%s\n",
			b.ID, b.CreatedAt, b.Models, b.Animated, b.Source)
	}
	_, err = fmt.Fprintf(formatter.Writer, "%d build(s)\n", len(out))
	return err
}

func summarizeBuild(b store.BuildRecord) BuildSummary {
	return BuildSummary{
		ID:              b.ID,
		CreatedAt:       b.CreatedAt.UTC().Format(time.RFC3339),
		Source:          b.Source,
		DescriptionHash: b.DescriptionHash,
		SceneHash:       b.SceneHash,
		ResolverVersion: b.ResolverVersion,
		Models:          b.ModelCount,
		Animated:        b.AnimatedCount,
	}
}

func writeInspectText(w io.Writer, r InspectResult) error {
	fmt.Fprintf(w, "build %s (%s) source=%s\n", r.Build.ID, r.Build.CreatedAt, r.Build.Source)
	for _, m := range r.Models {
		fmt.Fprintf(w, "#%d %s material=%s", m.Index, m.Geometry, m.Material)
		if m.Binding != "" {
			fmt.Fprintf(w, " binding=%s", m.Binding)
		}
		if m.Group != "" {
			fmt.Fprintf(w, " group=%s", m.Group)
		}
		if m.Path != "" {
			fmt.Fprintf(w, " path=%s", m.Path)
		}
		if m.Animated {
			fmt.Fprint(w, " animated")
		}
		fmt.Fprintln(w)
	}
	_, err := fmt.Fprintf(w, "%d model(s)\n", len(r.Models))
	return err
}
