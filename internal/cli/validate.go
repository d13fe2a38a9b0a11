package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/config"
	"github.com/roach88/prism/internal/logger"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool   `json:"valid"`
	Models    int    `json:"models"`
	Animated  int    `json:"animated"`
	SceneHash string `json:"scene_hash"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var meshRoot string

	cmd := &cobra.Command{
		Use:   "validate <scene>",
		Short: "Validate a scene without reporting or storing it",
		Long: `Validate a CUE scene description.

Runs the full resolution (schema, references, uniqueness, transforms,
cycles and material bindings) and reports every problem found. Nothing is
written. Exits 1 when the scene is invalid.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, meshRoot, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&meshRoot, "mesh-root", "", "directory relative mesh dirs are resolved against")

	return cmd
}

func runValidate(opts *RootOptions, meshRoot, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.setup(cmd, config.Overrides{MeshRoot: meshRoot})
	if err != nil {
		return err
	}
	defer logger.Sync()

	b, err := resolveScene(cmd.Context(), cfg, path, formatter)
	if err != nil {
		return err
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid:     true,
			Models:    b.Scene.Len(),
			Animated:  b.Scene.Animated(),
			SceneHash: b.SceneHash,
		})
	}
	_, err = fmt.Fprintf(formatter.Writer, "✓ Scene valid: %d model(s), %d animated\n", b.Scene.Len(), b.Scene.Animated())
	return err
}
