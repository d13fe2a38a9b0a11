package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/prism/internal/config"
	"github.com/roach88/prism/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	LogFile    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the prism CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "prism",
		Short: "prism - scene graph resolution",
		Long: `Resolve declarative scene descriptions into flat, renderer-ready scenes.

A scene declares geometries, materials, reusable sub groups, master groups
and material bindings in CUE. prism validates the whole description,
expands the instancing hierarchy, binds a material to every placement and
reports the resulting models.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./prism.yaml, then the user config dir)")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "also write JSON logs to this file")

	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))

	return cmd
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// setup loads the configuration with the command's flag overrides and
// initializes logging. Console logs go to the command's stderr.
func (o *RootOptions) setup(cmd *cobra.Command, ov config.Overrides) (*config.Config, error) {
	ov.Verbose = o.Verbose
	ov.LogFile = o.LogFile

	cfg, err := config.Load(o.ConfigPath, ov)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
		fileCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		fileCfg.MaxBackups = cfg.Logging.MaxBackups
		fileCfg.MaxAgeDays = cfg.Logging.MaxAgeDays
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, cmd.ErrOrStderr()); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize logging", err)
	}
	return cfg, nil
}
