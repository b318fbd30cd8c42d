package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config is the path of a YAML config file. Empty uses defaults and
	// the environment only.
	Config string

	// Store overrides applied on top of the config file and environment.
	Backend string
	DB      string
	DSN     string

	// MetricsOut, when set, receives the registry metrics in Prometheus
	// text format after the command finishes.
	MetricsOut string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the flowreg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "flowreg",
		Short: "flowreg - workflow definition registry",
		Long: `Register, look up and list named workflow definitions.

Flows are stored in SQLite (default), PostgreSQL or memory. Names are
unique; tags are free-form labels used to filter listings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.Config, "config", "", "path to YAML config file")
	pf.StringVar(&opts.Backend, "backend", "", "store backend (sqlite|postgres|memory)")
	pf.StringVar(&opts.DB, "db", "", "path to SQLite database")
	pf.StringVar(&opts.DSN, "dsn", "", "PostgreSQL connection string")
	pf.StringVar(&opts.MetricsOut, "metrics-out", "", "write registry metrics to this file")

	// Add subcommands
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
