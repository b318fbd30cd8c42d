package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/manifest"
	"github.com/roach88/flowreg/internal/registry"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	File         string
	SkipExisting bool
}

// ApplyResult is the JSON payload of the apply command.
type ApplyResult struct {
	Created []flow.Flow `json:"created"`
	Skipped []string    `json:"skipped"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Register the flows defined in a manifest",
		Long: `Register every flow defined in a YAML or CUE manifest.

Each flow is created in its own transaction, in manifest order. A flow
whose name is already registered stops the run, unless --skip-existing
is set, in which case it is reported and skipped. Flows created before
the failure stay registered.

Examples:
  flowreg apply -f flows.yaml
  flowreg apply -f flows.cue --skip-existing --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "manifest file (.yaml, .yml or .cue) (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().BoolVar(&opts.SkipExisting, "skip-existing", false, "skip flows whose name is already registered")

	return cmd
}

func runApply(opts *ApplyOptions, cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	defs, err := manifest.Load(opts.File)
	if err != nil {
		return formatter.Fail(ErrCodeManifestFailed, ExitCommandError, "failed to load manifest", err)
	}
	formatter.VerboseLog("Loaded %d flow(s) from %s", len(defs), opts.File)

	s, err := openSession(ctx, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer func() { err = s.finish(err) }()

	result := ApplyResult{Created: []flow.Flow{}, Skipped: []string{}}
	for _, def := range defs {
		var created flow.Flow
		createErr := s.store.WithTx(ctx, func(tx registry.Tx) error {
			var txErr error
			created, txErr = s.registry.Create(ctx, tx, def)
			return txErr
		})

		switch {
		case createErr == nil:
			result.Created = append(result.Created, created)
			formatter.VerboseLog("Created %s (%s)", created.Name, created.ID)
		case opts.SkipExisting && flow.IsConflict(createErr):
			result.Skipped = append(result.Skipped, def.Name)
			formatter.VerboseLog("Skipped %s: already registered", def.Name)
		default:
			return outputApplyFailure(formatter, result, fmt.Sprintf("failed to apply flow %q", def.Name), createErr)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	writeApplyResult(formatter, result)
	fmt.Fprintf(formatter.Writer, "Applied %d flow(s), skipped %d\n", len(result.Created), len(result.Skipped))
	return nil
}

func writeApplyResult(formatter *OutputFormatter, result ApplyResult) {
	for _, f := range result.Created {
		fmt.Fprintf(formatter.Writer, "Created flow %s (%s)\n", f.Name, f.ID)
	}
	for _, name := range result.Skipped {
		fmt.Fprintf(formatter.Writer, "Skipped flow %s (already registered)\n", name)
	}
}

// outputApplyFailure reports a failed flow together with the flows already
// committed before it, which stay registered.
func outputApplyFailure(formatter *OutputFormatter, result ApplyResult, message string, err error) error {
	code, exitCode := classify(err)

	if formatter.Format != "json" {
		writeApplyResult(formatter, result)
		return formatter.Fail(code, exitCode, message, err)
	}

	response := CLIResponse{
		Status: "error",
		Data:   result,
		Error: &CLIError{
			Code:    code,
			Message: message + ": " + err.Error(),
		},
	}
	if encErr := json.NewEncoder(formatter.Writer).Encode(response); encErr != nil {
		return WrapExitError(ExitCommandError, "failed to encode output", encErr)
	}
	return WrapExitError(exitCode, code+": "+message, err)
}
