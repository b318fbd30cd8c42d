package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/registry"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Name string
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one flow by id or name",
		Long: `Show one flow, looked up by id or, with --name, by name.

Exits with status 1 when no such flow exists.

Examples:
  flowreg get 01920c5e-7d4a-7b2c-9d1e-3f4a5b6c7d8e
  flowreg get --name etl-nightly --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return runGet(opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "look up by name instead of id")

	return cmd
}

func runGet(opts *GetOptions, rawID string, cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	if (rawID == "") == (opts.Name == "") {
		return formatter.Fail(ErrCodeInvalidInput, ExitCommandError, "exactly one of <id> or --name is required", nil)
	}

	var id uuid.UUID
	if rawID != "" {
		id, err = parseID(rawID)
		if err != nil {
			return formatter.FailOn("failed to read flow", err)
		}
	}

	s, err := openSession(ctx, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer func() { err = s.finish(err) }()

	var (
		found flow.Flow
		ok    bool
	)
	err = s.store.WithTx(ctx, func(tx registry.Tx) error {
		var readErr error
		if rawID != "" {
			found, ok, readErr = s.registry.Read(ctx, tx, id)
		} else {
			found, ok, readErr = s.registry.ReadByName(ctx, tx, opts.Name)
		}
		return readErr
	})
	if err != nil {
		return formatter.FailOn("failed to read flow", err)
	}

	if !ok {
		key := fmt.Sprintf("id %s", id)
		if rawID == "" {
			key = fmt.Sprintf("name %q", flow.Normalize(opts.Name))
		}
		return formatter.Fail(ErrCodeNotFound, ExitFailure, "no flow with "+key, nil)
	}

	if opts.Format == "json" {
		return formatter.Success(found)
	}
	writeFlow(formatter.Writer, found)
	return nil
}
