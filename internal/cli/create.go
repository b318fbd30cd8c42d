package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/registry"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Tags []string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a new flow",
		Long: `Register a new flow under a unique name.

The name and tags are trimmed and Unicode-normalised. Creating a flow
whose name is already registered fails and leaves the existing flow
untouched.

Examples:
  flowreg create etl-nightly --tag db --tag nightly
  flowreg create report --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Tags, "tag", "t", nil, "tag to attach (repeatable)")

	return cmd
}

func runCreate(opts *CreateOptions, name string, cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := openSession(ctx, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer func() { err = s.finish(err) }()

	var created flow.Flow
	err = s.store.WithTx(ctx, func(tx registry.Tx) error {
		var createErr error
		created, createErr = s.registry.Create(ctx, tx, flow.Flow{Name: name, Tags: opts.Tags})
		return createErr
	})
	if err != nil {
		return formatter.FailOn("failed to create flow", err)
	}

	if opts.Format == "json" {
		return formatter.Success(created)
	}
	fmt.Fprintf(formatter.Writer, "Created flow %s (%s)\n", created.Name, created.ID)
	return nil
}
