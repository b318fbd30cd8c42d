package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/registry"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	filterFlags
	Limit  int
	Offset int
}

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Flows []flow.Flow `json:"flows"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List flows matching a filter",
		Long: `List flows ordered by name, then id.

Filters combine with AND: --id and --name match any of the given values,
--tag requires every given tag. Without filters every flow is listed.

Examples:
  flowreg list
  flowreg list --tag db --tag nightly
  flowreg list --limit 10 --offset 20 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	opts.filterFlags.register(cmd)
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of flows (0 = no limit)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "number of flows to skip")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	filter, err := opts.filter()
	if err != nil {
		return formatter.FailOn("failed to list flows", err)
	}

	s, err := openSession(ctx, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer func() { err = s.finish(err) }()

	var flows []flow.Flow
	err = s.store.WithTx(ctx, func(tx registry.Tx) error {
		var listErr error
		flows, listErr = s.registry.List(ctx, tx, registry.ListOptions{
			Filter: filter,
			Limit:  opts.Limit,
			Offset: opts.Offset,
		})
		return listErr
	})
	if err != nil {
		return formatter.FailOn("failed to list flows", err)
	}
	formatter.VerboseLog("Listed %d flow(s)", len(flows))

	if opts.Format == "json" {
		return formatter.Success(ListResult{Flows: flows})
	}
	writeFlowTable(formatter.Writer, flows)
	return nil
}
