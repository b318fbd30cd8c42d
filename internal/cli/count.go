package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flowreg/internal/registry"
)

// CountOptions holds flags for the count command.
type CountOptions struct {
	*RootOptions
	filterFlags
}

// CountResult is the JSON payload of the count command.
type CountResult struct {
	Count int `json:"count"`
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count flows matching a filter",
		Long: `Count flows matching the same filters list accepts.

Examples:
  flowreg count
  flowreg count --tag db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, cmd)
		},
	}

	opts.filterFlags.register(cmd)

	return cmd
}

func runCount(opts *CountOptions, cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd)

	filter, err := opts.filter()
	if err != nil {
		return formatter.FailOn("failed to count flows", err)
	}

	s, err := openSession(ctx, opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer func() { err = s.finish(err) }()

	var n int
	err = s.store.WithTx(ctx, func(tx registry.Tx) error {
		var countErr error
		n, countErr = s.registry.Count(ctx, tx, filter)
		return countErr
	})
	if err != nil {
		return formatter.FailOn("failed to count flows", err)
	}

	if opts.Format == "json" {
		return formatter.Success(CountResult{Count: n})
	}
	fmt.Fprintln(formatter.Writer, n)
	return nil
}
