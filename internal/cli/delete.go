package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flowreg/internal/registry"
)

// DeleteResult is the JSON payload of the delete command.
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a flow by id",
		Long: `Delete the flow with the given id. Its name becomes free for reuse.

Exits with status 1 when no such flow exists.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runDelete(opts *RootOptions, rawID string, cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	formatter := newFormatter(opts, cmd)

	id, err := parseID(rawID)
	if err != nil {
		return formatter.FailOn("failed to delete flow", err)
	}

	s, err := openSession(ctx, opts, formatter)
	if err != nil {
		return err
	}
	defer func() { err = s.finish(err) }()

	var deleted bool
	err = s.store.WithTx(ctx, func(tx registry.Tx) error {
		var deleteErr error
		deleted, deleteErr = s.registry.Delete(ctx, tx, id)
		return deleteErr
	})
	if err != nil {
		return formatter.FailOn("failed to delete flow", err)
	}

	if !deleted {
		return formatter.Fail(ErrCodeNotFound, ExitFailure, fmt.Sprintf("no flow with id %s", id), nil)
	}

	if opts.Format == "json" {
		return formatter.Success(DeleteResult{ID: id.String(), Deleted: true})
	}
	fmt.Fprintf(formatter.Writer, "Deleted flow %s\n", id)
	return nil
}
