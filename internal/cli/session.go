package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/flowreg/internal/config"
	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/registry"
	"github.com/roach88/flowreg/internal/store"
)

// session is the store and registry a single command runs against.
type session struct {
	opts     *RootOptions
	out      *OutputFormatter
	logger   *slog.Logger
	store    store.Store
	registry *registry.Registry
	gatherer *prometheus.Registry
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// resolveConfig layers the flag overrides over the config file and the
// environment.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, err
	}

	if opts.Backend != "" {
		cfg.Store.Backend = opts.Backend
	}
	if opts.DB != "" {
		cfg.Store.SQLite.Path = opts.DB
	}
	if opts.DSN != "" {
		cfg.Store.Postgres.DSN = opts.DSN
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openSession resolves config, opens the store and builds a registry with
// metrics. Failures are reported through out before returning.
func openSession(ctx context.Context, opts *RootOptions, out *OutputFormatter) (*session, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, out.Fail(ErrCodeConfigFailed, ExitCommandError, "invalid configuration", err)
	}

	logger := cfg.Log.NewLogger(out.GetErrWriter(), opts.Verbose)

	gatherer := prometheus.NewRegistry()
	metrics, err := registry.NewMetrics(gatherer)
	if err != nil {
		return nil, out.Fail(ErrCodeGeneric, ExitCommandError, "register metrics", err)
	}

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, out.Fail(ErrCodeStoreFailed, ExitCommandError, "failed to open store", err)
	}
	out.VerboseLog("Using %s store", cfg.Store.Backend)

	return &session{
		opts:   opts,
		out:    out,
		logger: logger,
		store:  st,
		registry: registry.New(
			registry.WithLogger(logger),
			registry.WithMetrics(metrics),
		),
		gatherer: gatherer,
	}, nil
}

// finish closes the store and writes metrics when requested. err is the
// command's result; a metrics failure only replaces a nil err.
func (s *session) finish(err error) error {
	if closeErr := s.store.Close(); closeErr != nil {
		s.logger.Warn("close store failed", "error", closeErr)
	}

	if s.opts.MetricsOut == "" {
		return err
	}
	if writeErr := prometheus.WriteToTextfile(s.opts.MetricsOut, s.gatherer); writeErr != nil {
		if err != nil {
			s.logger.Warn("write metrics failed", "path", s.opts.MetricsOut, "error", writeErr)
			return err
		}
		return s.out.Fail(ErrCodeWriteFailed, ExitCommandError, "failed to write metrics", writeErr)
	}
	s.out.VerboseLog("Wrote metrics to %s", s.opts.MetricsOut)
	return err
}

// filterFlags are the flow selection flags shared by list and count.
type filterFlags struct {
	IDs   []string
	Names []string
	Tags  []string
}

func (ff *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&ff.IDs, "id", nil, "match flows with one of these ids (repeatable)")
	cmd.Flags().StringArrayVar(&ff.Names, "name", nil, "match flows with one of these names (repeatable)")
	cmd.Flags().StringArrayVar(&ff.Tags, "tag", nil, "match flows carrying all of these tags (repeatable)")
}

func (ff *filterFlags) filter() (flow.Filter, error) {
	var f flow.Filter
	for _, raw := range ff.IDs {
		id, err := parseID(raw)
		if err != nil {
			return flow.Filter{}, err
		}
		f.IDs = append(f.IDs, id)
	}
	f.Names = ff.Names
	f.TagsAll = ff.Tags
	return f, nil
}

// parseID parses a flow id, reporting failures as invalid input.
func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &flow.ValidationError{Field: flow.FieldID, Message: fmt.Sprintf("invalid id %q", raw)}
	}
	return id, nil
}
