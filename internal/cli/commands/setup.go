package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/zillowetl/internal/cli/config"
	"github.com/leapstack-labs/zillowetl/internal/objstore"
	"github.com/leapstack-labs/zillowetl/internal/pipeline"
	"github.com/leapstack-labs/zillowetl/internal/state"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Objects  objstore.Store
	State    *state.SQLiteStore
	Pipeline *pipeline.Pipeline
	Runner   *pipeline.Runner
}

// NewCommandContext opens the object store and state store and builds the
// pipeline from the loaded configuration.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := config.GetLogger(cmd.Context())

	objects, err := objstore.Open(cfg.ObjectStore(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open object store: %w", err)
	}

	pcfg := cfg.PipelineConfig()
	pcfg.Logger = logger
	p, err := pipeline.New(pcfg, objects)
	if err != nil {
		return nil, nil, err
	}

	st, err := openState(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warn("failed to close state store", slog.String("error", err.Error()))
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Objects:  objects,
		State:    st,
		Pipeline: p,
		Runner:   pipeline.NewRunner(p, st, cfg.Environment),
	}, cleanup, nil
}

// Helper functions shared across commands

// getConfig returns the configuration loaded by the root command.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfg := config.GetConfig(cmd.Context()); cfg != nil {
		return cfg, nil
	}
	return nil, errors.New("configuration not loaded")
}

func openState(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	st := state.NewSQLiteStore(logger)
	if err := st.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := st.InitSchema(); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize state store: %w", err)
	}
	return st, nil
}
