package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/txray/internal/buildinfo"
	"github.com/cleared-dev/txray/internal/categorize"
	"github.com/cleared-dev/txray/internal/config"
	"github.com/cleared-dev/txray/internal/logger"
	"github.com/cleared-dev/txray/internal/metrics"
	"github.com/cleared-dev/txray/internal/store"
)

// app carries state shared by subcommands. Config is loaded lazily so
// init can run before any txray.yaml exists.
type app struct {
	configPath string

	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Recorder
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{log: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:     "txray",
		Short:   "Import, categorize and analyze bank and card transactions",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", config.FileName, "path to txray.yaml")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(a),
		newDetectFormatCommand(),
		newCategorizeCommand(a),
		newMappingsCommand(a),
		newRecurringCommand(a),
		newStatsCommand(a),
		newHistoryCommand(a),
	)

	return rootCmd
}

// load reads txray.yaml (defaults when absent), applies .env and TXRAY_*
// overrides, validates and resolves paths against the config directory.
func (a *app) load(cmd *cobra.Command) error {
	if a.cfg != nil {
		return nil
	}

	cfg := config.Default()
	if _, err := os.Stat(a.configPath); err == nil {
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	baseDir, err := filepath.Abs(filepath.Dir(a.configPath))
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	if err := config.ApplyEnv(cfg, filepath.Join(baseDir, ".env")); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	cfg.Resolve(baseDir)

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	a.metrics = metrics.New()
	cmd.SetContext(logger.WithContext(cmd.Context(), log))
	return nil
}

func (a *app) openStore(cmd *cobra.Command) (*store.Store, error) {
	if err := a.load(cmd); err != nil {
		return nil, err
	}
	st, err := store.Open(a.cfg.Database, a.log, store.WithDedupe(a.cfg.Import.Dedupe))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return st, nil
}

func (a *app) newEngine(ctx context.Context, source categorize.MappingSource) (*categorize.Engine, error) {
	rules := categorize.DefaultRules()
	if a.cfg.Categorize.RulesFile != "" {
		var err error
		if rules, err = categorize.LoadRules(a.cfg.Categorize.RulesFile); err != nil {
			return nil, err
		}
	}
	engine, err := categorize.New(ctx, rules, source, categorize.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	a.log.Debug().Int("rules", len(rules)).Int("learned", engine.LearnedCount()).Msg("categorizer ready")
	return engine, nil
}

// flushMetrics writes the textfile-collector output when configured.
func (a *app) flushMetrics() {
	if a.cfg == nil {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.log.Warn().Err(err).Msg("failed to write metrics textfile")
	}
}
