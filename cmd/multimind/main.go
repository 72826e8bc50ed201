package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dheena017/multimind/pkg/config"
	"github.com/dheena017/multimind/pkg/engine"
	"github.com/dheena017/multimind/pkg/history"
	"github.com/dheena017/multimind/pkg/ledger"
	"github.com/dheena017/multimind/pkg/panel"
)

var (
	configFile string
	verbose    bool
	logger     = zap.NewNop()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "multimind",
		Short: "Ask a panel of LLMs and get one synthesized answer",
		Long: `Multimind routes each query to a panel of models chosen by query
complexity and past performance, sends it to them in parallel and merges the
replies into a single answer with a confidence score, a consensus level and
the sources it drew on.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			l, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to panel config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(ledgerCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(archiveCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig loads configuration and resolves model aliases in the panel.
func loadConfig() (*config.Config, *config.ModelAliases, error) {
	cfg, err := config.LoadWithPanelFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	aliases, err := config.LoadAliasesWithFallback(cfg.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load model aliases: %w", err)
	}
	cfg.Panel = aliases.ResolvePanel(cfg.Panel)
	for _, err := range aliases.ValidatePanelConfig(cfg.Panel) {
		logger.Warn("panel member not recognized", zap.Error(err))
	}
	return cfg, aliases, nil
}

// app holds the long-lived pieces a command needs.
type app struct {
	cfg     *config.Config
	aliases *config.ModelAliases
	engine  *engine.Engine
	history *history.Store
}

func openApp(budget float64) (*app, error) {
	cfg, aliases, err := loadConfig()
	if err != nil {
		return nil, err
	}

	adapters, err := engine.BuildAdapters(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create adapters: %w", err)
	}
	if len(adapters) == 0 {
		logger.Warn("no API keys configured")
	}

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	dispatcher := panel.NewDispatcher(adapters, cfg.Panel,
		panel.WithLogger(logger),
		panel.WithBudget(budget))

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithLedger(led),
		engine.WithHistory(store),
	}
	if cfg.Autosave {
		opts = append(opts, engine.WithAutosave(cfg.LedgerPath))
	}

	return &app{
		cfg:     cfg,
		aliases: aliases,
		engine:  engine.New(dispatcher, opts...),
		history: store,
	}, nil
}

func (a *app) Close() {
	if err := a.history.Close(); err != nil {
		logger.Warn("closing history failed", zap.Error(err))
	}
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
