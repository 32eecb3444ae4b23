package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kamusis/medclass/internal/config"
	"github.com/kamusis/medclass/internal/search"
	"github.com/spf13/cobra"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:          "medclass",
	Short:        "Medclass — classify medical-device names against a regulatory catalog",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `Medclass matches free-text device names to catalog entries and reports
their classification code and level. The normalized catalog and the vector
model are cached under ~/.medclass/cache/.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.medclass/medclass.yaml)")
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the effective config and installs the process logger at
// the configured level.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w\nRun 'medclass init' to write a default one.", err)
	}
	slog.SetDefault(newLogger(cfg.LogLevel))
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// openEngine initializes the search engine from cfg.
func openEngine(cfg *config.Config, force bool) (*search.Engine, error) {
	eng, err := search.Initialize(search.Config{
		CatalogPath: cfg.CatalogPath,
		CacheDir:    cfg.CacheDir,
		Force:       force,
	},
		search.WithLogger(slog.Default()),
		search.WithQueryCacheSize(cfg.QueryCacheSize),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize search engine: %w", err)
	}
	if eng.UsedFallback() {
		printWarn("catalog", fmt.Sprintf("using built-in sample data: %v", eng.Catalog().Cause))
	}
	return eng, nil
}
