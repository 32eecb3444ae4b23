package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kamusis/medclass/internal/catalog"
	"github.com/kamusis/medclass/internal/config"
	"github.com/kamusis/medclass/internal/importer"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [catalog-file]",
	Short: "Write the default config and optionally import a catalog source",
	Long: `Initialize ~/.medclass/.

  medclass init              write medclass.yaml and the .env template
  medclass init 22.csv       also copy the catalog into ~/.medclass/data/
                             and point catalog_path at it`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, args []string) error {
	// ── 1. Resolve ~/.medclass directory ─────────────────────────────────────
	home, err := config.HomeDir()
	if err != nil {
		return err
	}
	cfgPath := flagConfig
	if cfgPath == "" {
		if cfgPath, err = config.ConfigPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", home, err)
	}
	printOK("", fmt.Sprintf("medclass directory ready: %s", home))

	// ── 2. Write medclass.yaml if missing ────────────────────────────────────
	_, statErr := os.Stat(cfgPath)
	if errors.Is(statErr, fs.ErrNotExist) {
		cfg, err := config.DefaultConfig()
		if err != nil {
			return err
		}
		if err := config.Save(cfgPath, cfg); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("Config written: %s", cfgPath))
	} else {
		printSkip("", fmt.Sprintf("Config already exists: %s", cfgPath))
	}

	// ── 3. .env template ─────────────────────────────────────────────────────
	if err := config.EnsureDotEnvTemplate(); err != nil {
		return err
	}
	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return fmt.Errorf("cannot create cache dir %s: %w", cfg.CacheDir, err)
	}
	printOK("", fmt.Sprintf("Cache directory ready: %s", cfg.CacheDir))

	// ── 4. Import the catalog source ─────────────────────────────────────────
	if len(args) == 1 {
		if err := importCatalog(cfgPath, cfg, args[0], filepath.Join(home, "data")); err != nil {
			return err
		}
	}

	fmt.Println("\n✓  medclass init complete. Run 'medclass index' to build the caches.")
	return nil
}

func importCatalog(cfgPath string, cfg *config.Config, src, dataDir string) error {
	res, err := importer.ImportFile(src, dataDir)
	if err != nil {
		return err
	}
	switch {
	case !res.Copied:
		printSkip("", fmt.Sprintf("identical catalog already imported: %s", res.Path))
	case res.Replaced != "":
		printOK("", fmt.Sprintf("catalog imported: %s (previous kept at %s)", res.Path, res.Replaced))
	default:
		printOK("", fmt.Sprintf("catalog imported: %s", res.Path))
	}

	if cfg.CatalogPath != res.Path {
		if err := config.Update(cfgPath, func(c *config.Config) { c.CatalogPath = res.Path }); err != nil {
			return err
		}
		cfg.CatalogPath = res.Path
		printInfo("", fmt.Sprintf("catalog_path set to %s", res.Path))
	}

	// The snapshot is never invalidated automatically.
	snap := catalog.NewStore(cfg.CatalogPath, cfg.CacheDir).SnapshotPath()
	if _, err := os.Stat(snap); err == nil && res.Copied {
		printWarn("", "a catalog snapshot already exists; run 'medclass index --force' to rebuild it")
	}
	return nil
}
