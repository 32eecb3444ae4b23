package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kamusis/medclass/internal/catalog"
	"github.com/kamusis/medclass/internal/config"
	"github.com/kamusis/medclass/internal/search"
	"github.com/kamusis/medclass/internal/search/index"
	"github.com/kamusis/medclass/internal/segment"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the config, the catalog source and the caches",
	Long: `Check that medclass is correctly configured and that its caches are usable.
Run this command when results look wrong, or before filing a bug report.`,
	RunE: runDoctor,
}

var doctorFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Delete unusable caches so the next run rebuilds them",
	Long: `Fix detected cache problems.

Currently fixes:
  - Corrupt catalog snapshot: deleted, rebuilt from the source on next run
  - Corrupt or stale vector model: deleted, refitted on next run

Run 'medclass doctor' first to see what will be fixed.`,
	RunE: runDoctorFix,
}

func init() {
	doctorCmd.AddCommand(doctorFixCmd)
	rootCmd.AddCommand(doctorCmd)
}

// cacheReport is the outcome of inspecting the cache directory.
type cacheReport struct {
	snapshotPath string
	modelDir     string
	records      []catalog.Record
	snapshotErr  error // nil when the snapshot decodes
	modelErr     error // nil when the model matches the snapshot
}

func inspectCaches(cfg *config.Config, tok segment.Tokenizer) cacheReport {
	r := cacheReport{
		snapshotPath: catalog.NewStore(cfg.CatalogPath, cfg.CacheDir).SnapshotPath(),
		modelDir:     filepath.Join(cfg.CacheDir, search.ModelDir),
	}
	r.records, r.snapshotErr = catalog.ReadSnapshot(r.snapshotPath)
	if r.snapshotErr == nil {
		docs := (&catalog.Catalog{Records: r.records}).CompositeIndices()
		r.modelErr = index.CheckCache(r.modelDir, docs, tok)
	}
	return r
}

func runDoctor(_ *cobra.Command, _ []string) error {
	allOK := true
	failD := func(format string, args ...any) {
		printErr("", fmt.Sprintf(format, args...))
		allOK = false
	}

	printSection("medclass doctor")
	fmt.Println()

	// ── Check 1: medclass.yaml is valid ──────────────────────────────────────
	fmt.Println("[ medclass.yaml ]")
	cfg, loadErr := loadConfig()
	if loadErr != nil {
		failD("%v", loadErr)
	} else {
		if p, err := config.ConfigPath(); err == nil && flagConfig == "" {
			if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
				printInfo("", "no config file, using defaults (run 'medclass init' to write one)")
			} else {
				printOK("", fmt.Sprintf("valid YAML: %s", p))
			}
		}
		printInfo("", fmt.Sprintf("max_results=%d min_query_len=%d min_score=%.2f", cfg.MaxResults, cfg.MinQueryLen, cfg.MinScore))
	}
	fmt.Println()

	if loadErr != nil {
		fmt.Println("===================")
		return fmt.Errorf("doctor found issues")
	}

	// ── Check 2: catalog source ──────────────────────────────────────────────
	fmt.Println("[ Catalog source ]")
	if recs, err := catalog.ReadSource(cfg.CatalogPath); err != nil {
		failD("cannot read %s: %v", cfg.CatalogPath, err)
		printWarn("", "searches will use the built-in sample data until a snapshot exists")
	} else {
		printOK("", fmt.Sprintf("%d record(s) in %s", len(recs), cfg.CatalogPath))
	}
	fmt.Println()

	tok, tokErr := segment.Default()
	if tokErr != nil {
		failD("cannot load segmentation dictionary: %v", tokErr)
		return fmt.Errorf("doctor found issues")
	}
	rep := inspectCaches(cfg, tok)

	// ── Check 3: catalog snapshot ────────────────────────────────────────────
	fmt.Println("[ Catalog snapshot ]")
	switch {
	case rep.snapshotErr == nil:
		printOK("", fmt.Sprintf("%d record(s) in %s", len(rep.records), rep.snapshotPath))
	case errors.Is(rep.snapshotErr, fs.ErrNotExist):
		printMiss("", fmt.Sprintf("not built yet (run 'medclass index'): %s", rep.snapshotPath))
	default:
		failD("unreadable snapshot: %v (run 'medclass doctor fix')", rep.snapshotErr)
	}
	fmt.Println()

	// ── Check 4: vector model ────────────────────────────────────────────────
	fmt.Println("[ Vector model ]")
	switch {
	case rep.snapshotErr != nil:
		printSkip("", "skipped (no usable catalog snapshot)")
	case rep.modelErr == nil:
		printOK("", fmt.Sprintf("up to date (%s): %s", tok.Name(), rep.modelDir))
	case errors.Is(rep.modelErr, fs.ErrNotExist):
		printMiss("", fmt.Sprintf("not built yet (run 'medclass index'): %s", rep.modelDir))
	case errors.Is(rep.modelErr, index.ErrStaleModel), errors.Is(rep.modelErr, index.ErrTokenizerMismatch):
		printWarn("", fmt.Sprintf("%v (it will be refitted on next run)", rep.modelErr))
	default:
		failD("unreadable model cache: %v (run 'medclass doctor fix')", rep.modelErr)
	}
	fmt.Println()

	// ── Summary ──────────────────────────────────────────────────────────────
	fmt.Println("===================")
	if allOK {
		fmt.Println("✓  All checks passed. medclass is ready to use.")
	} else {
		fmt.Fprintln(os.Stderr, "✗  One or more checks failed. See details above.")
		return fmt.Errorf("doctor found issues")
	}
	return nil
}

func runDoctorFix(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tok, err := segment.Default()
	if err != nil {
		return err
	}

	printSection("medclass doctor fix")
	rep := inspectCaches(cfg, tok)

	var removed, failed int
	remove := func(path string) {
		if err := os.RemoveAll(path); err != nil {
			printErr("", fmt.Sprintf("cannot delete %s: %v", path, err))
			failed++
			return
		}
		printOK("", fmt.Sprintf("deleted %s", path))
		removed++
	}

	fmt.Println("\n[ Caches ]")
	if rep.snapshotErr != nil && !errors.Is(rep.snapshotErr, fs.ErrNotExist) {
		remove(rep.snapshotPath)
		// The model was fitted from the broken snapshot.
		remove(rep.modelDir)
	} else if rep.modelErr != nil && !errors.Is(rep.modelErr, fs.ErrNotExist) {
		remove(rep.modelDir)
	}

	fmt.Println()
	if failed > 0 {
		return fmt.Errorf("%d cache path(s) could not be deleted", failed)
	}
	if removed == 0 {
		printOK("", "caches are healthy, nothing to fix")
		return nil
	}
	fmt.Println("  ✓  Run 'medclass index' to rebuild the caches.")
	return nil
}
