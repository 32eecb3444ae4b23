package cmd

import (
	"fmt"
	"log/slog"

	"github.com/kamusis/medclass/internal/batch"
	"github.com/spf13/cobra"
)

var (
	flagBatchMinScore float64
	flagBatchWorkers  int
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Fill a spreadsheet of device names with their best catalog match",
	Long: `Read device names from the first column of an .xlsx or .csv file, search
each one, and write the matched name and code into the second and third
columns when the score reaches --min-score. The file is overwritten in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().Float64Var(&flagBatchMinScore, "min-score", batch.DefaultMinScore, "Lowest score written back (default min_score from config)")
	batchCmd.Flags().IntVar(&flagBatchWorkers, "workers", 0, "Concurrent searches (default workers from config, else CPU count)")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	minScore := resolveMinScore(cmd.Flags().Changed("min-score"), flagBatchMinScore, cfg.MinScore)
	workers := flagBatchWorkers
	if workers <= 0 {
		workers = cfg.Workers
	}

	eng, err := openEngine(cfg, false)
	if err != nil {
		return err
	}

	printSection("medclass batch")
	rep, err := batch.UpdateFile(args[0], eng, batch.Options{
		MinScore:    minScore,
		MinQueryLen: cfg.MinQueryLen,
		Workers:     workers,
		Logger:      slog.Default(),
	})
	if err != nil {
		return err
	}

	printOK("", fmt.Sprintf("%d of %d row(s) updated in %s", rep.Updated, rep.Rows, args[0]))
	if rep.BelowThreshold > 0 {
		printWarn("", fmt.Sprintf("%d row(s) matched below %.2f, left unchanged", rep.BelowThreshold, minScore))
	}
	if rep.NoResult > 0 {
		printMiss("", fmt.Sprintf("%d row(s) had no match", rep.NoResult))
	}
	if rep.Skipped > 0 {
		printSkip("", fmt.Sprintf("%d row(s) blank or shorter than %d characters", rep.Skipped, cfg.MinQueryLen))
	}
	return nil
}
