package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var flagIndexForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or validate the catalog snapshot and the vector model",
	Long: `Load the catalog and the vector model, building whichever cache is missing
or stale. With --force the snapshot is re-read from the catalog source and the
model is refitted; when the source cannot be read, both caches are left as
they were.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagIndexForce, "force", false, "Rebuild both caches from the catalog source")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	printSection("medclass index")
	start := time.Now()
	eng, err := openEngine(cfg, flagIndexForce)
	if err != nil {
		return err
	}

	cat := eng.Catalog()
	printOK("catalog", fmt.Sprintf("%d record(s) from %s", eng.Len(), cat.Origin))
	printOK("model", fmt.Sprintf("%s in %s", eng.ModelStatus(), time.Since(start).Round(time.Millisecond)))
	if eng.UsedFallback() {
		return fmt.Errorf("catalog source unusable, caches hold sample data only")
	}
	return nil
}
