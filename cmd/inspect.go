package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kamusis/medclass/internal/catalog"
	"github.com/kamusis/medclass/internal/search"
	"github.com/kamusis/medclass/internal/segment"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <code>",
	Short: "Show a catalog entry and how it is indexed",
	Long: `Display every catalog record with the given classification code, including
its composite index, the tokens the segmenter produces for it and its
lexical content key.

Example:
  medclass inspect IVD-001`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat := catalog.NewStore(cfg.CatalogPath, cfg.CacheDir, catalog.WithLogger(slog.Default())).Load()
	if cat.UsedFallback {
		printWarn("catalog", fmt.Sprintf("using built-in sample data: %v", cat.Cause))
	}

	matches := findByCode(cat.Records, args[0])
	if len(matches) == 0 {
		return fmt.Errorf("no catalog entry with code %q (%d record(s) searched)", args[0], len(cat.Records))
	}
	tok, err := segment.Default()
	if err != nil {
		return err
	}

	for _, r := range matches {
		printSection(r.Name)
		fmt.Printf("  Code:        %s\n", r.Code)
		fmt.Printf("  Level:       %d\n", r.Level)
		fmt.Printf("  Purpose:     %s\n", emptyAsNA(r.Purpose))
		fmt.Printf("  Usage:       %s\n", emptyAsNA(r.Usage))
		fmt.Printf("  Index:       %s\n", emptyAsNA(r.CompositeIndex()))
		fmt.Printf("  Tokens:      %s\n", strings.Join(tok.Tokenize(r.CompositeIndex()), " | "))
		fmt.Printf("  Content key: %016x\n", search.ContentKey(r.CompositeIndex()))
	}
	return nil
}

// findByCode returns the records whose code equals code, ignoring case.
func findByCode(records []catalog.Record, code string) []catalog.Record {
	var out []catalog.Record
	for _, r := range records {
		if strings.EqualFold(r.Code, strings.TrimSpace(code)) {
			out = append(out, r)
		}
	}
	return out
}
