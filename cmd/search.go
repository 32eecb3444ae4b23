package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kamusis/medclass/internal/search"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

const (
	modeSemantic = "semantic"
	modeFuzzy    = "fuzzy"
)

var (
	flagSearchMode     string
	flagSearchK        int
	flagSearchMinScore float64
	flagSearchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find the catalog entries that best match a device name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&flagSearchMode, "mode", modeSemantic, "Matching strategy: semantic or fuzzy")
	searchCmd.Flags().IntVarP(&flagSearchK, "top", "k", 0, "Number of results to show (default max_results from config)")
	searchCmd.Flags().Float64Var(&flagSearchMinScore, "min-score", 0, "Hide results scoring below this value (default min_score from config)")
	searchCmd.Flags().BoolVar(&flagSearchJSON, "json", false, "Print results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(args, " "))
	if err := validateQuery(query, cfg.MinQueryLen); err != nil {
		return err
	}
	if flagSearchMode != modeSemantic && flagSearchMode != modeFuzzy {
		return fmt.Errorf("unknown search mode %q (want %s or %s)", flagSearchMode, modeSemantic, modeFuzzy)
	}
	k := flagSearchK
	if k <= 0 {
		k = cfg.MaxResults
	}

	eng, err := openEngine(cfg, false)
	if err != nil {
		return err
	}

	start := time.Now()
	results := runQuery(eng, flagSearchMode, query, k)
	elapsed := time.Since(start)
	results = search.AboveScore(results, resolveMinScore(cmd.Flags().Changed("min-score"), flagSearchMinScore, cfg.MinScore))

	if flagSearchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printSearchResults(os.Stdout, query, results, elapsed)
	return nil
}

// resolveMinScore returns the explicit flag value when it was set, including
// zero, and the configured min_score otherwise.
func resolveMinScore(flagChanged bool, flagValue, configured float64) float64 {
	if flagChanged {
		return flagValue
	}
	return configured
}

// validateQuery rejects queries shorter than minLen characters.
func validateQuery(query string, minLen int) error {
	if n := utf8.RuneCountInString(query); n == 0 || n < minLen {
		return fmt.Errorf("query %q is too short: at least %d characters required", query, minLen)
	}
	return nil
}

func runQuery(eng *search.Engine, mode, query string, k int) []search.Result {
	if mode == modeFuzzy {
		return eng.FuzzySearch(query, k)
	}
	return eng.SemanticSearch(query, k)
}

func printSearchResults(out io.Writer, query string, results []search.Result, elapsed time.Duration) {
	fmt.Fprintf(out, "\nmedclass search %q\n\n", query)
	fmt.Fprintf(out, "Results (%d found in %s):\n", len(results), elapsed.Round(time.Millisecond))
	if len(results) == 0 {
		return
	}

	// Catalog names are mostly CJK, so pad by display width, not rune count.
	nameW, codeW := 0, 0
	for _, r := range results {
		nameW = max(nameW, runewidth.StringWidth(r.Name))
		codeW = max(codeW, runewidth.StringWidth(r.Code))
	}
	for i, r := range results {
		fmt.Fprintf(out, "  %2d.  [%.3f]  %s  %s  level %d\n", i+1, r.Score,
			runewidth.FillRight(r.Name, nameW), runewidth.FillRight(r.Code, codeW), r.Level)
		if detail := strings.TrimSpace(r.Purpose + " " + r.Usage); detail != "" {
			fmt.Fprintf(out, "       - %s\n", detail)
		}
	}
}
