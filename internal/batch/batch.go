// Package batch fills a spreadsheet of device names with their best catalog
// match. Column A holds the queries; the winning name and code go to columns
// B and C of the same row, and the file is overwritten in place.
package batch

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/kamusis/medclass/internal/search"
	"github.com/panjf2000/ants/v2"
)

// DefaultMinScore is the acceptance threshold for writing a match.
const DefaultMinScore = 0.3

// Searcher is the part of the engine the updater needs.
type Searcher interface {
	SemanticSearch(query string, topN int) []search.Result
}

// Options controls Update.
type Options struct {
	// MinScore is the lowest score that is written back, applied as given:
	// zero accepts any match. Callers normally pass DefaultMinScore.
	MinScore float64
	// MinQueryLen rejects shorter queries (in characters) without searching.
	MinQueryLen int
	// Workers bounds concurrent searches. Zero means runtime.NumCPU().
	Workers int
	Logger  *slog.Logger
}

// Report summarizes an Update run.
type Report struct {
	Rows           int
	Updated        int
	BelowThreshold int
	NoResult       int
	Skipped        int // blank or too short
}

// UpdateFile runs Update over the spreadsheet at path (.xlsx or .csv) and
// saves it in place.
func UpdateFile(path string, s Searcher, opts Options) (*Report, error) {
	sh, err := openSheet(path)
	if err != nil {
		return nil, err
	}
	defer sh.Close()

	rep, err := Update(sh, s, opts)
	if err != nil {
		return nil, err
	}
	if err := sh.Save(); err != nil {
		return nil, fmt.Errorf("cannot save %s: %w", path, err)
	}
	return rep, nil
}

// Update searches every row of sh and writes accepted matches.
func Update(sh Sheet, s Searcher, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	minScore := opts.MinScore
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	rows, err := sh.Rows()
	if err != nil {
		return nil, err
	}
	rep := &Report{Rows: len(rows)}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("cannot create worker pool: %w", err)
	}
	defer pool.Release()

	best := make([]*search.Result, len(rows))
	searched := make([]bool, len(rows))
	var wg sync.WaitGroup
	for i, row := range rows {
		query := ""
		if len(row) > 0 {
			query = strings.TrimSpace(row[0])
		}
		if query == "" || utf8.RuneCountInString(query) < opts.MinQueryLen {
			logger.Info("row skipped, query too short", "row", i, "query", query)
			rep.Skipped++
			continue
		}
		searched[i] = true
		i := i
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if res := s.SemanticSearch(query, 1); len(res) > 0 {
				best[i] = &res[0]
			}
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("cannot submit row %d: %w", i, err)
		}
	}
	wg.Wait()

	for i, r := range best {
		if !searched[i] {
			continue
		}
		if r == nil {
			logger.Info("no result", "row", i, "query", rows[i][0])
			rep.NoResult++
			continue
		}
		if r.Score < minScore {
			logger.Info("match below threshold, not written", "row", i, "query", rows[i][0], "score", r.Score)
			rep.BelowThreshold++
			continue
		}
		if err := sh.Set(i, 1, r.Name); err != nil {
			return nil, err
		}
		if err := sh.Set(i, 2, r.Code); err != nil {
			return nil, err
		}
		logger.Info("row updated", "row", i, "name", r.Name, "code", r.Code, "score", r.Score)
		rep.Updated++
	}
	return rep, nil
}
