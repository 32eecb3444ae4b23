package search

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kamusis/medclass/internal/catalog"
	"github.com/kamusis/medclass/internal/search/index"
	"github.com/kamusis/medclass/internal/segment"
)

// ModelDir is the vector model directory inside the cache dir.
const ModelDir = "model"

// Config locates the catalog and the caches.
type Config struct {
	CatalogPath string
	// CacheDir holds the catalog snapshot and the vector model. Empty disables
	// both caches.
	CacheDir string
	// Force re-reads the catalog source, replacing the snapshot, and refits the
	// vector model. An unreadable source is then an error, not a fallback.
	Force bool
}

// Engine answers fuzzy and semantic queries over the catalog.
//
// All methods are safe for concurrent use. Queries read an immutable state;
// Refresh builds a new state and swaps it in, so in-flight queries finish
// against the state they started with.
type Engine struct {
	cfg       Config
	tok       segment.Tokenizer
	logger    *slog.Logger
	cacheSize int

	refreshMu sync.Mutex
	state     atomic.Pointer[state]
}

type state struct {
	catalog *catalog.Catalog
	choices []string // composite indices in catalog order
	lexical *LexicalIndex
	model   *index.Model
	status  index.BuildStatus
	queries *lru.Cache[string, index.SparseVector]
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithTokenizer replaces the default gse segmenter.
func WithTokenizer(tok segment.Tokenizer) Option {
	return func(e *Engine) error {
		if tok == nil {
			return ErrTokenizerRequired
		}
		e.tok = tok
		return nil
	}
}

// WithQueryCacheSize sets how many transformed queries are memoized.
// Zero disables the memo. Default is 256.
func WithQueryCacheSize(n int) Option {
	return func(e *Engine) error {
		if n < 0 {
			return fmt.Errorf("invalid query cache size: %d", n)
		}
		e.cacheSize = n
		return nil
	}
}

// Initialize loads the catalog and the vector model and returns a ready engine.
//
// A catalog that cannot be read degrades to sample data (see UsedFallback).
// Failing to fit or load the vector model is an error; there is no fallback.
func Initialize(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:       cfg,
		logger:    slog.Default(),
		cacheSize: 256,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.tok == nil {
		tok, err := segment.Default()
		if err != nil {
			return nil, err
		}
		e.tok = tok
	}

	st, err := e.build(cfg.Force, nil)
	if err != nil {
		return nil, err
	}
	e.state.Store(st)
	return e, nil
}

// Refresh reloads the catalog and the vector model and publishes them
// atomically. With force, the catalog is re-read from the source, replacing
// the snapshot, and the model is refitted. On error the current state stays
// in place, and so do the caches it was built from; in particular a catalog
// served from real data is never replaced by the sample fallback.
func (e *Engine) Refresh(force bool) error {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	st, err := e.build(force, e.state.Load())
	if err != nil {
		return err
	}
	e.state.Store(st)
	return nil
}

// build loads a fresh state. prev is the state being replaced, if any.
func (e *Engine) build(force bool, prev *state) (*state, error) {
	store := catalog.NewStore(e.cfg.CatalogPath, e.cfg.CacheDir, catalog.WithLogger(e.logger))
	var cat *catalog.Catalog
	if force {
		var err error
		if cat, err = store.Rebuild(); err != nil {
			return nil, fmt.Errorf("cannot rebuild catalog: %w", err)
		}
	} else {
		cat = store.Load()
	}
	if cat.UsedFallback && prev != nil && !prev.catalog.UsedFallback {
		return nil, fmt.Errorf("catalog unavailable, keeping current state: %w", cat.Cause)
	}
	docs := cat.CompositeIndices()

	modelDir := ""
	if e.cfg.CacheDir != "" {
		modelDir = filepath.Join(e.cfg.CacheDir, ModelDir)
	}
	model, status, err := index.LoadOrFit(index.BuildOptions{
		Dir:       modelDir,
		Docs:      docs,
		Tokenizer: e.tok,
		Force:     force,
		Logger:    e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot initialize vector model: %w", err)
	}

	st := &state{
		catalog: cat,
		choices: docs,
		lexical: NewLexicalIndex(cat.Records),
		model:   model,
		status:  status,
	}
	if e.cacheSize > 0 {
		st.queries, err = lru.New[string, index.SparseVector](e.cacheSize)
		if err != nil {
			return nil, err
		}
	}
	return st, nil
}

// FuzzySearch ranks catalog entries by token-set similarity between query and
// each composite index. It returns at most topN results, best first, with
// scores in (0, 1]. Matches are resolved back to records by content key, so
// entries with identical composite indices all resolve to the last of them.
func (e *Engine) FuzzySearch(query string, topN int) []Result {
	st := e.state.Load()
	matches := extractBest(query, st.choices, topN)
	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		rec, ok := st.lexical.Lookup(m.Value)
		if !ok {
			e.logger.Warn("fuzzy match has no lexical entry", "value", m.Value)
			continue
		}
		out = append(out, newResult(rec, float64(m.Score)/100))
	}
	return out
}

// SemanticSearch ranks catalog entries by TF-IDF cosine similarity with query.
// It returns at most topN results with positive scores, ordered by descending
// score and then catalog order.
func (e *Engine) SemanticSearch(query string, topN int) []Result {
	st := e.state.Load()
	scores := st.model.Similarities(st.transform(query))
	idx := topK(scores, topN)
	out := make([]Result, len(idx))
	for i, row := range idx {
		out[i] = newResult(st.catalog.Records[row], scores[row])
	}
	return out
}

func (st *state) transform(query string) index.SparseVector {
	if st.queries == nil {
		return st.model.Transform(query)
	}
	if v, ok := st.queries.Get(query); ok {
		return v
	}
	v := st.model.Transform(query)
	st.queries.Add(query, v)
	return v
}

// UsedFallback reports whether the catalog is the built-in sample data.
func (e *Engine) UsedFallback() bool { return e.state.Load().catalog.UsedFallback }

// Catalog returns the catalog the engine currently serves.
func (e *Engine) Catalog() *catalog.Catalog { return e.state.Load().catalog }

// ModelStatus reports whether the vector model came from the cache or a fresh fit.
func (e *Engine) ModelStatus() index.BuildStatus { return e.state.Load().status }

// Len returns the number of catalog records.
func (e *Engine) Len() int { return len(e.state.Load().catalog.Records) }
