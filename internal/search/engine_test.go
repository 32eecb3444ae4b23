package search

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kamusis/medclass/internal/catalog"
	"github.com/kamusis/medclass/internal/search/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogHeader = "name,code,level,sku_ex,use_to\n"

// writeCatalog writes a CSV catalog and returns an engine config for it.
func writeCatalog(t *testing.T, rows ...string) Config {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "22.csv")
	body := catalogHeader + strings.Join(rows, "\n")
	require.NoError(t, os.WriteFile(src, []byte(body), 0o644))
	return Config{CatalogPath: src, CacheDir: filepath.Join(dir, "cache")}
}

func TestSemanticSearch_SingleRecord(t *testing.T) {
	cfg := writeCatalog(t, "血糖检测仪,IVD-001,3,用于血糖水平检测,")
	e, err := Initialize(cfg)
	require.NoError(t, err)
	require.False(t, e.UsedFallback())

	res := e.SemanticSearch("血糖仪", 1)
	require.Len(t, res, 1)
	assert.Equal(t, "血糖检测仪", res[0].Name)
	assert.Equal(t, "IVD-001", res[0].Code)
	assert.Equal(t, 3, res[0].Level)
	assert.Greater(t, res[0].Score, 0.0)
	assert.LessOrEqual(t, res[0].Score, 1.0)
}

func TestInitialize_EmptyCatalogIsFatal(t *testing.T) {
	cfg := writeCatalog(t)
	_, err := Initialize(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, index.ErrEmptyCorpus)
}

func TestFuzzySearch_DuplicateCompositeIndexLastWins(t *testing.T) {
	cfg := writeCatalog(t,
		"引流导管,DEV-002,2,用于术后引流,",
		"医用口罩,PRO-005,1,用于个人防护,",
		"引流袋,DEV-009,2,用于术后,引流",
	)
	e, err := Initialize(cfg)
	require.NoError(t, err)

	res := e.FuzzySearch("术后引流", 5)
	require.NotEmpty(t, res)
	assert.Equal(t, "引流袋", res[0].Name)
	assert.Equal(t, "DEV-009", res[0].Code)
	for _, r := range res {
		assert.NotEqual(t, "引流导管", r.Name, "earlier duplicate must be shadowed")
	}
	assert.InDelta(t, 0.8, res[0].Score, 1e-9)
}

func TestSearch_FallbackCatalogProperties(t *testing.T) {
	dir := t.TempDir()
	e, err := Initialize(Config{
		CatalogPath: filepath.Join(dir, "missing.csv"),
		CacheDir:    filepath.Join(dir, "cache"),
	})
	require.NoError(t, err)
	require.True(t, e.UsedFallback())
	require.Equal(t, catalog.OriginSample, e.Catalog().Origin)
	require.Equal(t, 5, e.Len())

	queries := []string{"血糖检测", "术后引流管", "医学影像", "心血管支架", "口罩", "完全无关的词", "x"}
	for _, q := range queries {
		for _, n := range []int{1, 2, 3, 10} {
			sem := e.SemanticSearch(q, n)
			fz := e.FuzzySearch(q, n)
			assert.LessOrEqual(t, len(sem), n)
			assert.LessOrEqual(t, len(fz), n)
			for i, r := range sem {
				assert.GreaterOrEqual(t, r.Score, 0.0)
				assert.LessOrEqual(t, r.Score, 1.0)
				if i > 0 {
					assert.GreaterOrEqual(t, sem[i-1].Score, r.Score, "semantic scores must not increase")
				}
			}
			for _, r := range fz {
				assert.GreaterOrEqual(t, r.Score, 0.0)
				assert.LessOrEqual(t, r.Score, 1.0)
			}
			assert.Equal(t, sem, e.SemanticSearch(q, n), "semantic search must be idempotent")
		}
	}

	top := e.SemanticSearch("用于血糖水平检测", 3)
	require.NotEmpty(t, top)
	assert.Equal(t, "IVD-001", top[0].Code)
	assert.InDelta(t, 1.0, top[0].Score, 1e-9)
}

func TestSearch_NoMatchesIsEmpty(t *testing.T) {
	cfg := writeCatalog(t, "心脏支架,IMP-004,3,用于心血管手术,")
	e, err := Initialize(cfg)
	require.NoError(t, err)

	assert.Empty(t, e.SemanticSearch("zzzz", 5))
	assert.Empty(t, e.FuzzySearch("zzzz", 5))
	assert.Empty(t, e.SemanticSearch("", 5))
	assert.Empty(t, e.SemanticSearch("心血管", 0))
}

func TestInitialize_ReusesCaches(t *testing.T) {
	cfg := writeCatalog(t,
		"血糖检测仪,IVD-001,3,用于血糖水平检测,",
		"超声诊断仪,DEV-003,3,用于医学影像诊断,",
	)
	first, err := Initialize(cfg)
	require.NoError(t, err)
	assert.Equal(t, index.StatusFitted, first.ModelStatus())
	assert.Equal(t, catalog.OriginSource, first.Catalog().Origin)

	second, err := Initialize(cfg)
	require.NoError(t, err)
	assert.Equal(t, index.StatusLoaded, second.ModelStatus())
	assert.Equal(t, catalog.OriginSnapshot, second.Catalog().Origin)

	probe := "医学影像"
	assert.Equal(t, first.SemanticSearch(probe, 2), second.SemanticSearch(probe, 2))
}

func TestRefresh_ForceReadsSourceAgain(t *testing.T) {
	cfg := writeCatalog(t, "血糖检测仪,IVD-001,3,用于血糖水平检测,")
	e, err := Initialize(cfg)
	require.NoError(t, err)
	require.Equal(t, 1, e.Len())

	body := catalogHeader +
		"血糖检测仪,IVD-001,3,用于血糖水平检测,\n" +
		"医用口罩,PRO-005,1,用于个人防护,\n"
	require.NoError(t, os.WriteFile(cfg.CatalogPath, []byte(body), 0o644))

	// The snapshot is never invalidated automatically.
	require.NoError(t, e.Refresh(false))
	assert.Equal(t, 1, e.Len())

	require.NoError(t, e.Refresh(true))
	assert.Equal(t, 2, e.Len())
	assert.Equal(t, index.StatusFitted, e.ModelStatus())

	res := e.SemanticSearch("个人防护", 1)
	require.Len(t, res, 1)
	assert.Equal(t, "PRO-005", res[0].Code)
}

func TestRefresh_ForceKeepsStateWhenSourceUnreadable(t *testing.T) {
	cfg := writeCatalog(t,
		"血糖检测仪,IVD-001,3,用于血糖水平检测,",
		"超声诊断仪,DEV-003,3,用于医学影像诊断,",
		"心脏支架,IMP-004,3,用于心血管手术,",
	)
	e, err := Initialize(cfg)
	require.NoError(t, err)
	want := e.SemanticSearch("医学影像", 2)

	require.NoError(t, os.Remove(cfg.CatalogPath))

	err = e.Refresh(true)
	require.Error(t, err)
	var le *catalog.LoadError
	assert.ErrorAs(t, err, &le)
	assert.Equal(t, 3, e.Len())
	assert.False(t, e.UsedFallback())
	assert.Equal(t, want, e.SemanticSearch("医学影像", 2))

	// Both caches still describe the real catalog.
	snap := filepath.Join(cfg.CacheDir, catalog.SnapshotFile)
	_, err = os.Stat(snap)
	require.NoError(t, err)
	again, err := Initialize(cfg)
	require.NoError(t, err)
	assert.Equal(t, catalog.OriginSnapshot, again.Catalog().Origin)
	assert.Equal(t, index.StatusLoaded, again.ModelStatus())
	assert.Equal(t, 3, again.Len())
}

func TestRefresh_DoesNotDegradeToSampleData(t *testing.T) {
	cfg := writeCatalog(t, "血糖检测仪,IVD-001,3,用于血糖水平检测,")
	e, err := Initialize(cfg)
	require.NoError(t, err)

	require.NoError(t, os.Remove(cfg.CatalogPath))
	snap := filepath.Join(cfg.CacheDir, catalog.SnapshotFile)
	require.NoError(t, os.WriteFile(snap, []byte("garbage"), 0o644))

	err = e.Refresh(false)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrBadSnapshot)
	assert.Equal(t, 1, e.Len())
	assert.False(t, e.UsedFallback())
}

func TestInitialize_ForceWithUnreadableSourceFails(t *testing.T) {
	cfg := writeCatalog(t, "血糖检测仪,IVD-001,3,用于血糖水平检测,")
	_, err := Initialize(cfg)
	require.NoError(t, err)
	require.NoError(t, os.Remove(cfg.CatalogPath))

	cfg.Force = true
	_, err = Initialize(cfg)
	require.Error(t, err)

	cfg.Force = false
	e, err := Initialize(cfg)
	require.NoError(t, err)
	assert.False(t, e.UsedFallback())
	assert.Equal(t, index.StatusLoaded, e.ModelStatus())
}

func TestSearch_ConcurrentQueries(t *testing.T) {
	dir := t.TempDir()
	e, err := Initialize(Config{CatalogPath: filepath.Join(dir, "missing.csv")}, WithQueryCacheSize(2))
	require.NoError(t, err)

	queries := []string{"血糖检测", "术后引流", "医学影像", "心血管手术", "个人防护"}
	want := make([][]Result, len(queries))
	for i, q := range queries {
		want[i] = e.SemanticSearch(q, 3)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, q := range queries {
				assert.Equal(t, want[i], e.SemanticSearch(q, 3))
				_ = e.FuzzySearch(q, 3)
			}
		}()
	}
	wg.Wait()
}

func TestInitialize_RejectsNilTokenizer(t *testing.T) {
	_, err := Initialize(Config{}, WithTokenizer(nil))
	assert.ErrorIs(t, err, ErrTokenizerRequired)
}
