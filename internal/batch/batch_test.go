package batch

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kamusis/medclass/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// fakeSearcher answers from a fixed table and records every query it sees.
type fakeSearcher struct {
	mu      sync.Mutex
	answers map[string]search.Result
	seen    []string
}

func (f *fakeSearcher) SemanticSearch(query string, topN int) []search.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, query)
	r, ok := f.answers[query]
	if !ok || topN < 1 {
		return nil
	}
	return []search.Result{r}
}

func newFake() *fakeSearcher {
	return &fakeSearcher{answers: map[string]search.Result{
		"血糖仪":  {Name: "血糖检测仪", Code: "IVD-001", Level: 3, Score: 0.72},
		"口罩":   {Name: "医用口罩", Code: "PRO-005", Level: 1, Score: 0.30},
		"导管配件": {Name: "引流导管", Code: "DEV-002", Level: 2, Score: 0.12},
	}}
}

func TestUpdateFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.csv")
	body := "血糖仪\n口罩,old,old\n导管配件\n未知设备\n仪\n\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	fake := newFake()
	rep, err := UpdateFile(path, fake, Options{MinScore: DefaultMinScore, MinQueryLen: 2, Workers: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Updated)
	assert.Equal(t, 1, rep.BelowThreshold)
	assert.Equal(t, 1, rep.NoResult)
	assert.Equal(t, 1, rep.Skipped)
	assert.NotContains(t, fake.seen, "仪", "short queries must not reach the engine")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"血糖仪", "血糖检测仪", "IVD-001"}, rows[0])
	assert.Equal(t, []string{"口罩", "医用口罩", "PRO-005"}, rows[1], "score equal to the threshold is accepted")
	assert.Equal(t, []string{"导管配件"}, rows[2], "below threshold rows stay untouched")
	assert.Equal(t, []string{"未知设备"}, rows[3])
	assert.Equal(t, []string{"仪"}, rows[4])
}

func TestUpdateFile_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "血糖仪"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "导管配件"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rep, err := UpdateFile(path, newFake(), Options{MinScore: DefaultMinScore, MinQueryLen: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Updated)
	assert.Equal(t, 1, rep.BelowThreshold)

	out, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer out.Close()

	name, err := out.GetCellValue("Sheet1", "B1")
	require.NoError(t, err)
	code, err := out.GetCellValue("Sheet1", "C1")
	require.NoError(t, err)
	assert.Equal(t, "血糖检测仪", name)
	assert.Equal(t, "IVD-001", code)

	untouched, err := out.GetCellValue("Sheet1", "B2")
	require.NoError(t, err)
	assert.Empty(t, untouched)
}

func TestUpdate_CustomThreshold(t *testing.T) {
	sh := &csvSheet{rows: [][]string{{"导管配件"}}}
	rep, err := Update(sh, newFake(), Options{MinScore: 0.1})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Updated)
	assert.Equal(t, []string{"导管配件", "引流导管", "DEV-002"}, sh.rows[0])
}

func TestUpdate_ZeroThresholdAcceptsAnyMatch(t *testing.T) {
	sh := &csvSheet{rows: [][]string{{"导管配件"}, {"未知设备"}}}
	rep, err := Update(sh, newFake(), Options{MinScore: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Updated)
	assert.Zero(t, rep.BelowThreshold)
	assert.Equal(t, 1, rep.NoResult)
	assert.Equal(t, []string{"导管配件", "引流导管", "DEV-002"}, sh.rows[0])
	assert.Equal(t, []string{"未知设备"}, sh.rows[1])
}

func TestUpdateFile_UnsupportedType(t *testing.T) {
	_, err := UpdateFile(filepath.Join(t.TempDir(), "batch.txt"), newFake(), Options{})
	assert.Error(t, err)
}
