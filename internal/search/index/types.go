package index

import "github.com/kamusis/medclass/internal/segment"

// Manifest describes a persisted vector model and how to interpret it.
type Manifest struct {
	IndexVersion int    `json:"index_version"`
	CreatedAt    string `json:"created_at"`
	Tokenizer    string `json:"tokenizer"`
	NgramMin     int    `json:"ngram_min"`
	NgramMax     int    `json:"ngram_max"`
	Rows         int    `json:"rows"`
	Terms        int    `json:"terms"`
	NNZ          int    `json:"nnz"`
	Fingerprint  string `json:"fingerprint"`
	VocabFile    string `json:"vocab_file"`
	IDFFile      string `json:"idf_file"`
	MatrixFile   string `json:"matrix_file"`
}

// Matrix is a compressed sparse row matrix. Row i spans
// Cols[RowPtr[i]:RowPtr[i+1]] with ascending column indices.
type Matrix struct {
	RowPtr []int64
	Cols   []int32
	Vals   []float64
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int {
	if len(m.RowPtr) == 0 {
		return 0
	}
	return len(m.RowPtr) - 1
}

// Row returns row i as a SparseVector sharing the matrix storage.
func (m *Matrix) Row(i int) SparseVector {
	start, end := m.RowPtr[i], m.RowPtr[i+1]
	return SparseVector{Idx: m.Cols[start:end], Val: m.Vals[start:end]}
}

// Model is a fitted TF-IDF vectorizer plus the transformed catalog.
//
// A Model is read-only after Fit or Load and safe for concurrent use.
type Model struct {
	Manifest Manifest
	Terms    []string // column order, sorted
	IDF      []float64
	Matrix   *Matrix

	vocab map[string]int32
	tok   segment.Tokenizer
}
