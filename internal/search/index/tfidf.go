package index

import (
	"math"
	"slices"
	"time"

	"github.com/kamusis/medclass/internal/segment"
)

const (
	indexVersion = 1
	ngramMin     = 1
	ngramMax     = 2
)

// Fit learns a TF-IDF vocabulary over docs and transforms them into the model
// matrix, one row per document in the given order.
//
// Terms are the tokenizer's tokens plus adjacent token bigrams. Weights use
// smoothed inverse document frequency ln((1+n)/(1+df))+1 on raw term counts,
// and every row is L2-normalized.
func Fit(docs []string, tok segment.Tokenizer) (*Model, error) {
	if tok == nil {
		return nil, ErrTokenizerRequired
	}
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	analyzed := make([][]string, len(docs))
	df := make(map[string]int)
	for i, d := range docs {
		grams := analyze(tok, d)
		analyzed[i] = grams
		seen := make(map[string]struct{}, len(grams))
		for _, g := range grams {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			df[g]++
		}
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	slices.Sort(terms)

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for j, t := range terms {
		idf[j] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	m := &Model{Terms: terms, IDF: idf, tok: tok}
	m.buildVocab()

	mx := &Matrix{RowPtr: make([]int64, 1, len(docs)+1)}
	for _, grams := range analyzed {
		row := m.vectorize(grams)
		mx.Cols = append(mx.Cols, row.Idx...)
		mx.Vals = append(mx.Vals, row.Val...)
		mx.RowPtr = append(mx.RowPtr, int64(len(mx.Cols)))
	}
	m.Matrix = mx

	m.Manifest = Manifest{
		IndexVersion: indexVersion,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		Tokenizer:    tok.Name(),
		NgramMin:     ngramMin,
		NgramMax:     ngramMax,
		Rows:         len(docs),
		Terms:        len(terms),
		NNZ:          len(mx.Cols),
		Fingerprint:  Fingerprint(docs),
		VocabFile:    "vocab.jsonl",
		IDFFile:      "idf.f64",
		MatrixFile:   "matrix.bin",
	}
	return m, nil
}

// Transform maps text into the model's term space. Terms unseen at fit time
// are ignored; the result is L2-normalized.
func (m *Model) Transform(text string) SparseVector {
	return m.vectorize(analyze(m.tok, text))
}

// Similarities returns the cosine similarity of q with every matrix row, in
// row order. q must come from Transform.
func (m *Model) Similarities(q SparseVector) []float64 {
	rows := m.Matrix.Rows()
	out := make([]float64, rows)
	if q.Len() == 0 {
		return out
	}
	// Rows and q are unit vectors (or empty), so the dot product is the cosine.
	for i := 0; i < rows; i++ {
		out[i] = clamp01(Dot(q, m.Matrix.Row(i)))
	}
	return out
}

// Len returns the number of rows the model was fitted over.
func (m *Model) Len() int { return m.Matrix.Rows() }

func (m *Model) buildVocab() {
	m.vocab = make(map[string]int32, len(m.Terms))
	for j, t := range m.Terms {
		m.vocab[t] = int32(j)
	}
}

func (m *Model) vectorize(grams []string) SparseVector {
	counts := make(map[int32]float64)
	for _, g := range grams {
		if j, ok := m.vocab[g]; ok {
			counts[j]++
		}
	}
	v := SparseVector{
		Idx: make([]int32, 0, len(counts)),
		Val: make([]float64, 0, len(counts)),
	}
	for j := range counts {
		v.Idx = append(v.Idx, j)
	}
	slices.Sort(v.Idx)
	for _, j := range v.Idx {
		v.Val = append(v.Val, counts[j]*m.IDF[j])
	}
	return NormalizeL2(v)
}

// analyze normalizes and segments text, then appends adjacent-token bigrams.
func analyze(tok segment.Tokenizer, text string) []string {
	toks := tok.Tokenize(segment.Normalize(text))
	grams := make([]string, 0, 2*len(toks))
	grams = append(grams, toks...)
	for i := 0; i+1 < len(toks); i++ {
		grams = append(grams, toks[i]+" "+toks[i+1])
	}
	return grams
}
