package index

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kamusis/medclass/internal/segment"
)

// Load reads a model from dir and binds it to tok.
//
// The manifest's tokenizer must match tok.Name(); otherwise ErrTokenizerMismatch
// is returned. A missing manifest yields an error matching fs.ErrNotExist.
func Load(dir string, tok segment.Tokenizer) (*Model, error) {
	if tok == nil {
		return nil, ErrTokenizerRequired
	}
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	if m.Tokenizer != tok.Name() {
		return nil, fmt.Errorf("%w: cache=%s current=%s", ErrTokenizerMismatch, m.Tokenizer, tok.Name())
	}

	terms, err := loadTerms(filepath.Join(dir, m.VocabFile), m.Terms)
	if err != nil {
		return nil, err
	}
	idf := make([]float64, m.Terms)
	if err := loadBinary(filepath.Join(dir, m.IDFFile), int64(m.Terms)*8, idf); err != nil {
		return nil, err
	}
	mx, err := loadMatrix(filepath.Join(dir, m.MatrixFile), m.Rows, m.NNZ, m.Terms)
	if err != nil {
		return nil, err
	}

	model := &Model{Manifest: m, Terms: terms, IDF: idf, Matrix: mx, tok: tok}
	model.buildVocab()
	return model, nil
}

// ReadManifest reads and validates the manifest in dir.
func ReadManifest(dir string) (Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFile)
	b, err := os.ReadFile(manifestPath)
	if err != nil {
		return Manifest{}, fmt.Errorf("cannot read manifest %s: %w", manifestPath, err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("invalid manifest JSON %s: %w", manifestPath, err)
	}
	if m.IndexVersion != indexVersion {
		return Manifest{}, fmt.Errorf("unsupported index version %d in %s", m.IndexVersion, manifestPath)
	}
	if m.Rows <= 0 || m.Terms <= 0 || m.NNZ < 0 {
		return Manifest{}, fmt.Errorf("invalid sizes in manifest: rows=%d terms=%d nnz=%d", m.Rows, m.Terms, m.NNZ)
	}
	if m.VocabFile == "" {
		m.VocabFile = "vocab.jsonl"
	}
	if m.IDFFile == "" {
		m.IDFFile = "idf.f64"
	}
	if m.MatrixFile == "" {
		m.MatrixFile = "matrix.bin"
	}
	return m, nil
}

func loadTerms(path string, want int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open vocab file %s: %w", path, err)
	}
	defer f.Close()

	out := make([]string, 0, want)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var t string
		if err := json.Unmarshal(line, &t); err != nil {
			return nil, fmt.Errorf("invalid vocab JSONL %s: %w", path, err)
		}
		out = append(out, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read vocab file %s: %w", path, err)
	}
	if len(out) != want {
		return nil, fmt.Errorf("vocab size mismatch: got %d want %d", len(out), want)
	}
	return out, nil
}

func loadBinary(path string, size int64, data ...any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("cannot stat %s: %w", path, err)
	}
	if st.Size() != size {
		return fmt.Errorf("file size mismatch for %s: got %d want %d", path, st.Size(), size)
	}

	r := bufio.NewReader(io.LimitReader(f, size))
	for _, d := range data {
		if err := binary.Read(r, binary.LittleEndian, d); err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
	}
	return nil
}

func loadMatrix(path string, rows, nnz, terms int) (*Matrix, error) {
	mx := &Matrix{
		RowPtr: make([]int64, rows+1),
		Cols:   make([]int32, nnz),
		Vals:   make([]float64, nnz),
	}
	size := int64(rows+1)*8 + int64(nnz)*4 + int64(nnz)*8
	if err := loadBinary(path, size, mx.RowPtr, mx.Cols, mx.Vals); err != nil {
		return nil, err
	}

	if mx.RowPtr[0] != 0 || mx.RowPtr[rows] != int64(nnz) {
		return nil, fmt.Errorf("invalid row pointers in %s", path)
	}
	for i := 0; i < rows; i++ {
		if mx.RowPtr[i] > mx.RowPtr[i+1] {
			return nil, fmt.Errorf("row pointers not monotonic at row %d in %s", i, path)
		}
	}
	for _, c := range mx.Cols {
		if c < 0 || int(c) >= terms {
			return nil, fmt.Errorf("column index %d out of range in %s", c, path)
		}
	}
	return mx, nil
}
