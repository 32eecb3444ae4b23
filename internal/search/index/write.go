package index

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestFile is the manifest name inside a model directory.
const ManifestFile = "index_manifest.json"

// Write writes model artifacts to dir.
func Write(dir string, m *Model) error {
	if m == nil || m.Matrix == nil {
		return fmt.Errorf("no model to write")
	}
	manifest := m.Manifest
	if manifest.Rows != m.Matrix.Rows() {
		return fmt.Errorf("row count mismatch: manifest %d matrix %d", manifest.Rows, m.Matrix.Rows())
	}
	if manifest.Terms != len(m.Terms) || len(m.IDF) != len(m.Terms) {
		return fmt.Errorf("term count mismatch: manifest %d terms %d idf %d", manifest.Terms, len(m.Terms), len(m.IDF))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create model dir %s: %w", dir, err)
	}

	// manifest
	mb, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), mb, 0o644); err != nil {
		return fmt.Errorf("cannot write manifest: %w", err)
	}

	// vocabulary jsonl, one JSON string per line in column order
	vf, err := os.Create(filepath.Join(dir, manifest.VocabFile))
	if err != nil {
		return fmt.Errorf("cannot create vocab file: %w", err)
	}
	bw := bufio.NewWriter(vf)
	for _, t := range m.Terms {
		line, err := json.Marshal(t)
		if err != nil {
			_ = vf.Close()
			return err
		}
		if _, err := bw.Write(line); err != nil {
			_ = vf.Close()
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			_ = vf.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = vf.Close()
		return err
	}
	if err := vf.Close(); err != nil {
		return err
	}

	// idf
	if err := writeBinary(filepath.Join(dir, manifest.IDFFile), m.IDF); err != nil {
		return fmt.Errorf("cannot write idf: %w", err)
	}

	// matrix: row pointers, then columns, then values
	if err := writeBinary(filepath.Join(dir, manifest.MatrixFile), m.Matrix.RowPtr, m.Matrix.Cols, m.Matrix.Vals); err != nil {
		return fmt.Errorf("cannot write matrix: %w", err)
	}
	return nil
}

func writeBinary(path string, data ...any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	for _, d := range data {
		if err := binary.Write(bw, binary.LittleEndian, d); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
