// Package importer copies catalog source files into the medclass data
// directory, skipping identical copies and keeping the replaced version.
package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ErrUnsupportedType is returned for files that are not CSV or XLSX.
var ErrUnsupportedType = errors.New("unsupported catalog file type")

// Result is returned by ImportFile.
type Result struct {
	Path     string // where the catalog now lives
	Copied   bool   // false when an identical copy was already present
	Replaced string // path the previous, different version was moved to
}

// sourceExts are the catalog formats the store can read.
var sourceExts = []string{".csv", ".xlsx", ".xlsm"}

// ImportFile copies src into dstDir under its own base name.
//
// An existing file with the same digest is left alone. A different one is
// renamed with a ".prev" marker before the new file is copied in, so the last
// version can be restored by hand.
func ImportFile(src, dstDir string) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(src))
	if !supported(ext) {
		return nil, fmt.Errorf("%w: %s (want one of %s)", ErrUnsupportedType, src, strings.Join(sourceExts, ", "))
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", dstDir, err)
	}

	dst := filepath.Join(dstDir, filepath.Base(src))
	res := &Result{Path: dst}

	// ── Digest comparison ────────────────────────────────────────────────────
	if _, err := os.Stat(dst); err == nil {
		srcSum, err := fileDigest(src)
		if err != nil {
			return nil, fmt.Errorf("digest %s: %w", src, err)
		}
		dstSum, err := fileDigest(dst)
		if err != nil {
			return nil, fmt.Errorf("digest %s: %w", dst, err)
		}
		if srcSum == dstSum {
			return res, nil
		}
		prev := previousPath(dst)
		if err := os.Rename(dst, prev); err != nil {
			return nil, fmt.Errorf("cannot keep previous catalog %s: %w", prev, err)
		}
		res.Replaced = prev
	}

	if err := copyFile(src, dst); err != nil {
		return nil, fmt.Errorf("copy %s → %s: %w", src, dst, err)
	}
	res.Copied = true
	return res, nil
}

func supported(ext string) bool {
	for _, e := range sourceExts {
		if e == ext {
			return true
		}
	}
	return false
}

// previousPath inserts ".prev" before the extension.
//
//	22.csv    → 22.prev.csv
//	nmpa.xlsx → nmpa.prev.xlsx
func previousPath(original string) string {
	ext := filepath.Ext(original)
	return strings.TrimSuffix(original, ext) + ".prev" + ext
}

// fileDigest returns the hex-encoded BLAKE2b-256 digest of the file at path.
func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New(32, nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// copyFile copies src to dst, preserving permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
