package catalog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Snapshot layout (little endian):
//
//	magic   [4]byte "MDCS"
//	version uint16
//	rows    uint32
//	name, code          string columns
//	level               rows x int32
//	sku_ex, use_to      string columns
//
// A string column is rows x uint32 byte lengths followed by the concatenated bytes.
var snapshotMagic = [4]byte{'M', 'D', 'C', 'S'}

const snapshotVersion uint16 = 1

// WriteSnapshot writes records to path. The file is written next to path and
// renamed into place.
func WriteSnapshot(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create cache dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("cannot create snapshot: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := encodeSnapshot(bw, records); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encodeSnapshot(w io.Writer, records []Record) error {
	le := binary.LittleEndian
	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, le, snapshotVersion); err != nil {
		return err
	}
	if err := binary.Write(w, le, uint32(len(records))); err != nil {
		return err
	}

	column := func(get func(Record) string) error {
		lens := make([]uint32, len(records))
		for i, r := range records {
			lens[i] = uint32(len(get(r)))
		}
		if err := binary.Write(w, le, lens); err != nil {
			return err
		}
		for _, r := range records {
			if _, err := io.WriteString(w, get(r)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := column(func(r Record) string { return r.Name }); err != nil {
		return err
	}
	if err := column(func(r Record) string { return r.Code }); err != nil {
		return err
	}
	levels := make([]int32, len(records))
	for i, r := range records {
		levels[i] = int32(r.Level)
	}
	if err := binary.Write(w, le, levels); err != nil {
		return err
	}
	if err := column(func(r Record) string { return r.Purpose }); err != nil {
		return err
	}
	return column(func(r Record) string { return r.Usage })
}

// ReadSnapshot reads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open snapshot %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat snapshot %s: %w", path, err)
	}
	records, err := decodeSnapshot(bufio.NewReader(f), st.Size())
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrBadSnapshot, path, err)
	}
	return records, nil
}

func decodeSnapshot(r io.Reader, size int64) ([]Record, error) {
	le := binary.LittleEndian

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != snapshotMagic {
		return nil, errors.New("bad magic")
	}
	var version uint16
	if err := binary.Read(r, le, &version); err != nil {
		return nil, err
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("unsupported version %d", version)
	}
	var rows uint32
	if err := binary.Read(r, le, &rows); err != nil {
		return nil, err
	}
	// Every row takes at least 4 lengths and a level.
	if int64(rows)*20 > size {
		return nil, fmt.Errorf("row count %d exceeds file size %d", rows, size)
	}

	column := func() ([]string, error) {
		lens := make([]uint32, rows)
		if err := binary.Read(r, le, lens); err != nil {
			return nil, err
		}
		out := make([]string, rows)
		for i, n := range lens {
			if int64(n) > size {
				return nil, fmt.Errorf("field length %d exceeds file size", n)
			}
			buf := make([]byte, n)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
			out[i] = string(buf)
		}
		return out, nil
	}

	names, err := column()
	if err != nil {
		return nil, err
	}
	codes, err := column()
	if err != nil {
		return nil, err
	}
	levels := make([]int32, rows)
	if err := binary.Read(r, le, levels); err != nil {
		return nil, err
	}
	purposes, err := column()
	if err != nil {
		return nil, err
	}
	usages, err := column()
	if err != nil {
		return nil, err
	}

	var extra [1]byte
	if n, _ := r.Read(extra[:]); n != 0 {
		return nil, errors.New("trailing data")
	}

	out := make([]Record, rows)
	for i := range out {
		out[i] = Record{
			Name:    names[i],
			Code:    codes[i],
			Level:   int(levels[i]),
			Purpose: purposes[i],
			Usage:   usages[i],
		}
	}
	return out, nil
}
