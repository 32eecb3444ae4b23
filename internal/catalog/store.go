package catalog

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// SnapshotFile is the name of the normalized catalog cache inside the cache dir.
const SnapshotFile = "catalog.snapshot"

// Store loads the catalog, preferring the snapshot in CacheDir over the source.
type Store struct {
	SourcePath string
	CacheDir   string
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewStore returns a Store reading sourcePath and caching under cacheDir.
// An empty cacheDir disables the snapshot.
func NewStore(sourcePath, cacheDir string, opts ...Option) *Store {
	s := &Store{SourcePath: sourcePath, CacheDir: cacheDir, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SnapshotPath returns the snapshot location, or "" when caching is disabled.
func (s *Store) SnapshotPath() string {
	if s.CacheDir == "" {
		return ""
	}
	return filepath.Join(s.CacheDir, SnapshotFile)
}

// Load returns the catalog. It never fails: when neither the snapshot nor the
// source can be read, it returns the sample records with UsedFallback set.
//
// A source that parses but holds no rows yields an empty catalog, not the
// sample data.
func (s *Store) Load() *Catalog {
	snap := s.SnapshotPath()
	if snap != "" {
		if _, err := os.Stat(snap); err == nil {
			records, err := ReadSnapshot(snap)
			if err != nil {
				return s.fallback(&LoadError{Op: "read snapshot", Path: snap, Err: err})
			}
			s.logger.Info("catalog loaded from snapshot", "path", snap, "records", len(records))
			return &Catalog{Records: records, Origin: OriginSnapshot}
		}
	}

	cat, err := s.fromSource()
	if err != nil {
		return s.fallback(err)
	}
	return cat
}

// Rebuild re-reads the source and replaces the snapshot with it. It never
// falls back to sample data: when the source cannot be read, the existing
// snapshot is left in place and a *LoadError is returned.
func (s *Store) Rebuild() (*Catalog, error) {
	cat, err := s.fromSource()
	if err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *Store) fromSource() (*Catalog, *LoadError) {
	records, err := ReadSource(s.SourcePath)
	if err != nil {
		return nil, &LoadError{Op: "read source", Path: s.SourcePath, Err: err}
	}
	s.logger.Info("catalog loaded from source", "path", s.SourcePath, "records", len(records))

	if snap := s.SnapshotPath(); snap != "" {
		if err := WriteSnapshot(snap, records); err != nil {
			s.logger.Warn("cannot write catalog snapshot", "path", snap, "err", err)
			// A stale snapshot would shadow the source on the next load.
			if rmErr := os.Remove(snap); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				s.logger.Warn("cannot remove stale catalog snapshot", "path", snap, "err", rmErr)
			}
		}
	}
	return &Catalog{Records: records, Origin: OriginSource}, nil
}

func (s *Store) fallback(cause *LoadError) *Catalog {
	s.logger.Warn("catalog load failed, using built-in sample data", "err", cause)
	return &Catalog{
		Records:      SampleRecords(),
		Origin:       OriginSample,
		UsedFallback: true,
		Cause:        cause,
	}
}
