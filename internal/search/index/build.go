package index

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/kamusis/medclass/internal/segment"
)

// BuildOptions controls LoadOrFit.
type BuildOptions struct {
	// Dir holds the persisted model. Empty disables the cache.
	Dir       string
	Docs      []string
	Tokenizer segment.Tokenizer
	// Force refits even when a valid cache exists.
	Force  bool
	Logger *slog.Logger
	// LockTimeout bounds the wait for another process writing the cache.
	LockTimeout time.Duration
}

// BuildStatus reports how LoadOrFit produced its model.
type BuildStatus string

const (
	StatusLoaded BuildStatus = "loaded"
	StatusFitted BuildStatus = "fitted"
)

// LoadOrFit returns the cached model in opts.Dir when it was fitted with the
// same tokenizer over the same documents in the same order, and fits and
// persists a new one otherwise.
//
// A cache that exists but cannot be decoded is an error; it must be removed
// (or rebuilt with Force) before the engine can start. Failing to persist a
// freshly fitted model is logged and does not fail the call.
func LoadOrFit(opts BuildOptions) (*Model, BuildStatus, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Tokenizer == nil {
		return nil, "", ErrTokenizerRequired
	}
	if opts.Dir == "" {
		m, err := Fit(opts.Docs, opts.Tokenizer)
		if err != nil {
			return nil, "", err
		}
		return m, StatusFitted, nil
	}

	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	unlock, err := acquireLock(opts.Dir+".lock", timeout)
	if err != nil {
		return nil, "", err
	}
	defer unlock()

	if !opts.Force {
		m, err := Load(opts.Dir, opts.Tokenizer)
		switch {
		case err == nil:
			verr := validate(m, opts.Docs)
			if verr == nil {
				logger.Info("vector model loaded from cache", "dir", opts.Dir, "rows", m.Len(), "terms", len(m.Terms))
				return m, StatusLoaded, nil
			}
			logger.Warn("vector model cache is stale, refitting", "dir", opts.Dir, "err", verr)
		case errors.Is(err, ErrTokenizerMismatch):
			logger.Warn("vector model cache uses another tokenizer, refitting", "dir", opts.Dir, "err", err)
		case errors.Is(err, fs.ErrNotExist):
			logger.Info("no vector model cache, fitting", "dir", opts.Dir)
		default:
			return nil, "", fmt.Errorf("corrupt vector model cache %s (delete it or rebuild with --force): %w", opts.Dir, err)
		}
	}

	m, err := Fit(opts.Docs, opts.Tokenizer)
	if err != nil {
		return nil, "", err
	}
	logger.Info("vector model fitted", "rows", m.Len(), "terms", len(m.Terms))

	if err := persist(opts.Dir, m); err != nil {
		logger.Warn("cannot persist vector model", "dir", opts.Dir, "err", err)
	}
	return m, StatusFitted, nil
}

// validate checks that m was fitted over docs in the same order.
func validate(m *Model, docs []string) error {
	if m.Manifest.Rows != len(docs) || m.Len() != len(docs) {
		return fmt.Errorf("%w: cache rows=%d catalog rows=%d", ErrStaleModel, m.Manifest.Rows, len(docs))
	}
	if m.Manifest.Fingerprint != Fingerprint(docs) {
		return ErrStaleModel
	}
	return nil
}

// CheckCache reports whether the model cache in dir matches docs and tok
// without loading the matrix.
func CheckCache(dir string, docs []string, tok segment.Tokenizer) error {
	m, err := ReadManifest(dir)
	if err != nil {
		return err
	}
	if tok != nil && m.Tokenizer != tok.Name() {
		return fmt.Errorf("%w: cache=%s current=%s", ErrTokenizerMismatch, m.Tokenizer, tok.Name())
	}
	if m.Rows != len(docs) || m.Fingerprint != Fingerprint(docs) {
		return ErrStaleModel
	}
	return nil
}

func persist(dir string, m *Model) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("cannot create cache dir %s: %w", parent, err)
	}
	tmpDir, err := os.MkdirTemp(parent, ".model-*")
	if err != nil {
		return fmt.Errorf("cannot create temp model dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := Write(tmpDir, m); err != nil {
		return err
	}
	return AtomicSwap(tmpDir, dir)
}

// AtomicSwap replaces destDir with srcDir by renaming.
func AtomicSwap(srcDir, destDir string) error {
	parent := filepath.Dir(destDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	backup := destDir + ".bak"
	_ = os.RemoveAll(backup)
	if _, err := os.Stat(destDir); err == nil {
		if err := os.Rename(destDir, backup); err != nil {
			return err
		}
	}
	if err := os.Rename(srcDir, destDir); err != nil {
		// rollback best-effort
		if _, stErr := os.Stat(backup); stErr == nil {
			_ = os.Rename(backup, destDir)
		}
		return err
	}
	_ = os.RemoveAll(backup)
	return nil
}

// acquireLock takes an exclusive file lock at path, polling until timeout.
func acquireLock(path string, timeout time.Duration) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return func() {}, fmt.Errorf("cannot create lock dir: %w", err)
	}
	l := flock.New(path)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("cannot acquire cache lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("another process is building the cache (lock: %s)", path)
		}
		time.Sleep(200 * time.Millisecond)
	}
}
