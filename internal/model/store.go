package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Store persists the canonical model artifact at a single file path.
// Writes go through a temp file and an atomic rename, so a reader never
// observes a half-written artifact: adapters constructed after a successful
// Save see the new model, already-constructed adapters keep the one they
// loaded.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates an artifact store rooted at path.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// LoadLatest reads the current artifact. A missing file is not an error:
// it returns (nil, nil) and the caller degrades to rule-only evaluation.
func (s *Store) LoadLatest() (*Artifact, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("no model artifact found, operating without predictive model", "path", s.path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return nil, fmt.Errorf("model artifact %s has no trees", s.path)
	}

	s.logger.Info("model artifact loaded",
		"path", s.path,
		"version", a.Version,
		"trained_at", a.TrainedAt,
		"training_rows", a.TrainingRows,
	)
	return &a, nil
}

// Save replaces the canonical artifact. The write is atomic from a reader's
// perspective: temp file in the same directory, fsync, rename.
func (s *Store) Save(a *Artifact) error {
	if a == nil || a.Forest == nil {
		return errors.New("save: nil artifact")
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode model artifact: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace model artifact: %w", err)
	}

	s.logger.Info("model artifact saved", "path", s.path, "version", a.Version)
	return nil
}
