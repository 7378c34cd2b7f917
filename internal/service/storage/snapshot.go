package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"camguard/internal/config"

	"github.com/google/uuid"
)

// snapshotTimeLayout is the timestamp part of snapshot file names.
const snapshotTimeLayout = "20060102_150405"

// SnapshotStore keeps intruder snapshots on disk and resolves the reference
// photos of authorized persons.
type SnapshotStore struct {
	intruderDir   string
	authorizedDir string
}

// NewSnapshotStore creates a SnapshotStore for the configured directories.
func NewSnapshotStore(config *config.Config) *SnapshotStore {
	return &SnapshotStore{
		intruderDir:   config.IntruderDir,
		authorizedDir: config.AuthorizedDir,
	}
}

// Save writes a JPEG snapshot and returns its file name relative to the
// intruder directory. Names look like intruder_20240501_134510_1a2b3c4d.jpg.
func (s *SnapshotStore) Save(data []byte, capturedAt time.Time) (string, error) {
	if err := os.MkdirAll(s.intruderDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	filename := fmt.Sprintf("intruder_%s_%s.jpg", capturedAt.Format(snapshotTimeLayout), suffix)

	if err := os.WriteFile(filepath.Join(s.intruderDir, filename), data, 0644); err != nil {
		return "", fmt.Errorf("failed to save snapshot %s: %w", filename, err)
	}
	return filename, nil
}

// Remove deletes a snapshot. A missing file is not an error.
func (s *SnapshotStore) Remove(filename string) error {
	path, err := s.IntruderPath(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove snapshot %s: %w", filename, err)
	}
	return nil
}

// IntruderPath resolves a snapshot name inside the intruder directory.
func (s *SnapshotStore) IntruderPath(filename string) (string, error) {
	return within(s.intruderDir, filename)
}

// ReferencePath resolves a reference photo name inside the authorized directory.
func (s *SnapshotStore) ReferencePath(filename string) (string, error) {
	return within(s.authorizedDir, filename)
}

// References lists the image files in the authorized directory.
func (s *SnapshotStore) References() ([]string, error) {
	entries, err := os.ReadDir(s.authorizedDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.authorizedDir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func within(dir, filename string) (string, error) {
	if filename == "" || filepath.Base(filename) != filename {
		return "", fmt.Errorf("invalid file name %q", filename)
	}
	return filepath.Join(dir, filename), nil
}
