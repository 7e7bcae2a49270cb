// Package store keeps the last known snapshot of listings on disk.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/itcaat/kufarwatch/internal/models"
)

// DefaultPath is the snapshot file used when nothing else is configured
const DefaultPath = "data.json"

// SnapshotStore reads and replaces a JSON snapshot file
type SnapshotStore struct {
	path string
}

// NewSnapshotStore creates a store backed by path
func NewSnapshotStore(path string) *SnapshotStore {
	if path == "" {
		path = DefaultPath
	}
	return &SnapshotStore{path: path}
}

// Path returns the snapshot file location
func (s *SnapshotStore) Path() string {
	return s.path
}

// Load returns the previously saved listings.
// A missing, unreadable or corrupt file is treated as an empty snapshot.
func (s *SnapshotStore) Load() []models.Listing {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Store: Could not read snapshot %s: %v", s.path, err)
		}
		return []models.Listing{}
	}

	var listings []models.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		log.Printf("Store: Snapshot %s is corrupt, starting from scratch: %v", s.path, err)
		return []models.Listing{}
	}

	if listings == nil {
		listings = []models.Listing{}
	}
	return listings
}

// Save atomically replaces the snapshot with listings.
// The data is written to a temporary file in the same directory and renamed over the old one.
func (s *SnapshotStore) Save(listings []models.Listing) error {
	if listings == nil {
		listings = []models.Listing{}
	}

	data, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	// Remove the temp file on any failure below, after a successful rename this is a no-op
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("error syncing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("error replacing snapshot %s: %w", s.path, err)
	}

	log.Printf("Store: Saved %d listings to %s\n", len(listings), s.path)
	return nil
}
