package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/typhoon/internal/config"
	"github.com/pfrederiksen/typhoon/internal/status"
)

// ErrCityNotFound is returned when the snapshot has no row for a city.
var ErrCityNotFound = errors.New("city not found")

// Storage handles persistence of status snapshots
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// Dir returns the data directory.
func (s *Storage) Dir() string {
	return s.dataDir
}

// SourceKey names the snapshot for a page URL. The default page uses the
// plain snapshot.json; any other URL gets its own file so pointing the
// tool at a mirror does not clobber the real history.
func SourceKey(pageURL string) string {
	if pageURL == "" || pageURL == config.DefaultURL {
		return ""
	}
	sum := sha256.Sum256([]byte(pageURL))
	return hex.EncodeToString(sum[:])[:12]
}

// getSnapshotPath returns the path to the snapshot file
func (s *Storage) getSnapshotPath(source string) string {
	if source == "" {
		return filepath.Join(s.dataDir, "snapshot.json")
	}
	return filepath.Join(s.dataDir, fmt.Sprintf("snapshot_%s.json", source))
}

// LoadSnapshot loads a snapshot from disk. A missing file yields an empty
// snapshot, so the first run reports every city as new.
func (s *Storage) LoadSnapshot(source string) (*status.Snapshot, error) {
	path := s.getSnapshotPath(source)

	data, err := os.ReadFile(path) //nolint:gosec // path is built from the data dir
	if err != nil {
		if os.IsNotExist(err) {
			return status.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot status.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	if snapshot.Statuses == nil {
		snapshot.Statuses = make(map[string]status.CityStatus)
	}
	if snapshot.Order == nil {
		snapshot.Order = make([]string, 0)
	}

	return &snapshot, nil
}

// SaveSnapshot saves a snapshot to disk
func (s *Storage) SaveSnapshot(snapshot *status.Snapshot, source string) error {
	path := s.getSnapshotPath(source)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	// Write through a temp file so a crash never leaves half a snapshot.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	return nil
}

// SaveResult creates and saves a snapshot from a fetch result
func (s *Storage) SaveResult(result status.FetchResult, source string) error {
	return s.SaveSnapshot(status.CreateSnapshot(result), source)
}

// GetCityStatus returns the last saved status of a city.
func (s *Storage) GetCityStatus(city, source string) (status.CityStatus, error) {
	snapshot, err := s.LoadSnapshot(source)
	if err != nil {
		return status.CityStatus{}, fmt.Errorf("loading snapshot: %w", err)
	}

	if cs, ok := snapshot.Result().Lookup(city); ok {
		return cs, nil
	}

	return status.CityStatus{}, fmt.Errorf("%w: %s", ErrCityNotFound, city)
}
