package status

import (
	"time"
)

// ChangeKind names what happened to a city between two snapshots.
type ChangeKind string

const (
	ChangeNew     ChangeKind = "new"
	ChangeUpdated ChangeKind = "changed"
	ChangeRemoved ChangeKind = "removed"
)

// Snapshot represents the statuses of one fetch at a point in time
type Snapshot struct {
	Statuses     map[string]CityStatus `json:"statuses"` // keyed by normalized city
	Order        []string              `json:"order"`    // normalized cities in row order
	UsedEncoding string                `json:"used_encoding"`
	DataSize     int                   `json:"data_size"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// NewSnapshot creates an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Statuses: make(map[string]CityStatus),
		Order:    make([]string, 0),
	}
}

// CreateSnapshot creates a snapshot from a fetch result.
// When a city appears on several rows, the first row wins.
func CreateSnapshot(result FetchResult) *Snapshot {
	snap := NewSnapshot()
	snap.UsedEncoding = result.UsedEncoding
	snap.DataSize = result.DataSize
	snap.UpdatedAt = clock.Now().UTC()

	for _, cs := range result.CityStatuses {
		key := NormalizeCity(cs.City)
		if key == "" {
			continue
		}
		if _, exists := snap.Statuses[key]; exists {
			continue
		}
		snap.Statuses[key] = cs
		snap.Order = append(snap.Order, key)
	}

	return snap
}

// Result rebuilds a FetchResult from the snapshot in row order.
func (s *Snapshot) Result() FetchResult {
	result := FetchResult{
		CityStatuses: make([]CityStatus, 0, len(s.Order)),
		UsedEncoding: s.UsedEncoding,
		DataSize:     s.DataSize,
	}
	for _, key := range s.Order {
		if cs, ok := s.Statuses[key]; ok {
			result.CityStatuses = append(result.CityStatuses, cs)
		}
	}
	return result
}

// Change represents a difference in one city's announcement
type Change struct {
	City       string     `json:"city"`
	Kind       ChangeKind `json:"kind"`
	OldStatus  string     `json:"old_status,omitempty"`
	NewStatus  string     `json:"new_status,omitempty"`
	DetectedAt time.Time  `json:"detected_at"`
}

// Suspended reports whether the new status announces a closure.
func (c *Change) Suspended() bool {
	return CityStatus{City: c.City, Status: c.NewStatus}.Suspended()
}

// Diff compares the current fetch against a previous snapshot.
// Changes are ordered by the current row order, followed by removals in
// previous row order. A failed or empty fetch never reports removals, so a
// blank page does not wipe the known statuses.
func Diff(previous *Snapshot, current FetchResult) []*Change {
	if previous == nil {
		previous = NewSnapshot()
	}

	now := clock.Now().UTC()
	changes := make([]*Change, 0)
	seen := make(map[string]bool)

	for _, cs := range current.CityStatuses {
		key := NormalizeCity(cs.City)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		old, exists := previous.Statuses[key]
		switch {
		case !exists:
			changes = append(changes, &Change{
				City:       cs.City,
				Kind:       ChangeNew,
				NewStatus:  cs.Status,
				DetectedAt: now,
			})
		case old.Status != cs.Status:
			changes = append(changes, &Change{
				City:       cs.City,
				Kind:       ChangeUpdated,
				OldStatus:  old.Status,
				NewStatus:  cs.Status,
				DetectedAt: now,
			})
		}
	}

	if current.Failed() || len(current.CityStatuses) == 0 {
		return changes
	}

	for _, key := range previous.Order {
		if seen[key] {
			continue
		}
		old, ok := previous.Statuses[key]
		if !ok {
			continue
		}
		changes = append(changes, &Change{
			City:       old.City,
			Kind:       ChangeRemoved,
			OldStatus:  old.Status,
			DetectedAt: now,
		})
	}

	return changes
}
