// Package filter narrows fetched city statuses to the ones a user cares about.
//
// A filter can select:
//   - Cities (substring match after normalization, so 台北 matches 臺北市)
//   - Keywords in the status text (substring match)
//   - Suspensions only (status announces 停止上班 or 停止上課)
//
// Criteria of different kinds must all match; values within one kind are
// alternatives.
//
// Example usage:
//
//	f, err := filter.Parse("city:台北市,新北市 suspended")
//	if err != nil {
//	    return err
//	}
//	statuses := f.Apply(result.CityStatuses)
package filter

import (
	"fmt"
	"strings"

	"github.com/pfrederiksen/typhoon/internal/status"
)

// Filter represents city status filtering criteria
type Filter struct {
	// City filtering (normalized substring match)
	Cities []string `json:"cities,omitempty"`

	// Status text filtering (substring match)
	Keywords []string `json:"keywords,omitempty"`

	// Only statuses that suspend work or school
	SuspendedOnly bool `json:"suspended_only,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all statuses until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Cities:   []string{},
		Keywords: []string{},
	}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f == nil || (len(f.Cities) == 0 && len(f.Keywords) == 0 && !f.SuspendedOnly)
}

// Matches checks if a city status matches all active filter criteria.
// An empty filter matches everything.
func (f *Filter) Matches(cs status.CityStatus) bool {
	if f.IsEmpty() {
		return true
	}

	if f.SuspendedOnly && !cs.Suspended() {
		return false
	}

	if !f.matchesCity(cs.City) {
		return false
	}

	if len(f.Keywords) > 0 && !containsAny(cs.Status, f.Keywords) {
		return false
	}

	return true
}

// MatchesChange checks a change against the filter. Keywords match either
// the old or the new status; SuspendedOnly looks at the new status, so a
// lifted suspension is not reported to suspension-only subscribers.
func (f *Filter) MatchesChange(c *status.Change) bool {
	if f.IsEmpty() {
		return true
	}

	if f.SuspendedOnly && !c.Suspended() {
		return false
	}

	if !f.matchesCity(c.City) {
		return false
	}

	if len(f.Keywords) > 0 && !containsAny(c.OldStatus, f.Keywords) && !containsAny(c.NewStatus, f.Keywords) {
		return false
	}

	return true
}

func (f *Filter) matchesCity(city string) bool {
	if len(f.Cities) == 0 {
		return true
	}
	normalized := status.NormalizeCity(city)
	for _, want := range f.Cities {
		if strings.Contains(normalized, status.NormalizeCity(want)) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// Apply returns the matching statuses in their original order.
// If the filter is empty, returns the original list unchanged.
func (f *Filter) Apply(statuses []status.CityStatus) []status.CityStatus {
	if f.IsEmpty() {
		return statuses
	}

	filtered := make([]status.CityStatus, 0, len(statuses))
	for _, cs := range statuses {
		if f.Matches(cs) {
			filtered = append(filtered, cs)
		}
	}

	return filtered
}

// ApplyChanges returns the matching changes in their original order.
func (f *Filter) ApplyChanges(changes []*status.Change) []*status.Change {
	if f.IsEmpty() {
		return changes
	}

	filtered := make([]*status.Change, 0, len(changes))
	for _, c := range changes {
		if f.MatchesChange(c) {
			filtered = append(filtered, c)
		}
	}

	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Returns "No active filters" if the filter is empty.
// Format: "Cities: 台北市, 新北市 | Keywords: 停止 | Suspended only"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if len(f.Cities) > 0 {
		parts = append(parts, fmt.Sprintf("Cities: %s", strings.Join(f.Cities, ", ")))
	}

	if len(f.Keywords) > 0 {
		parts = append(parts, fmt.Sprintf("Keywords: %s", strings.Join(f.Keywords, ", ")))
	}

	if f.SuspendedOnly {
		parts = append(parts, "Suspended only")
	}

	return strings.Join(parts, " | ")
}

// Clone creates a deep copy of the filter.
func (f *Filter) Clone() *Filter {
	clone := &Filter{
		SuspendedOnly: f.SuspendedOnly,
		Cities:        make([]string, len(f.Cities)),
		Keywords:      make([]string, len(f.Keywords)),
	}
	copy(clone.Cities, f.Cities)
	copy(clone.Keywords, f.Keywords)
	return clone
}
