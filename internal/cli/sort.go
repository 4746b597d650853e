package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pfrederiksen/typhoon/internal/status"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByPage      SortOrder = "page"
	SortByCity      SortOrder = "city"
	SortBySuspended SortOrder = "suspended"
)

func parseSortOrder(s string) (SortOrder, error) {
	order := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch order {
	case "":
		return SortByPage, nil
	case SortByPage, SortByCity, SortBySuspended:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort: %s (must be 'page', 'city' or 'suspended')", s)
	}
}

// sortStatuses returns a sorted copy. Page order is the row order of the
// announcement table and is kept as the tie-breaker for every order.
func sortStatuses(statuses []status.CityStatus, order SortOrder) []status.CityStatus {
	sorted := slices.Clone(statuses)

	switch order {
	case SortByCity:
		slices.SortStableFunc(sorted, func(a, b status.CityStatus) int {
			return cityRank(a.City) - cityRank(b.City)
		})
	case SortBySuspended:
		slices.SortStableFunc(sorted, func(a, b status.CityStatus) int {
			return suspendedRank(a) - suspendedRank(b)
		})
	}

	return sorted
}

// cityRank orders cities north to south as in status.DefaultCities; cities
// the list does not know go last.
func cityRank(city string) int {
	normalized := status.NormalizeCity(city)
	if i := slices.Index(status.DefaultCities, normalized); i >= 0 {
		return i
	}
	return len(status.DefaultCities)
}

func suspendedRank(cs status.CityStatus) int {
	if cs.Suspended() {
		return 0
	}
	return 1
}
