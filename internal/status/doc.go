// Package status provides the data model for typhoon day-off announcements.
//
// The status package defines CityStatus and FetchResult, the labels that mark
// failed fetches, the display fallbacks used when a city has no announcement,
// and snapshot-based change detection between two fetches. Each Change is
// keyed by city name, enabling reliable tracking across runs.
package status
