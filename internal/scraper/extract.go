package scraper

import (
	"strings"

	"github.com/pfrederiksen/typhoon/internal/status"
)

// Extract scans decoded page text with DefaultMarkers.
func Extract(text string) []status.CityStatus {
	return DefaultMarkers.Extract(text)
}

// Extract returns one CityStatus per row that carries a city marker, in
// page order. A missing table body yields an empty, non-nil slice.
func (m Markers) Extract(text string) []status.CityStatus {
	if !m.complete() {
		m = DefaultMarkers
	}

	statuses := make([]status.CityStatus, 0)

	body, ok := m.tableBody(text)
	if !ok {
		return statuses
	}

	for _, row := range m.rows(body) {
		if cs, ok := m.extractRow(row); ok {
			statuses = append(statuses, cs)
		}
	}

	return statuses
}

// tableBody returns the text strictly between the first table start marker
// and the first end marker after it.
func (m Markers) tableBody(text string) (string, bool) {
	_, rest, found := strings.Cut(text, m.TableStart)
	if !found {
		return "", false
	}
	body, _, found := strings.Cut(rest, m.TableEnd)
	if !found {
		return "", false
	}
	return body, true
}

// rows splits the table body on the row marker and drops empty fragments.
// Rows are never closed explicitly; trailing markup simply fails extraction.
func (m Markers) rows(body string) []string {
	parts := strings.Split(body, m.Row)
	rows := parts[:0]
	for _, p := range parts {
		if p != "" {
			rows = append(rows, p)
		}
	}
	return rows
}

// extractRow reads the city and status out of one row fragment.
func (m Markers) extractRow(row string) (status.CityStatus, bool) {
	city, end, ok := between(row, 0, m.CityStart, m.FontEnd)
	if !ok {
		return status.CityStatus{}, false
	}

	cs := status.CityStatus{City: city}

	marker := m.BlackStart
	if !strings.Contains(row[end:], marker) {
		marker = m.RedStart
	}
	primary, pos, ok := between(row, end, marker, m.FontEnd)
	if !ok {
		return cs, true
	}
	cs.Status = strings.TrimSpace(primary)

	if second, _, ok := between(row, pos, m.RedStart, m.FontEnd); ok {
		cs.Status += "\n" + strings.TrimSpace(second)
	}

	return cs, true
}

// between finds openTag at or after from, then the first closeTag after it,
// and returns the text between them and the index just past closeTag.
func between(s string, from int, openTag, closeTag string) (string, int, bool) {
	i := strings.Index(s[from:], openTag)
	if i < 0 {
		return "", 0, false
	}
	start := from + i + len(openTag)
	j := strings.Index(s[start:], closeTag)
	if j < 0 {
		return "", 0, false
	}
	return s[start : start+j], start + j + len(closeTag), true
}
