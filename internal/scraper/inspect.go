package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// domRowSelector counts table rows the way a browser would see them.
const domRowSelector = "tbody.Table_Body tr"

// Report describes how the page looks to both the marker scan and a DOM
// parser. It tells "no announcements" apart from "layout changed" without
// touching FetchResult.
type Report struct {
	Source          string `json:"source"`
	Decoded         bool   `json:"decoded"`
	UsedEncoding    string `json:"used_encoding,omitempty"`
	DataSize        int    `json:"data_size"`
	Title           string `json:"title,omitempty"`
	DeclaredCharset string `json:"declared_charset,omitempty"`
	TableStartFound bool   `json:"table_start_found"`
	TableEndFound   bool   `json:"table_end_found"`
	MarkerRows      int    `json:"marker_rows"`
	DOMRows         int    `json:"dom_rows"`
}

// Diagnosis summarizes the report in one line.
func (r *Report) Diagnosis() string {
	switch {
	case !r.Decoded:
		return "page could not be decoded"
	case !r.TableStartFound || !r.TableEndFound:
		return "table body markers not found, the layout may have changed"
	case r.MarkerRows == 0 && r.DOMRows > 0:
		return "table has rows but no row matched the markers, the layout may have changed"
	case r.MarkerRows == 0:
		return "no announcements"
	case r.MarkerRows != r.DOMRows:
		return fmt.Sprintf("marker scan found %d rows, DOM found %d", r.MarkerRows, r.DOMRows)
	default:
		return "ok"
	}
}

// Inspect fetches the page and reports on it.
func (s *Scraper) Inspect(ctx context.Context) (*Report, error) {
	data, err := s.FetchRaw(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	report, err := s.markers.Inspect(data)
	if err != nil {
		return nil, err
	}
	report.Source = s.url
	return report, nil
}

// Inspect reports on page bytes, for example a saved copy of the page.
func (m Markers) Inspect(data []byte) (*Report, error) {
	if !m.complete() {
		m = DefaultMarkers
	}

	report := &Report{DataSize: len(data)}

	var r io.Reader
	text, encoding, ok := Decode(data)
	if ok {
		report.Decoded = true
		report.UsedEncoding = encoding
		r = strings.NewReader(text)
	} else {
		// Let the HTML charset sniffer have a go so the DOM counts still
		// say something about an undecodable page.
		cr, err := charset.NewReader(bytes.NewReader(data), "text/html")
		if err != nil {
			return nil, fmt.Errorf("sniffing charset: %w", err)
		}
		r = cr
	}

	report.TableStartFound = strings.Contains(text, m.TableStart)
	_, report.TableEndFound = m.tableBody(text)
	report.MarkerRows = len(m.Extract(text))

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	report.Title = strings.TrimSpace(doc.Find("title").First().Text())
	report.DeclaredCharset = declaredCharset(doc)
	report.DOMRows = doc.Find(domRowSelector).Length()

	return report, nil
}

// declaredCharset reads <meta charset> or the http-equiv Content-Type and
// returns the canonical encoding name, or the raw label when x/net does not
// know it.
func declaredCharset(doc *goquery.Document) string {
	var label string
	doc.Find("meta").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if v, ok := sel.Attr("charset"); ok {
			label = v
			return false
		}
		if v, ok := sel.Attr("http-equiv"); ok && strings.EqualFold(v, "content-type") {
			content, _ := sel.Attr("content")
			if _, after, found := strings.Cut(strings.ToLower(content), "charset="); found {
				label = after
				return false
			}
		}
		return true
	})

	label = strings.Trim(strings.TrimSpace(label), `"'`)
	if label == "" {
		return ""
	}
	if _, name := charset.Lookup(label); name != "" {
		return name
	}
	return label
}
