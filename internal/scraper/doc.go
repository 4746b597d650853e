// Package scraper fetches the DGPA typhoon day-off page and extracts the
// per-city work and school suspension announcements.
//
// The page is served in a legacy encoding, so the raw bytes are decoded by
// trying Big5, UTF-8 and the DOS Traditional Chinese code page (950) in that
// order. Extraction is a literal marker scan over the decoded text: the
// table body is isolated between two fixed tags, split into rows on the row
// tag, and each row yields a city name and a one or two line status. No DOM
// is built on this path; a changed layout yields zero rows rather than an
// error. Inspect is a separate diagnostic that does parse the DOM.
//
// Every fetch produces exactly one status.FetchResult. Failures are reported
// through the result's UsedEncoding label instead of an error value.
package scraper
