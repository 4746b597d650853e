// Package cli implements the command-line interface for typhoon.
//
// The cli package provides the Cobra-based CLI for checking Taiwan's typhoon
// day-off announcements: one-shot checks, change detection against the last
// saved snapshot, page diagnostics, fetch history, and a long-running HTTP
// service. It coordinates the scraper, storage, history, filter and notifier
// packages and formats their output as text, JSON or Markdown.
package cli
