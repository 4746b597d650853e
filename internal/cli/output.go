package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/pfrederiksen/typhoon/internal/history"
	"github.com/pfrederiksen/typhoon/internal/scraper"
	"github.com/pfrederiksen/typhoon/internal/status"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText     OutputFormat = "text"
	FormatJSON     OutputFormat = "json"
	FormatMarkdown OutputFormat = "markdown"
)

const timeLayout = "2006-01-02 15:04:05"

func parseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	switch format {
	case FormatText, FormatJSON, FormatMarkdown:
		return format, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("invalid format: %s (must be 'text', 'json' or 'markdown')", s)
	}
}

// CheckOutput is the result of the check command.
type CheckOutput struct {
	CheckedAt time.Time      `json:"checked_at"`
	Source    string         `json:"source"`
	Cached    bool           `json:"cached,omitempty"`
	Outcome   status.Outcome `json:"outcome"`
	Filter    string         `json:"filter,omitempty"`
	status.FetchResult
}

// WatchOutput is the result of the watch command. typhoon-notify reads the
// JSON form.
type WatchOutput struct {
	CheckedAt    time.Time        `json:"checked_at"`
	Source       string           `json:"source"`
	Outcome      status.Outcome   `json:"outcome"`
	UsedEncoding string           `json:"used_encoding"`
	Changes      []*status.Change `json:"changes"`
	ChangeCount  int              `json:"change_count"`
	Refreshed    bool             `json:"refreshed,omitempty"`
}

// writeJSON outputs v as indented JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// WriteCheck writes a check result in the specified format
func WriteCheck(w io.Writer, out *CheckOutput, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, out)
	case FormatMarkdown:
		return writeCheckMarkdown(w, out)
	case FormatText:
		return writeCheckText(w, out, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeCheckText prints one block per city, the follow-up line indented,
// then the encoding line.
func writeCheckText(w io.Writer, out *CheckOutput, verbose bool) error {
	if len(out.CityStatuses) == 0 {
		fmt.Fprintln(w, status.NoDataText)
	}

	for _, cs := range out.CityStatuses {
		lines := cs.Lines()
		if len(lines) == 0 {
			fmt.Fprintf(w, "%s: %s\n", cs.City, status.NoInfoText)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", cs.City, lines[0])
		for _, line := range lines[1:] {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}

	fmt.Fprintf(w, "\n%s\n", out.EncodingLabel())

	if verbose {
		fmt.Fprintf(w, "Source: %s\n", out.Source)
		fmt.Fprintf(w, "Outcome: %s\n", out.Outcome)
		if out.Filter != "" {
			fmt.Fprintf(w, "Filter: %s\n", out.Filter)
		}
		if out.Cached {
			fmt.Fprintf(w, "Cached snapshot from %s\n", out.CheckedAt.Local().Format(timeLayout))
		}
	}

	return nil
}

func writeCheckMarkdown(w io.Writer, out *CheckOutput) error {
	md := markdown.NewMarkdown(w)

	md.H1("颱風停班停課資訊")
	md.PlainText("")

	if len(out.CityStatuses) == 0 {
		md.Note(status.NoDataText)
	} else {
		rows := make([][]string, 0, len(out.CityStatuses))
		suspended := 0
		for _, cs := range out.CityStatuses {
			if cs.Suspended() {
				suspended++
			}
			rows = append(rows, []string{cs.City, markdownCell(cs.Display())})
		}

		md.Table(markdown.TableSet{
			Header: []string{"縣市", "狀態"},
			Rows:   rows,
		})
		md.PlainText("")

		if suspended > 0 {
			chart := piechart.NewPieChart(
				io.Discard,
				piechart.WithTitle("停班停課縣市"),
				piechart.WithShowData(true),
			)
			chart.LabelAndIntValue("停止上班或上課", uint64(suspended))
			if other := len(out.CityStatuses) - suspended; other > 0 {
				chart.LabelAndIntValue("其他", uint64(other))
			}
			md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
			md.PlainText("")
		}
	}

	if out.Outcome != status.OutcomeOK && out.Outcome != status.OutcomeNoRows {
		md.Warningf("Fetch failed: %s", out.UsedEncoding)
	} else {
		md.PlainText(out.EncodingLabel())
	}

	return md.Build()
}

// WriteWatch writes the detected changes in the specified format
func WriteWatch(w io.Writer, out *WatchOutput, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, out)
	case FormatMarkdown:
		return writeWatchMarkdown(w, out)
	case FormatText:
		return writeWatchText(w, out)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeWatchText(w io.Writer, out *WatchOutput) error {
	if out.Refreshed {
		fmt.Fprintln(w, "Snapshot refreshed successfully.")
		return nil
	}

	if out.ChangeCount == 0 {
		fmt.Fprintln(w, "No changes found.")
		return nil
	}

	for _, c := range out.Changes {
		switch c.Kind {
		case status.ChangeNew:
			fmt.Fprintf(w, "NEW: %s: %s\n", c.City, oneLine(c.NewStatus))
		case status.ChangeRemoved:
			fmt.Fprintf(w, "REMOVED: %s (was: %s)\n", c.City, oneLine(c.OldStatus))
		default:
			fmt.Fprintf(w, "CHANGED: %s: %s -> %s\n", c.City, oneLine(c.OldStatus), oneLine(c.NewStatus))
		}
	}

	fmt.Fprintf(w, "\nTotal: %d %s\n", out.ChangeCount, plural(out.ChangeCount, "change", "changes"))
	return nil
}

func writeWatchMarkdown(w io.Writer, out *WatchOutput) error {
	md := markdown.NewMarkdown(w)

	md.H1("停班停課公告變動")
	md.PlainText("")

	if out.ChangeCount == 0 {
		md.Tip("No changes found.")
		return md.Build()
	}

	rows := make([][]string, 0, len(out.Changes))
	for _, c := range out.Changes {
		rows = append(rows, []string{string(c.Kind), c.City, markdownCell(c.OldStatus), markdownCell(c.NewStatus)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "縣市", "Before", "After"},
		Rows:   rows,
	})
	md.PlainText("")
	md.PlainTextf("Total: %d %s", out.ChangeCount, plural(out.ChangeCount, "change", "changes"))

	return md.Build()
}

// WriteHistory writes stored fetches in the specified format
func WriteHistory(w io.Writer, records []*history.FetchRecord, format OutputFormat) error {
	switch format {
	case FormatJSON:
		if records == nil {
			records = []*history.FetchRecord{}
		}
		return writeJSON(w, records)
	case FormatMarkdown:
		md := markdown.NewMarkdown(w)
		md.H1("Fetch history")
		md.PlainText("")
		if len(records) == 0 {
			md.Note("No fetches recorded.")
			return md.Build()
		}
		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, []string{
				r.FetchedAt.Local().Format(timeLayout),
				string(r.Outcome),
				r.UsedEncoding,
				strconv.Itoa(r.CityCount),
				strconv.Itoa(r.DataSize),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Fetched", "Outcome", "Encoding", "Cities", "Bytes"},
			Rows:   rows,
		})
		return md.Build()
	case FormatText:
		if len(records) == 0 {
			fmt.Fprintln(w, "No fetches recorded.")
			return nil
		}
		for _, r := range records {
			fmt.Fprintf(w, "%s  %-13s  %-16s  %2d %s  %d bytes\n",
				r.FetchedAt.Local().Format(timeLayout), r.Outcome, r.UsedEncoding,
				r.CityCount, plural(r.CityCount, "city", "cities"), r.DataSize)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteTimeline writes one city's announcements in the specified format
func WriteTimeline(w io.Writer, city string, entries []history.TimelineEntry, format OutputFormat) error {
	switch format {
	case FormatJSON:
		if entries == nil {
			entries = []history.TimelineEntry{}
		}
		return writeJSON(w, entries)
	case FormatMarkdown:
		md := markdown.NewMarkdown(w)
		md.H1(city)
		md.PlainText("")
		if len(entries) == 0 {
			md.Note("No announcements recorded.")
			return md.Build()
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.FetchedAt.Local().Format(timeLayout), markdownCell(displayStatus(e.Status))})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Since", "狀態"},
			Rows:   rows,
		})
		return md.Build()
	case FormatText:
		if len(entries) == 0 {
			fmt.Fprintf(w, "No announcements recorded for %s.\n", city)
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%s  %s\n", e.FetchedAt.Local().Format(timeLayout), oneLine(e.Status))
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// inspectOutput adds the diagnosis to the JSON form of a report.
type inspectOutput struct {
	*scraper.Report
	Diagnosis string `json:"diagnosis"`
}

// WriteInspect writes a page report in the specified format
func WriteInspect(w io.Writer, report *scraper.Report, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, inspectOutput{Report: report, Diagnosis: report.Diagnosis()})
	case FormatMarkdown:
		md := markdown.NewMarkdown(w)
		md.H1("Page inspection")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Property", "Value"},
			Rows:   inspectRows(report),
		})
		md.PlainText("")
		if report.Diagnosis() == "ok" || report.Diagnosis() == "no announcements" {
			md.Tip(report.Diagnosis())
		} else {
			md.Warning(report.Diagnosis())
		}
		return md.Build()
	case FormatText:
		for _, row := range inspectRows(report) {
			fmt.Fprintf(w, "%-18s %s\n", row[0]+":", row[1])
		}
		fmt.Fprintf(w, "\nDiagnosis: %s\n", report.Diagnosis())
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func inspectRows(r *scraper.Report) [][]string {
	encoding := r.UsedEncoding
	if !r.Decoded {
		encoding = "(none)"
	}
	return [][]string{
		{"Source", r.Source},
		{"Encoding", encoding},
		{"Size", fmt.Sprintf("%d bytes", r.DataSize)},
		{"Title", r.Title},
		{"Declared charset", r.DeclaredCharset},
		{"Table start", yesNo(r.TableStartFound)},
		{"Table end", yesNo(r.TableEndFound)},
		{"Marker rows", strconv.Itoa(r.MarkerRows)},
		{"DOM rows", strconv.Itoa(r.DOMRows)},
	}
}

func displayStatus(text string) string {
	return status.CityStatus{Status: text}.Display()
}

func oneLine(text string) string {
	return strings.ReplaceAll(displayStatus(text), "\n", " / ")
}

// markdownCell keeps a multi-line status inside one table cell.
func markdownCell(text string) string {
	text = strings.ReplaceAll(text, "|", `\|`)
	return strings.ReplaceAll(text, "\n", "<br>")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
