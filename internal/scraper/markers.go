package scraper

// Markers are the literal tags the extractor scans for. They must match the
// page text exactly, including spacing and case.
type Markers struct {
	TableStart string
	TableEnd   string
	Row        string
	CityStart  string
	FontEnd    string
	BlackStart string
	RedStart   string
}

// DefaultMarkers match the layout of the DGPA announcement page.
var DefaultMarkers = Markers{
	TableStart: `<TBODY class="Table_Body">`,
	TableEnd:   `</TBODY>`,
	Row:        `<TR>`,
	CityStart:  `<FONT >`,
	FontEnd:    `</FONT>`,
	BlackStart: `<FONT color=#000000 >`,
	RedStart:   `<FONT color=#FF0000 >`,
}

// complete reports whether every marker is set. An empty marker would match
// everywhere, so incomplete overrides fall back to the defaults.
func (m Markers) complete() bool {
	return m.TableStart != "" && m.TableEnd != "" && m.Row != "" &&
		m.CityStart != "" && m.FontEnd != "" && m.BlackStart != "" && m.RedStart != ""
}
