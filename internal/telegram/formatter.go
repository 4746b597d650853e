package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/pfrederiksen/typhoon/internal/status"
)

// SourceURL is linked from every message.
const SourceURL = "https://www.dgpa.gov.tw/typh/daily/nds.html"

// FormatChange formats a single status change as a Telegram HTML message
func FormatChange(c *status.Change) string {
	var msg strings.Builder

	city := html.EscapeString(c.City)

	// Header with emoji
	switch c.Kind {
	case status.ChangeNew:
		msg.WriteString(fmt.Sprintf("🌀 <b>%s</b> 新公告\n\n", city))
	case status.ChangeRemoved:
		msg.WriteString(fmt.Sprintf("🌀 <b>%s</b> 公告已移除\n\n", city))
	default:
		msg.WriteString(fmt.Sprintf("🌀 <b>%s</b> 公告更新\n\n", city))
	}

	if c.Kind != status.ChangeRemoved {
		writeStatus(&msg, c.NewStatus)
	}

	if c.Kind != status.ChangeNew {
		msg.WriteString(fmt.Sprintf("\n<i>原公告: %s</i>\n", html.EscapeString(oneLine(c.OldStatus))))
	}

	if c.Suspended() {
		msg.WriteString("\n⚠️ <b>停止上班或上課</b>\n")
	}

	// Source link
	msg.WriteString(fmt.Sprintf("\n🔗 <a href=\"%s\">行政院人事行政總處</a>\n", SourceURL))

	// Hashtags
	msg.WriteString(fmt.Sprintf("\n#颱風假 #%s", hashtag(c.City)))

	return truncate(msg.String(), MaxMessageLength)
}

// FormatSummary creates a single message listing several changes, one line each
func FormatSummary(changes []*status.Change) string {
	var msg strings.Builder

	msg.WriteString("🌀 <b>停班停課公告更新</b>\n\n")
	msg.WriteString(fmt.Sprintf("共 <b>%d</b> 個縣市有變動", len(changes)))

	suspended := 0
	for _, c := range changes {
		if c.Suspended() {
			suspended++
		}
	}
	if suspended > 0 {
		msg.WriteString(fmt.Sprintf(", 其中 %d 個停止上班或上課", suspended))
	}
	msg.WriteString("\n\n")

	for _, c := range changes {
		text := c.NewStatus
		if c.Kind == status.ChangeRemoved {
			text = "(已移除)"
		}
		msg.WriteString(fmt.Sprintf("• <b>%s</b>: %s\n", html.EscapeString(c.City), html.EscapeString(oneLine(text))))
	}

	msg.WriteString(fmt.Sprintf("\n🔗 <a href=\"%s\">行政院人事行政總處</a>\n\n#颱風假", SourceURL))

	return truncate(msg.String(), MaxMessageLength)
}

// writeStatus writes the primary line in bold and the follow-up line in italics.
func writeStatus(msg *strings.Builder, text string) {
	cs := status.CityStatus{Status: text}
	lines := cs.Lines()
	if len(lines) == 0 {
		msg.WriteString(fmt.Sprintf("%s\n", status.NoInfoText))
		return
	}
	msg.WriteString(fmt.Sprintf("📢 <b>%s</b>\n", html.EscapeString(lines[0])))
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		msg.WriteString(fmt.Sprintf("<i>%s</i>\n", html.EscapeString(line)))
	}
}

func oneLine(text string) string {
	if text == "" {
		return status.NoInfoText
	}
	return strings.Join(strings.Fields(text), " ")
}

func hashtag(city string) string {
	return strings.Join(strings.Fields(status.NormalizeCity(city)), "")
}

// truncate cuts text to max characters, marking the cut with an ellipsis.
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-1]) + "…"
}
