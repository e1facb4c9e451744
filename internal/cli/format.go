package cli

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hession/coco/internal/config"
	"github.com/hession/coco/internal/retrieval"
	"github.com/hession/coco/internal/telemetry"
)

const maxTitleLen = 80

// FormatOutcome renders the ranked entries as "N. <title>: <link>" lines
// under the results header, or the no-results message when nothing was found.
func FormatOutcome(o *retrieval.Outcome, p config.LanguagePrompts) string {
	if o == nil || o.Status != retrieval.StatusFound || len(o.Entries) == 0 {
		return p.NoResults
	}

	var builder strings.Builder
	builder.WriteString(p.ResultsHeader)
	builder.WriteString("\n\n")
	for i, e := range o.Entries {
		title := truncateForDisplay(e.Result.Title, maxTitleLen)
		if title == "" {
			title = e.Result.DisplayHost
		}
		builder.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, title, e.Result.Link))
	}
	return strings.TrimRight(builder.String(), "\n")
}

// FormatEvents renders telemetry events newest first, one per line.
func FormatEvents(events []telemetry.Event, now time.Time) string {
	if len(events) == 0 {
		return "No events recorded yet"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📜 Recent events (%d)\n\n", len(events)))
	for _, ev := range events {
		id := ev.RequestID
		if len(id) > 8 {
			id = id[:8]
		}
		line := fmt.Sprintf("%s  %-8s %-10s %-20s", FormatAge(now.Sub(ev.CreatedAt)), id, truncateForDisplay(ev.User, 10), ev.Kind)
		if ev.Query != "" {
			line += fmt.Sprintf(" %q", truncateForDisplay(ev.Query, 40))
		}
		if ev.Count > 0 {
			line += fmt.Sprintf(" count=%d", ev.Count)
		}
		if ev.Message != "" {
			line += " " + truncateForDisplay(ev.Message, 60)
		}
		builder.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	return builder.String()
}

// truncateForDisplay flattens text onto one line and cuts it to at most
// maxLen bytes without splitting a multi-byte character.
func truncateForDisplay(text string, maxLen int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.TrimSpace(text)

	if len(text) <= maxLen {
		return text
	}
	n := maxLen
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n] + "..."
}

// FormatAge renders d as a short "ago" string.
func FormatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%2ds ago", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%2dm ago", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%2dh ago", int(d.Hours()))
	}
	return fmt.Sprintf("%2dd ago", int(d.Hours()/24))
}
