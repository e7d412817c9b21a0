// Package display renders feeds and channel views for the terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/vidsift/vidsift/internal/feed"
	"github.com/vidsift/vidsift/internal/youtube"
)

const titleWidth = 60

var (
	channelColor = color.New(color.FgCyan).SprintFunc()
	faintColor   = color.New(color.Faint).SprintFunc()
)

// Renderer writes tabular feed output.
type Renderer struct {
	w   io.Writer
	now func() time.Time
}

// New creates a Renderer writing to w.
func New(w io.Writer) *Renderer {
	return &Renderer{w: w, now: time.Now}
}

// RenderFeed prints a feed page as a table, followed by the pagination
// token when the feed has more pages.
func (r *Renderer) RenderFeed(result *feed.Result) {
	if len(result.Items) == 0 {
		fmt.Fprintln(r.w, "No videos to display.")
		return
	}

	rows := make([][]string, 0, len(result.Items))
	for i, v := range result.Items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			Truncate(v.Title, titleWidth),
			channelColor(v.ChannelTitle),
			FormatDuration(v.DurationSeconds),
			FormatCount(v.ViewCount),
			faintColor(r.relativeTime(v.PublishedAt)),
			v.ID,
		})
	}
	r.renderTable([]string{"#", "Title", "Channel", "Length", "Views", "Published", "ID"}, rows)

	if result.NextPageToken != "" {
		fmt.Fprintf(r.w, "\nNext page: --page %s\n", result.NextPageToken)
	}
}

// RenderChannel prints a channel header.
func (r *Renderer) RenderChannel(ch *youtube.ChannelSummary) {
	fmt.Fprintf(r.w, "%s\n", channelColor(ch.Title))
	fmt.Fprintf(r.w, "%s subscribers %s %s videos\n",
		FormatCount(ch.SubscriberCount), faintColor("|"), FormatCount(ch.VideoCount))
	if ch.Description != "" {
		fmt.Fprintln(r.w, Truncate(ch.Description, 200))
	}
}

// RenderSubscriptions prints the user's subscribed channels.
func (r *Renderer) RenderSubscriptions(channels []youtube.ChannelSummary) {
	if len(channels) == 0 {
		fmt.Fprintln(r.w, "No subscriptions to display.")
		return
	}

	rows := make([][]string, 0, len(channels))
	for _, ch := range channels {
		rows = append(rows, []string{
			channelColor(ch.Title),
			Truncate(ch.Description, 50),
			ch.ID,
		})
	}
	r.renderTable([]string{"Channel", "Description", "ID"}, rows)
}

// RenderQuota prints today's quota consumption and cache pressure.
func (r *Renderer) RenderQuota(used, cachedResults int) {
	fmt.Fprintf(r.w, "Quota used today: %d units\n", used)
	fmt.Fprintf(r.w, "Cached results:   %d\n", cachedResults)
}

func (r *Renderer) renderTable(header []string, rows [][]string) {
	table := tablewriter.NewTable(r.w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(header)
	_ = table.Bulk(rows)
	_ = table.Render()
}

func (r *Renderer) relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := r.now().Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return pluralize(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return pluralize(int(diff.Hours()), "hour")
	case diff < 30*24*time.Hour:
		return pluralize(int(diff.Hours()/24), "day")
	case diff < 365*24*time.Hour:
		return pluralize(int(diff.Hours()/24/30), "month")
	default:
		return pluralize(int(diff.Hours()/24/365), "year")
	}
}

// pluralize returns "N unit ago" or "N units ago" based on count.
func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// FormatDuration renders seconds as M:SS or H:MM:SS.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0:00"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatCount renders large counts compactly: 950, 8.1K, 12M, 3.4B.
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return trimTrailingZero(fmt.Sprintf("%.1f", float64(n)/1_000_000_000)) + "B"
	case n >= 1_000_000:
		return trimTrailingZero(fmt.Sprintf("%.1f", float64(n)/1_000_000)) + "M"
	case n >= 1_000:
		return trimTrailingZero(fmt.Sprintf("%.1f", float64(n)/1_000)) + "K"
	default:
		return fmt.Sprintf("%d", n)
	}
}

func trimTrailingZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}

// Truncate shortens text to maxLen runes, appending "..." when trimmed.
func Truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}
