package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"

	"github.com/showdeck/showdeck/internal/history"
	"github.com/showdeck/showdeck/internal/library"
	"github.com/showdeck/showdeck/internal/metadata"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	starStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func renderEntry(e library.Entry) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(e.Title))
	if e.Season > 0 || e.Episode > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf(" S%02dE%02d", e.Season, e.Episode)))
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("  [%s %s]", e.MediaType, e.MediaID)))
	if !e.AddedAt.IsZero() {
		b.WriteString(dimStyle.Render("  added " + humanize.Time(e.AddedAt)))
	}
	return b.String()
}

func renderHistoryItem(item history.EnrichedItem) string {
	var b strings.Builder

	if item.FailedToLoad {
		b.WriteString(failedStyle.Render("! "))
	}
	b.WriteString(titleStyle.Render(item.Title))
	if item.Year != "" {
		b.WriteString(dimStyle.Render(" (" + item.Year + ")"))
	}
	if item.EpisodeTitle != "" {
		b.WriteString(fmt.Sprintf(" — S%02dE%02d %q", item.Season, item.Episode, item.EpisodeTitle))
	} else if item.Episode > 0 {
		b.WriteString(fmt.Sprintf(" — S%02dE%02d", item.Season, item.Episode))
	}

	b.WriteString(dimStyle.Render("  " + renderProgress(item.Item)))
	if !item.WatchedAt.IsZero() {
		b.WriteString(dimStyle.Render("  watched " + humanize.Time(item.WatchedAt)))
	}
	return b.String()
}

func renderProgress(item history.Item) string {
	if item.Completed {
		return "finished"
	}
	if item.DurationSeconds <= 0 {
		return fmt.Sprintf("%dm in", item.ProgressSeconds/60)
	}
	remaining := (item.DurationSeconds - item.ProgressSeconds) / 60
	return fmt.Sprintf("%.0f%% · %dm left", item.ProgressPercent, remaining)
}

func renderSearchResult(d metadata.Details, favorited bool) string {
	var b strings.Builder
	if favorited {
		b.WriteString(starStyle.Render("★ "))
	} else {
		b.WriteString("  ")
	}
	b.WriteString(titleStyle.Render(d.DisplayTitle()))
	if year := d.Year(); year != "" {
		b.WriteString(dimStyle.Render(" (" + year + ")"))
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("  #%d", d.ID)))
	if d.Overview != "" {
		b.WriteString("\n    " + dimStyle.Render(truncate(d.Overview, 120)))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "…"
}

// entryTitles adapts a favorites snapshot for fuzzy matching.
type entryTitles []library.Entry

func (e entryTitles) String(i int) string { return e[i].Title }
func (e entryTitles) Len() int            { return len(e) }

// filterEntries narrows entries to fuzzy matches on the title.
func filterEntries(entries []library.Entry, query string) []library.Entry {
	if query == "" {
		return entries
	}

	matches := fuzzy.FindFrom(query, entryTitles(entries))
	out := make([]library.Entry, 0, len(matches))
	for _, m := range matches {
		out = append(out, entries[m.Index])
	}
	return out
}
