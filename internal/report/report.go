// Package report renders API payloads for terminal output: model tables,
// context search results, usage summaries and transcript listings.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/sahilm/fuzzy"

	"cody-cli/internal/api"
)

var (
	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Faint(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00")).Bold(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#CC0000")).Bold(true)
)

// Heading renders a section heading.
func Heading(s string) string { return headingStyle.Render(s) }

// Label renders secondary detail text.
func Label(s string) string { return labelStyle.Render(s) }

// OK renders a success marker.
func OK(s string) string { return okStyle.Render(s) }

// Errorf renders an error line.
func Errorf(format string, args ...any) string {
	return errStyle.Render(fmt.Sprintf(format, args...))
}

// ModelsTable writes the model catalog as an aligned table.
func ModelsTable(w io.Writer, models []api.Model) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Owned By", "Created"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, m := range models {
		created := ""
		if m.Created > 0 {
			created = time.Unix(m.Created, 0).UTC().Format("2006-01-02")
		}
		table.Append([]string{m.ID, m.OwnedBy, created})
	}
	table.Render()
}

// FilterModels narrows the catalog by fuzzy-matching query against model
// IDs. An empty query keeps everything; matches come back in relevance
// order.
func FilterModels(models []api.Model, query string) []api.Model {
	query = strings.TrimSpace(query)
	if query == "" {
		return models
	}
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = strings.ToLower(m.ID)
	}
	results := fuzzy.Find(strings.ToLower(query), ids)
	out := make([]api.Model, 0, len(results))
	for _, res := range results {
		out = append(out, models[res.Index])
	}
	return out
}

// ModelDetail writes one model's fields line by line.
func ModelDetail(w io.Writer, m api.Model) {
	fmt.Fprintln(w, Heading(m.ID))
	fmt.Fprintf(w, "%s %s\n", Label("owned by:"), m.OwnedBy)
	if m.Created > 0 {
		fmt.Fprintf(w, "%s %s\n", Label("created:"),
			time.Unix(m.Created, 0).UTC().Format(time.RFC3339))
	}
}

// ContextResults writes code search hits: one heading per chunk with the
// file location, then the chunk body truncated to width columns per line.
func ContextResults(w io.Writer, results []api.ContextResult, width int) {
	if len(results) == 0 {
		fmt.Fprintln(w, Label("no results"))
		return
	}
	for i, res := range results {
		loc := fmt.Sprintf("%s:%d-%d", res.Blob.Path, res.StartLine, res.EndLine)
		fmt.Fprintf(w, "%s %s\n", Heading(fmt.Sprintf("[%d]", i+1)), loc)
		if res.Blob.Repository.Name != "" {
			fmt.Fprintf(w, "    %s\n", Label(res.Blob.Repository.Name))
		}
		for _, line := range strings.Split(strings.TrimRight(res.ChunkContent, "\n"), "\n") {
			fmt.Fprintf(w, "    %s\n", TruncateLine(line, width))
		}
		fmt.Fprintln(w)
	}
}

// UsageLine formats token usage as a single summary line.
func UsageLine(u api.Usage) string {
	return Label(fmt.Sprintf("tokens: prompt=%d completion=%d total=%d",
		u.PromptTokens, u.CompletionTokens, u.TotalTokens))
}

// ToolCallLine formats one tool invocation outcome for terminal output.
func ToolCallLine(name, id string, failed bool, detail string, d time.Duration) string {
	marker := OK("✓")
	if failed {
		marker = errStyle.Render("✗")
	}
	ms := strconv.FormatInt(d.Milliseconds(), 10)
	line := fmt.Sprintf("%s %s (%s, %s ms)", marker, name, id, ms)
	if detail != "" {
		line += " " + Label(detail)
	}
	return line
}

// TruncateLine cuts a line to the given display width, accounting for
// wide runes, with an ellipsis when anything was dropped.
func TruncateLine(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// ArtifactList writes transcript filenames, newest first, numbered.
func ArtifactList(w io.Writer, names []string) {
	if len(names) == 0 {
		fmt.Fprintln(w, Label("no transcripts yet"))
		return
	}
	for i, name := range names {
		fmt.Fprintf(w, "%2d. %s\n", i+1, name)
	}
}
