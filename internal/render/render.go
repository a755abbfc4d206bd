// Package render draws research results as terminal tables.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"keyword-agent/internal/config"
	"keyword-agent/pkg/export"
	"keyword-agent/pkg/research"
)

const unknownVolume = "n/a"

// Report writes the trends table, the suggestions table and the notices.
func Report(w io.Writer, report *research.Report) error {
	req := report.Request
	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s · %s · %s · %d months", req.Keyword, req.Region, req.Language, req.Months)))
	b.WriteString("\n\n")

	b.WriteString(section("Google Trends", report.Trends.Len(), report.Trends.Total))
	b.WriteString(trendsTable(report.Trends.Items))
	b.WriteString("\n\n")

	b.WriteString(section("Yandex Suggest", report.Suggestions.Len(), report.Suggestions.Total))
	b.WriteString(suggestionsTable(report.Suggestions.Items))
	b.WriteString("\n")

	if len(report.Notices) > 0 {
		b.WriteString("\n")
		b.WriteString(Notices(report.Notices))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func section(name string, shown, total int) string {
	line := SectionStyle.Render(name)
	if total > shown {
		line += DimStyle.Render(fmt.Sprintf(" (top %d of %d)", shown, total))
	}
	return line + "\n"
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(BorderStyle).
		Headers(headers...)
}

func trendsTable(items []research.EnrichedKeyword) string {
	t := newTable(append([]string{"#"}, export.TrendsLabels...)...)
	for i, item := range items {
		vol := unknownVolume
		if item.MonthlySearches != nil {
			vol = strconv.FormatInt(*item.MonthlySearches, 10)
		}
		t.Row(strconv.Itoa(i+1), item.Text, vol)
	}
	return t.Render()
}

func suggestionsTable(items []research.SuggestionRecord) string {
	t := newTable(append([]string{"#"}, export.SuggestionsLabels...)...)
	for i, item := range items {
		t.Row(strconv.Itoa(i+1), item.Text)
	}
	return t.Render()
}

// Notices renders one line per notice; warnings are highlighted.
func Notices(notices []research.Notice) string {
	var b strings.Builder
	for _, n := range notices {
		label := DimStyle.Render("info")
		if n.Level == research.NoticeWarning {
			label = WarningStyle.Render("warning")
		}
		source := string(n.Source)
		if n.Reason != "" {
			source += "/" + string(n.Reason)
		}
		fmt.Fprintf(&b, "%s [%s] %s\n", label, source, n.Message)
	}
	return b.String()
}

// Catalog lists the configured regions and languages.
func Catalog(w io.Writer, regions []config.Region, languages []config.Language) error {
	rt := newTable("Region", "Trends geo", "Forecast geo ids")
	for _, r := range regions {
		ids := make([]string, len(r.ForecastGeoIDs))
		for i, id := range r.ForecastGeoIDs {
			ids[i] = strconv.Itoa(id)
		}
		rt.Row(r.Name, r.TrendsGeo, strings.Join(ids, ","))
	}

	lt := newTable("Language", "Code")
	for _, l := range languages {
		lt.Row(l.Name, l.Code)
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n\n%s\n%s\n",
		SectionStyle.Render("Regions"), rt.Render(),
		SectionStyle.Render("Languages"), lt.Render())
	return err
}
