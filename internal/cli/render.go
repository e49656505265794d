package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/pattern"
)

// RenderOutcome summarizes a categorization run.
func RenderOutcome(o model.BatchOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", BoldStyle.Render("From merchant cache:"), o.AppliedByCache)
	fmt.Fprintf(&b, "%s %d\n", BoldStyle.Render("From rules:         "), o.AppliedByRules)
	fmt.Fprintf(&b, "%s %d (%d applied)\n", BoldStyle.Render("Sent to AI:         "), o.SentToAI, o.AppliedByAI)
	fmt.Fprintf(&b, "%s %d\n", BoldStyle.Render("Still uncategorized:"), o.RemainingUncategorized)
	b.WriteString(SubtleStyle.Render(fmt.Sprintf("run %s in %s", o.RunID, o.Duration.Round(time.Millisecond))))

	if len(o.Suggestions) > 0 {
		b.WriteString("\n" + FormatInfo(fmt.Sprintf("%d suggestions need review", len(o.Suggestions))))
	}
	for _, e := range o.Errors {
		label := e.TransactionID
		if label == "" {
			label = "batch"
		}
		b.WriteString("\n" + FormatError(fmt.Sprintf("%s: %s", label, e.Message)))
	}

	return RenderBox("Categorization complete", b.String())
}

// RenderRules lists rules as a table.
func RenderRules(rules []model.Rule) string {
	if len(rules) == 0 {
		return SubtleStyle.Render("No rules.")
	}

	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		owner := "global"
		if !r.IsGlobal() {
			owner = "household"
		}
		state := SuccessStyle.Render("active")
		if !r.Active {
			state = SubtleStyle.Render("inactive")
		}
		rows = append(rows, []string{
			fmt.Sprint(r.ID), r.Pattern, string(r.MatchType), r.Category,
			fmt.Sprint(r.Priority), fmt.Sprintf("%.2f", r.Confidence), fmt.Sprint(r.UseCount), owner, state,
		})
	}
	return renderTable([]string{"ID", "PATTERN", "MATCH", "CATEGORY", "PRIORITY", "CONF", "USES", "OWNER", "STATE"}, rows)
}

// RenderCache lists merchant cache entries.
func RenderCache(entries []model.CacheEntry) string {
	if len(entries) == 0 {
		return SubtleStyle.Render("Merchant cache is empty.")
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Fingerprint, e.Category, fmt.Sprintf("%.2f", e.Confidence),
			fmt.Sprint(e.HitCount), e.LastSeen.Format("2006-01-02"),
		})
	}
	return renderTable([]string{"FINGERPRINT", "CATEGORY", "CONF", "HITS", "LAST SEEN"}, rows)
}

// RenderCategories lists categories, fixed ones first.
func RenderCategories(categories []model.Category) string {
	rows := make([][]string, 0, len(categories))
	for _, c := range categories {
		kind := "fixed"
		if !c.IsGlobal() {
			kind = "custom"
		}
		rows = append(rows, []string{c.ID, c.Name, kind})
	}
	return renderTable([]string{"ID", "NAME", "KIND"}, rows)
}

// RenderSeedReport summarizes a seeding run.
func RenderSeedReport(r model.SeedReport) string {
	msg := FormatSuccess(fmt.Sprintf("Seeded %d categories, %d new rules", r.CategoriesProcessed, r.RulesInserted))
	for _, e := range r.Errors {
		msg += "\n" + FormatWarning(e)
	}
	return msg
}

// RenderLearnResult describes what a correction taught.
func RenderLearnResult(r model.LearnResult) string {
	var lines []string
	if r.CacheWritten {
		lines = append(lines, FormatSuccess(fmt.Sprintf("Remembered merchant %q", r.Fingerprint)))
	}
	switch {
	case r.RuleCreated && r.Rule != nil:
		lines = append(lines, FormatSuccess(fmt.Sprintf("Created rule %q → %s", r.Rule.Pattern, r.Rule.Category)))
	case r.Rule != nil:
		lines = append(lines, FormatInfo(fmt.Sprintf("Rule %q already covers this", r.Rule.Pattern)))
	case r.SkipReason != "":
		lines = append(lines, FormatInfo("No rule learned: "+r.SkipReason))
	}
	if r.Deactivated > 0 {
		lines = append(lines, FormatWarning(fmt.Sprintf("Deactivated %d conflicting rules", r.Deactivated)))
	}
	if len(lines) == 0 {
		return FormatSuccess("Correction saved")
	}
	return strings.Join(lines, "\n")
}

// RenderNearDuplicates lists lint findings.
func RenderNearDuplicates(findings []pattern.NearDuplicate) string {
	if len(findings) == 0 {
		return FormatSuccess("No near-duplicate rules.")
	}

	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		note := ""
		if f.Conflicting() {
			note = ErrorStyle.Render("conflicting categories")
		}
		rows = append(rows, []string{
			fmt.Sprintf("#%d %s (%s)", f.First.ID, f.First.Pattern, f.First.Category),
			fmt.Sprintf("#%d %s (%s)", f.Second.ID, f.Second.Pattern, f.Second.Category),
			fmt.Sprint(f.Distance), note,
		})
	}
	return renderTable([]string{"FIRST", "SECOND", "EDITS", ""}, rows)
}

func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = TableCellStyle.Width(widths[i] + 2).Render(cell)
		}
		return style.Render(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}

	out := []string{line(headers, TableHeaderStyle)}
	for _, row := range rows {
		out = append(out, line(row, lipgloss.NewStyle()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}
