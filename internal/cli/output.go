package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/local/pdfbinder/internal/bundle"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

// printSummary renders the outcome of a run. Skipped documents are always
// listed so a skip-policy run that exits 0 still reports what was left out.
func printSummary(w io.Writer, rep *bundle.Report, runErr error) {
	if rep == nil {
		return
	}
	var b strings.Builder
	if runErr == nil {
		fmt.Fprintf(&b, "%s %s\n", successStyle.Render("Bundle written:"), displayPath(rep.Output))
		fmt.Fprintf(&b, "%s %s  %s %s  %s %d\n",
			dimStyle.Render("Total:"), pageWord(rep.TotalPages),
			dimStyle.Render("TOC:"), pageWord(rep.TOCPages),
			dimStyle.Render("Passes:"), rep.Iterations)
	} else {
		fmt.Fprintf(&b, "%s %v\n", errorStyle.Render("Bundle not written:"), runErr)
		if p := bundle.DocumentPath(runErr); p != "" {
			fmt.Fprintf(&b, "%s %s\n", dimStyle.Render("Document:"), displayPath(p))
		}
	}
	fmt.Fprintf(&b, "%s %s", dimStyle.Render("Run:"), rep.RunID)

	fmt.Fprintln(w, boxStyle.Render(b.String()))

	if len(rep.Documents) > 0 && runErr == nil {
		fmt.Fprintln(w, titleStyle.Render("Documents"))
		for _, d := range rep.Documents {
			fmt.Fprintln(w, documentLine(d))
		}
	}
	if skipped := rep.Skipped(); len(skipped) > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%d document(s) skipped:", len(skipped))))
		for _, d := range skipped {
			fmt.Fprintf(w, "  %s %s\n", displayPath(d.Path), dimStyle.Render(d.Error))
		}
	}
}

func documentLine(d bundle.DocumentResult) string {
	switch d.Outcome {
	case bundle.OutcomeConverted:
		return fmt.Sprintf("  %s %s %s",
			successStyle.Render("✓"), d.Title,
			dimStyle.Render(fmt.Sprintf("p.%d, %s, Bates %d-%d", d.StartPage, pageWord(d.Pages), d.BatesStart, d.BatesEnd)))
	case bundle.OutcomePlaceholder:
		return fmt.Sprintf("  %s %s %s", warnStyle.Render("○"), d.Title,
			dimStyle.Render(fmt.Sprintf("p.%d, placeholder", d.StartPage)))
	case bundle.OutcomeCanceled:
		return fmt.Sprintf("  %s %s %s", dimStyle.Render("–"), d.Title, dimStyle.Render("canceled"))
	case bundle.OutcomeSkipped:
		return fmt.Sprintf("  %s %s %s", warnStyle.Render("–"), d.Title, dimStyle.Render("skipped"))
	default:
		return fmt.Sprintf("  %s %s", errorStyle.Render("✗"), d.Title)
	}
}
