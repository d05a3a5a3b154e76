// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/resume-importer/internal/importer"
	"github.com/jonathan/resume-importer/internal/ingestion"
	"github.com/jonathan/resume-importer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, boxWidth-4)))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad right-pads s to the box content width, counting runes rather than bytes.
func pad(s string) string {
	if n := boxWidth - 4 - utf8.RuneCountInString(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// PrintProgress prints one line per extracted page.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(progress ingestion.PageProgress) {
	fmt.Fprintf(p.out, "  reading page %d/%d\n", progress.CurrentPage, progress.TotalPages)
}

// PrintExtractedText outputs the text extraction summary.
func (p *Printer) PrintExtractedText(text *ingestion.ExtractedText) {
	if text == nil || text.Metadata == nil {
		return
	}
	m := text.Metadata

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("File:        %s\n", m.SourceName))
	sb.WriteString(fmt.Sprintf("Format:      %s\n", m.Format))
	if m.Pages > 0 {
		sb.WriteString(fmt.Sprintf("Pages:       %d", m.Pages))
		if m.SkippedPages > 0 {
			sb.WriteString(fmt.Sprintf(" (%d unreadable)", m.SkippedPages))
		}
		sb.WriteString("\n")
	}
	if m.Parts > 0 {
		sb.WriteString(fmt.Sprintf("Paragraphs:  %d\n", m.Parts))
	}
	sb.WriteString(fmt.Sprintf("Characters:  %d\n", m.Characters))
	sb.WriteString(fmt.Sprintf("Took:        %s", m.Duration))

	p.printBox("EXTRACTED TEXT", sb.String())
}

// PrintDraft outputs a human-readable summary of the canonical draft.
func (p *Printer) PrintDraft(draft *types.CanonicalDraft) {
	if draft == nil {
		return
	}

	var sb strings.Builder
	info := draft.PersonalInfo
	sb.WriteString(fmt.Sprintf("Name:   %s\n", info.FullName))
	if info.JobTitle != "" {
		sb.WriteString(fmt.Sprintf("Title:  %s\n", info.JobTitle))
	}
	if info.Email != "" {
		sb.WriteString(fmt.Sprintf("Email:  %s\n", info.Email))
	}
	sb.WriteString("\n")

	if len(draft.Experiences) > 0 {
		sb.WriteString(fmt.Sprintf("Experience (%d):\n", len(draft.Experiences)))
		count := min(len(draft.Experiences), maxItemsToShow)
		for i := 0; i < count; i++ {
			exp := draft.Experiences[i]
			sb.WriteString(fmt.Sprintf("  • %s, %s", exp.Position, exp.Company))
			if span := dateSpan(exp.StartDate, exp.EndDate, exp.Current); span != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", span))
			}
			sb.WriteString("\n")
		}
		if len(draft.Experiences) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(draft.Experiences)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if len(draft.Education) > 0 {
		sb.WriteString(fmt.Sprintf("Education (%d):\n", len(draft.Education)))
		count := min(len(draft.Education), 3)
		for i := 0; i < count; i++ {
			edu := draft.Education[i]
			sb.WriteString(fmt.Sprintf("  • %s, %s\n", edu.Degree, edu.Institution))
		}
		if len(draft.Education) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(draft.Education)-3))
		}
		sb.WriteString("\n")
	}

	if len(draft.Skills) > 0 {
		names := make([]string, 0, len(draft.Skills))
		for _, s := range draft.Skills {
			if s.Level != "" {
				names = append(names, fmt.Sprintf("%s (%s)", s.Name, s.Level))
			} else {
				names = append(names, s.Name)
			}
		}
		sb.WriteString(fmt.Sprintf("Skills: %s\n", strings.Join(names, ", ")))
	}

	if len(draft.Languages) > 0 {
		names := make([]string, 0, len(draft.Languages))
		for _, l := range draft.Languages {
			if l.Level != "" {
				names = append(names, fmt.Sprintf("%s (%s)", l.Name, l.Level))
			} else {
				names = append(names, l.Name)
			}
		}
		sb.WriteString(fmt.Sprintf("Languages: %s\n", strings.Join(names, ", ")))
	}

	if n := len(draft.Projects) + len(draft.Certifications); n > 0 {
		sb.WriteString(fmt.Sprintf("Projects: %d, Certifications: %d\n", len(draft.Projects), len(draft.Certifications)))
	}

	p.printBox("RÉSUMÉ DRAFT (review before applying)", strings.TrimSuffix(sb.String(), "\n"))
}

func dateSpan(start, end string, current bool) string {
	switch {
	case current:
		if start == "" {
			return "current"
		}
		return start + " - present"
	case start != "" && end != "":
		return start + " - " + end
	case start != "":
		return start
	default:
		return end
	}
}

var recoveryHints = map[importer.Recovery]string{
	importer.RecoveryReupload: "Upload a different PDF or DOCX file.",
	importer.RecoveryRetry:    "Try again in a moment.",
	importer.RecoveryPay:      "Add credits to the extraction provider account.",
	importer.RecoveryEdit:     "Fix the draft and apply again.",
}

// PrintFailure outputs an import failure and what the user can do about it.
func (p *Printer) PrintFailure(failure *importer.Error) {
	if failure == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⚠ %s\n", failure.Kind))
	sb.WriteString(fmt.Sprintf("  %s\n", failure.Message))
	if failure.Cause != nil {
		sb.WriteString(fmt.Sprintf("  %s\n", truncate(failure.Cause.Error(), 45)))
	}
	if hint, ok := recoveryHints[failure.Recovery()]; ok {
		sb.WriteString("\n" + hint)
	}

	p.printBox(fmt.Sprintf("IMPORT FAILED (%s stage)", failure.Stage), strings.TrimSuffix(sb.String(), "\n"))
}
