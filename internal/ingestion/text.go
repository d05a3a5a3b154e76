package ingestion

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	inlineSpaceRe  = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	blankLineRunRe = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalizes text recovered from a page: line endings become LF, each line
// is trimmed on the right with inner runs of spaces collapsed, and runs of blank lines
// are capped at one. Indentation of bullet lines is kept.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	result := strings.Join(lines, "\n")
	result = blankLineRunRe.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t\u00a0")
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return ""
	}

	body := inlineSpaceRe.ReplaceAllString(trimmed, " ")
	if isBulletLine(trimmed) {
		if indent := len(line) - len(trimmed); indent > 0 {
			return strings.Repeat(" ", indent) + body
		}
	}
	return body
}

func isBulletLine(line string) bool {
	for _, prefix := range []string{"- ", "* ", "• ", "· ", "▪ ", "◦ "} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// RequireMinLength rejects text whose trimmed length in characters is below min.
func RequireMinLength(text string, min int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n < min || n == 0 {
		return &InsufficientTextError{Length: n, Min: min}
	}
	return nil
}
