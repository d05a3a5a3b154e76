package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/jonathan/resume-importer/internal/types"
)

var (
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe    = regexp.MustCompile(`\+?\(?\d[\d\s().\-]{7,}\d`)
	linkedInRe = regexp.MustCompile(`(?i)(https?://)?([a-z]{2,3}\.)?linkedin\.com/in/[^\s,;|)]+`)
	urlRe      = regexp.MustCompile(`(?i)https?://[^\s,;|)]+`)
	listSepRe  = regexp.MustCompile(`\s*[,;|•·]\s*`)
	levelRe    = regexp.MustCompile(`^(.+?)\s*(?:\(([^)]*)\)|\s[-–]\s+(.+)|:\s*(.+))$`)
	titleSepRe = regexp.MustCompile(`\s*(?:,|\||\s[-–—]\s)\s*`)
)

var (
	skillHeadings    = []string{"skills", "technical skills", "compétences", "competences", "compétences techniques"}
	languageHeadings = []string{"languages", "langues"}
)

// RuleBasedService extracts the few fields that can be recognized without a model:
// contact details, the name and title on the heading line, and inline skill and
// language lists. It never fills a field it cannot find in the text.
type RuleBasedService struct{}

// NewRuleBasedService returns a RuleBasedService.
func NewRuleBasedService() *RuleBasedService {
	return &RuleBasedService{}
}

// Extract runs the heuristics and validates the result like any other service output.
func (s *RuleBasedService) Extract(ctx context.Context, req Request) (*types.StructuredDraft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	draft := extractByRules(req.Text)
	raw, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rule-based draft: %w", err)
	}
	return DecodeDraft(string(raw), req.Schema)
}

func extractByRules(text string) *types.StructuredDraft {
	lines := nonEmptyLines(text)
	draft := &types.StructuredDraft{}

	info := &types.RawPersonalInfo{}
	found := false
	if name, title := headingIdentity(lines); name != "" {
		info.FullName = types.Str(name)
		if title != "" {
			info.JobTitle = types.Str(title)
		}
		found = true
	}
	if m := emailRe.FindString(text); m != "" {
		info.Email = types.Str(m)
	}
	if m := findPhone(text); m != "" {
		info.Phone = types.Str(m)
	}
	if m := linkedInRe.FindString(text); m != "" {
		info.LinkedIn = types.Str(m)
	}
	for _, m := range urlRe.FindAllString(text, -1) {
		if !linkedInRe.MatchString(m) {
			info.Website = types.Str(m)
			break
		}
	}
	if found {
		draft.PersonalInfo = info
	}

	for _, item := range sectionItems(lines, skillHeadings) {
		name, level := splitLevel(item)
		skill := types.RawSkill{Name: types.Str(name)}
		if l := skillLevel(level); l != "" {
			skill.Level = types.Str(string(l))
		}
		draft.Skills = append(draft.Skills, skill)
	}
	for _, item := range sectionItems(lines, languageHeadings) {
		name, level := splitLevel(item)
		lang := types.RawLanguage{Name: types.Str(name)}
		if l := languageLevel(level); l != "" {
			lang.Level = types.Str(string(l))
		}
		draft.Languages = append(draft.Languages, lang)
	}
	return draft
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// headingIdentity reads the name from the first line that looks like a person's name.
// "Jean Dupont, Développeur" yields both name and title; otherwise the following line
// is taken as the title when it is short and carries no contact details.
func headingIdentity(lines []string) (string, string) {
	for i, line := range lines {
		if i > 3 {
			break
		}
		if isContactLine(line) {
			continue
		}
		parts := titleSepRe.Split(line, 2)
		if !looksLikeName(parts[0]) {
			continue
		}
		if len(parts) == 2 && parts[1] != "" && !isContactLine(parts[1]) {
			return parts[0], parts[1]
		}
		if i+1 < len(lines) {
			next := lines[i+1]
			if !isContactLine(next) && !isHeading(next) && !strings.Contains(next, ":") &&
				!strings.ContainsAny(next, "0123456789") && len(strings.Fields(next)) <= 6 {
				return parts[0], next
			}
		}
		return parts[0], ""
	}
	return "", ""
}

func isContactLine(line string) bool {
	return emailRe.MatchString(line) || findPhone(line) != "" || urlRe.MatchString(line) || linkedInRe.MatchString(line)
}

// findPhone returns the first run that has enough digits to be a phone number.
// Date ranges such as "2019 - 2023" are too short to qualify.
func findPhone(text string) string {
	for _, m := range phoneRe.FindAllString(text, -1) {
		digits := 0
		for _, r := range m {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		if digits >= 9 {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

func looksLikeName(s string) bool {
	words := strings.Fields(s)
	if len(words) < 2 || len(words) > 5 {
		return false
	}
	for _, w := range words {
		first := []rune(w)[0]
		if !unicode.IsUpper(first) {
			return false
		}
		for _, r := range w {
			if !unicode.IsLetter(r) && r != '-' && r != '\'' && r != '.' {
				return false
			}
		}
	}
	return !isHeading(s)
}

func isHeading(line string) bool {
	key := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(line), ":"))
	for _, h := range append(append([]string{"experience", "expérience", "education", "formation", "projects", "projets", "certifications", "summary", "profil", "profile", "curriculum vitae", "resume", "résumé", "cv"}, skillHeadings...), languageHeadings...) {
		if key == h {
			return true
		}
	}
	return false
}

// sectionItems returns the items of "Heading: a, b, c" or of the lines below a bare
// heading, up to the next heading.
func sectionItems(lines []string, headings []string) []string {
	var items []string
	for i, line := range lines {
		head, rest, hasColon := strings.Cut(line, ":")
		if !matchesHeading(head, headings) {
			continue
		}
		if hasColon && strings.TrimSpace(rest) != "" {
			items = append(items, splitList(rest)...)
			continue
		}
		for _, next := range lines[i+1:] {
			if isHeading(next) {
				break
			}
			items = append(items, splitList(strings.TrimLeft(next, "-*•· "))...)
		}
	}
	return items
}

func matchesHeading(s string, headings []string) bool {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, h := range headings {
		if key == h {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, item := range listSepRe.Split(strings.TrimSpace(s), -1) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// splitLevel separates "French (native)" or "Go - expert" into name and level text.
func splitLevel(item string) (string, string) {
	m := levelRe.FindStringSubmatch(item)
	if m == nil {
		return item, ""
	}
	level := m[2] + m[3] + m[4]
	return strings.TrimSpace(m[1]), strings.ToLower(strings.TrimSpace(level))
}

func skillLevel(s string) types.SkillLevel {
	switch {
	case s == "":
		return ""
	case containsAny(s, "expert"):
		return types.SkillExpert
	case containsAny(s, "advanced", "avancé", "avance", "confirmé"):
		return types.SkillAdvanced
	case containsAny(s, "intermediate", "intermédiaire", "intermediaire"):
		return types.SkillIntermediate
	case containsAny(s, "beginner", "débutant", "debutant", "notions"):
		return types.SkillBeginner
	}
	return ""
}

func languageLevel(s string) types.LanguageLevel {
	switch {
	case s == "":
		return ""
	case containsAny(s, "native", "maternelle", "mother tongue"):
		return types.LanguageNative
	case containsAny(s, "fluent", "courant", "bilingual", "bilingue", "c2", "c1"):
		return types.LanguageFluent
	case containsAny(s, "professional", "professionnel", "b2"):
		return types.LanguageProfessional
	case containsAny(s, "conversational", "intermediate", "intermédiaire", "b1"):
		return types.LanguageConversational
	case containsAny(s, "basic", "beginner", "notions", "scolaire", "débutant", "a1", "a2"):
		return types.LanguageBasic
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
