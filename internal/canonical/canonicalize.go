// Package canonical turns a validated StructuredDraft into a CanonicalDraft.
package canonical

import (
	"github.com/google/uuid"

	"github.com/jonathan/resume-importer/internal/types"
)

// IDSource returns a fresh identifier on every call.
type IDSource func() string

// Option configures a Canonicalizer.
type Option func(*Canonicalizer)

// WithIDSource replaces the random UUID source.
func WithIDSource(src IDSource) Option {
	return func(c *Canonicalizer) {
		c.newID = src
	}
}

// Canonicalizer assigns identifiers and fills defaults. It performs no semantic checks.
type Canonicalizer struct {
	newID IDSource
}

// New returns a Canonicalizer that assigns random UUIDv4 identifiers.
func New(opts ...Option) *Canonicalizer {
	c := &Canonicalizer{newID: uuid.NewString}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Canonicalize converts draft. Every repeatable entity gets a new identifier, absent
// "technologies" becomes an empty list, absent "current" becomes false, every list is
// non-nil, and the result is marked as produced by extraction.
func (c *Canonicalizer) Canonicalize(draft *types.StructuredDraft) *types.CanonicalDraft {
	out := &types.CanonicalDraft{
		Experiences:          make([]types.Experience, 0, len(draft.Experiences)),
		Education:            make([]types.Education, 0, len(draft.Education)),
		Skills:               make([]types.Skill, 0, len(draft.Skills)),
		Languages:            make([]types.Language, 0, len(draft.Languages)),
		Projects:             make([]types.Project, 0, len(draft.Projects)),
		Certifications:       make([]types.Certification, 0, len(draft.Certifications)),
		ProducedByExtraction: true,
	}

	if p := draft.PersonalInfo; p != nil {
		out.PersonalInfo = types.PersonalInfo{
			FullName: str(p.FullName),
			JobTitle: str(p.JobTitle),
			Email:    str(p.Email),
			Phone:    str(p.Phone),
			Location: str(p.Location),
			Website:  str(p.Website),
			LinkedIn: str(p.LinkedIn),
			Summary:  str(p.Summary),
		}
	}

	for _, e := range draft.Experiences {
		out.Experiences = append(out.Experiences, types.Experience{
			ID:          c.newID(),
			Company:     str(e.Company),
			Position:    str(e.Position),
			Location:    str(e.Location),
			StartDate:   str(e.StartDate),
			EndDate:     str(e.EndDate),
			Current:     e.Current != nil && *e.Current,
			Description: str(e.Description),
		})
	}
	for _, e := range draft.Education {
		out.Education = append(out.Education, types.Education{
			ID:          c.newID(),
			Institution: str(e.Institution),
			Degree:      str(e.Degree),
			Field:       str(e.Field),
			StartDate:   str(e.StartDate),
			EndDate:     str(e.EndDate),
			Description: str(e.Description),
		})
	}
	for _, s := range draft.Skills {
		out.Skills = append(out.Skills, types.Skill{
			ID:    c.newID(),
			Name:  str(s.Name),
			Level: types.SkillLevel(str(s.Level)),
		})
	}
	for _, l := range draft.Languages {
		out.Languages = append(out.Languages, types.Language{
			ID:    c.newID(),
			Name:  str(l.Name),
			Level: types.LanguageLevel(str(l.Level)),
		})
	}
	for _, p := range draft.Projects {
		techs := make([]string, 0, len(p.Technologies))
		techs = append(techs, p.Technologies...)
		out.Projects = append(out.Projects, types.Project{
			ID:           c.newID(),
			Name:         str(p.Name),
			Description:  str(p.Description),
			URL:          str(p.URL),
			Technologies: techs,
		})
	}
	for _, cert := range draft.Certifications {
		out.Certifications = append(out.Certifications, types.Certification{
			ID:     c.newID(),
			Name:   str(cert.Name),
			Issuer: str(cert.Issuer),
			Date:   str(cert.Date),
			URL:    str(cert.URL),
		})
	}
	return out
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
