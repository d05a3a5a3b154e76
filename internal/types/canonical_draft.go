// Package types provides the résumé entity types produced by the import pipeline.
package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CanonicalDraft is the fully-typed result of an import, ready for human review.
// Every repeatable entity carries an identifier assigned once by the canonicalizer.
type CanonicalDraft struct {
	PersonalInfo   PersonalInfo    `json:"personalInfo"`
	Experiences    []Experience    `json:"experiences" validate:"dive"`
	Education      []Education     `json:"education" validate:"dive"`
	Skills         []Skill         `json:"skills" validate:"dive"`
	Languages      []Language      `json:"languages" validate:"dive"`
	Projects       []Project       `json:"projects" validate:"dive"`
	Certifications []Certification `json:"certifications" validate:"dive"`

	// ProducedByExtraction records that the content came from this pipeline.
	ProducedByExtraction bool `json:"producedByExtraction"`
}

// PersonalInfo is the singleton identity block of a résumé.
type PersonalInfo struct {
	FullName string `json:"fullName" validate:"required"`
	JobTitle string `json:"jobTitle"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	Website  string `json:"website,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Summary  string `json:"summary"`
}

// Experience is one position in the work history.
// When Current is true consumers ignore EndDate; the pipeline never clears it.
type Experience struct {
	ID          string `json:"id" validate:"required"`
	Company     string `json:"company" validate:"required"`
	Position    string `json:"position" validate:"required"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

// Education is one degree or course of study.
type Education struct {
	ID          string `json:"id" validate:"required"`
	Institution string `json:"institution" validate:"required"`
	Degree      string `json:"degree" validate:"required"`
	Field       string `json:"field"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
}

// Skill is a named competence with an optional level.
type Skill struct {
	ID    string     `json:"id" validate:"required"`
	Name  string     `json:"name" validate:"required"`
	Level SkillLevel `json:"level" validate:"omitempty,oneof=beginner intermediate advanced expert"`
}

// Language is a spoken language with an optional level.
type Language struct {
	ID    string        `json:"id" validate:"required"`
	Name  string        `json:"name" validate:"required"`
	Level LanguageLevel `json:"level" validate:"omitempty,oneof=basic conversational professional fluent native"`
}

// Project is a personal or professional project.
type Project struct {
	ID           string   `json:"id" validate:"required"`
	Name         string   `json:"name" validate:"required"`
	Description  string   `json:"description"`
	URL          string   `json:"url,omitempty"`
	Technologies []string `json:"technologies"`
}

// Certification is a credential issued by a third party.
type Certification struct {
	ID     string `json:"id" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Issuer string `json:"issuer" validate:"required"`
	Date   string `json:"date"`
	URL    string `json:"url,omitempty"`
}

// IDs returns every repeatable-entity identifier in the draft, in entity order.
func (d *CanonicalDraft) IDs() []string {
	ids := make([]string, 0, d.Count())
	for _, e := range d.Experiences {
		ids = append(ids, e.ID)
	}
	for _, e := range d.Education {
		ids = append(ids, e.ID)
	}
	for _, s := range d.Skills {
		ids = append(ids, s.ID)
	}
	for _, l := range d.Languages {
		ids = append(ids, l.ID)
	}
	for _, p := range d.Projects {
		ids = append(ids, p.ID)
	}
	for _, c := range d.Certifications {
		ids = append(ids, c.ID)
	}
	return ids
}

// Normalize replaces nil entity lists and nil project technologies with empty
// slices so the draft always encodes arrays, never null.
func (d *CanonicalDraft) Normalize() {
	d.Experiences = nonNil(d.Experiences)
	d.Education = nonNil(d.Education)
	d.Skills = nonNil(d.Skills)
	d.Languages = nonNil(d.Languages)
	d.Projects = nonNil(d.Projects)
	d.Certifications = nonNil(d.Certifications)
	for i := range d.Projects {
		d.Projects[i].Technologies = nonNil(d.Projects[i].Technologies)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Count returns the number of repeatable entities in the draft.
func (d *CanonicalDraft) Count() int {
	return len(d.Experiences) + len(d.Education) + len(d.Skills) +
		len(d.Languages) + len(d.Projects) + len(d.Certifications)
}

// DuplicateIDError reports an identifier used by more than one entity.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate entity id: %s", e.ID)
}

// ValidateCanonicalDraft checks the structural invariants of a draft edited by a reviewer:
// required fields, level enums and identifier uniqueness. Dates are not interpreted.
func ValidateCanonicalDraft(d *CanonicalDraft) error {
	if d == nil {
		return fmt.Errorf("draft is nil")
	}
	validate := validator.New()
	if err := validate.Struct(d); err != nil {
		return err
	}

	seen := make(map[string]struct{}, d.Count())
	for _, id := range d.IDs() {
		if _, dup := seen[id]; dup {
			return &DuplicateIDError{ID: id}
		}
		seen[id] = struct{}{}
	}
	return nil
}
