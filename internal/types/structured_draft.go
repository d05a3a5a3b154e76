package types

// StructuredDraft is the schema-validated but not yet canonical output of an extraction service.
// Every scalar is a pointer: nil means the field was absent or null in the service response.
type StructuredDraft struct {
	PersonalInfo   *RawPersonalInfo   `json:"personalInfo"`
	Experiences    []RawExperience    `json:"experiences,omitempty"`
	Education      []RawEducation     `json:"education,omitempty"`
	Skills         []RawSkill         `json:"skills,omitempty"`
	Languages      []RawLanguage      `json:"languages,omitempty"`
	Projects       []RawProject       `json:"projects,omitempty"`
	Certifications []RawCertification `json:"certifications,omitempty"`
}

// RawPersonalInfo mirrors PersonalInfo with optional fields.
type RawPersonalInfo struct {
	FullName *string `json:"fullName,omitempty"`
	JobTitle *string `json:"jobTitle,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Location *string `json:"location,omitempty"`
	Website  *string `json:"website,omitempty"`
	LinkedIn *string `json:"linkedin,omitempty"`
	Summary  *string `json:"summary,omitempty"`
}

// RawExperience mirrors Experience with optional fields.
type RawExperience struct {
	Company     *string `json:"company,omitempty"`
	Position    *string `json:"position,omitempty"`
	Location    *string `json:"location,omitempty"`
	StartDate   *string `json:"startDate,omitempty"`
	EndDate     *string `json:"endDate,omitempty"`
	Current     *bool   `json:"current,omitempty"`
	Description *string `json:"description,omitempty"`
}

// RawEducation mirrors Education with optional fields.
type RawEducation struct {
	Institution *string `json:"institution,omitempty"`
	Degree      *string `json:"degree,omitempty"`
	Field       *string `json:"field,omitempty"`
	StartDate   *string `json:"startDate,omitempty"`
	EndDate     *string `json:"endDate,omitempty"`
	Description *string `json:"description,omitempty"`
}

// RawSkill mirrors Skill with optional fields.
type RawSkill struct {
	Name  *string `json:"name,omitempty"`
	Level *string `json:"level,omitempty"`
}

// RawLanguage mirrors Language with optional fields.
type RawLanguage struct {
	Name  *string `json:"name,omitempty"`
	Level *string `json:"level,omitempty"`
}

// RawProject mirrors Project with optional fields.
type RawProject struct {
	Name         *string  `json:"name,omitempty"`
	Description  *string  `json:"description,omitempty"`
	URL          *string  `json:"url,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
}

// RawCertification mirrors Certification with optional fields.
type RawCertification struct {
	Name   *string `json:"name,omitempty"`
	Issuer *string `json:"issuer,omitempty"`
	Date   *string `json:"date,omitempty"`
	URL    *string `json:"url,omitempty"`
}

// Str returns a pointer to s. Handy when building drafts by hand.
func Str(s string) *string {
	return &s
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}
