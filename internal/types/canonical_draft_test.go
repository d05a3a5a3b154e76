package types

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft() *CanonicalDraft {
	return &CanonicalDraft{
		PersonalInfo: PersonalInfo{FullName: "Jean Dupont", JobTitle: "Développeur"},
		Experiences: []Experience{
			{ID: "e1", Company: "Acme Corp", Position: "Engineer", Current: true, EndDate: "2020-01"},
		},
		Education:      []Education{{ID: "d1", Institution: "INSA", Degree: "MSc"}},
		Skills:         []Skill{{ID: "s1", Name: "Go", Level: SkillExpert}, {ID: "s2", Name: "SQL"}},
		Languages:      []Language{{ID: "l1", Name: "French", Level: LanguageNative}},
		Projects:       []Project{{ID: "p1", Name: "importer", Technologies: []string{}}},
		Certifications: []Certification{{ID: "c1", Name: "CKA", Issuer: "CNCF"}},
	}
}

func TestValidateCanonicalDraft_Valid(t *testing.T) {
	assert.NoError(t, ValidateCanonicalDraft(validDraft()))
}

func TestValidateCanonicalDraft_EndDateBeforeStartDateIsAccepted(t *testing.T) {
	d := validDraft()
	d.Experiences[0].StartDate = "2024-01"
	d.Experiences[0].EndDate = "2019-01"

	assert.NoError(t, ValidateCanonicalDraft(d))
}

func TestValidateCanonicalDraft_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *CanonicalDraft)
	}{
		{"missing full name", func(d *CanonicalDraft) { d.PersonalInfo.FullName = "" }},
		{"missing experience id", func(d *CanonicalDraft) { d.Experiences[0].ID = "" }},
		{"missing company", func(d *CanonicalDraft) { d.Experiences[0].Company = "" }},
		{"missing degree", func(d *CanonicalDraft) { d.Education[0].Degree = "" }},
		{"unknown skill level", func(d *CanonicalDraft) { d.Skills[0].Level = "guru" }},
		{"unknown language level", func(d *CanonicalDraft) { d.Languages[0].Level = "tourist" }},
		{"missing issuer", func(d *CanonicalDraft) { d.Certifications[0].Issuer = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(d)

			err := ValidateCanonicalDraft(d)
			require.Error(t, err)
			var verrs validator.ValidationErrors
			assert.ErrorAs(t, err, &verrs)
		})
	}
}

func TestValidateCanonicalDraft_DuplicateIDsAcrossEntities(t *testing.T) {
	d := validDraft()
	d.Certifications[0].ID = "e1"

	err := ValidateCanonicalDraft(d)
	require.Error(t, err)
	var dupErr *DuplicateIDError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "e1", dupErr.ID)
}

func TestValidateCanonicalDraft_Nil(t *testing.T) {
	assert.Error(t, ValidateCanonicalDraft(nil))
}

func TestCanonicalDraft_IDsAndCount(t *testing.T) {
	d := validDraft()

	assert.Equal(t, 7, d.Count())
	assert.Equal(t, []string{"e1", "d1", "s1", "s2", "l1", "p1", "c1"}, d.IDs())
}

func TestLevels_Valid(t *testing.T) {
	assert.True(t, SkillLevel("").Valid())
	assert.True(t, SkillAdvanced.Valid())
	assert.False(t, SkillLevel("guru").Valid())

	assert.True(t, LanguageLevel("").Valid())
	assert.True(t, LanguageFluent.Valid())
	assert.False(t, LanguageLevel("tourist").Valid())
}

func TestCanonicalDraft_NormalizeEncodesEmptyArrays(t *testing.T) {
	d := &CanonicalDraft{
		PersonalInfo: PersonalInfo{FullName: "Jean Dupont"},
		Projects:     []Project{{ID: "p1", Name: "importer"}},
	}

	d.Normalize()

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "null")
	assert.Contains(t, string(data), `"experiences":[]`)
	assert.Contains(t, string(data), `"technologies":[]`)
}
