package types

// SkillLevel is the self-assessed proficiency of a skill.
type SkillLevel string

// Skill levels accepted by the draft schema. The zero value means the résumé did not say.
const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillExpert       SkillLevel = "expert"
)

// Valid reports whether l is empty or one of the known skill levels.
func (l SkillLevel) Valid() bool {
	switch l {
	case "", SkillBeginner, SkillIntermediate, SkillAdvanced, SkillExpert:
		return true
	}
	return false
}

// LanguageLevel is the spoken/written proficiency of a language.
type LanguageLevel string

// Language levels accepted by the draft schema. The zero value means the résumé did not say.
const (
	LanguageBasic          LanguageLevel = "basic"
	LanguageConversational LanguageLevel = "conversational"
	LanguageProfessional   LanguageLevel = "professional"
	LanguageFluent         LanguageLevel = "fluent"
	LanguageNative         LanguageLevel = "native"
)

// Valid reports whether l is empty or one of the known language levels.
func (l LanguageLevel) Valid() bool {
	switch l {
	case "", LanguageBasic, LanguageConversational, LanguageProfessional, LanguageFluent, LanguageNative:
		return true
	}
	return false
}
