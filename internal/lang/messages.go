package lang

import "fmt"

type Key string

const (
	MsgDeclined         Key = "declined"
	MsgMissingKey       Key = "missing_key"
	MsgInvalidKey       Key = "invalid_key"
	MsgSearchFailed     Key = "search_failed"
	MsgNoResults        Key = "no_results"
	MsgAuthFailed       Key = "auth_failed"
	MsgRateLimited      Key = "rate_limited"
	MsgCompletionFailed Key = "completion_failed"
	MsgSearching        Key = "searching"
	MsgValidatingKey    Key = "validating_key"

	LabelLanguage Key = "label_language"
	LabelLevel    Key = "label_level"
	LabelSemester Key = "label_semester"
	LabelCredits  Key = "label_credits"
)

var catalogue = map[Locale]map[Key]string{
	English: {
		MsgDeclined:         "This request is outside the scope of the course advisor. Please describe what you'd like to learn.",
		MsgMissingKey:       "Please add your OpenRouter API key first.",
		MsgInvalidKey:       "The API key is invalid or expired. Please check the key.",
		MsgSearchFailed:     "Search failed: %s",
		MsgNoResults:        "No courses found with the current filters. Try removing some filters or rephrasing your query.",
		MsgAuthFailed:       "API key is invalid or expired. Please check the key.",
		MsgRateLimited:      "Rate limit exceeded. Please try again in a moment.",
		MsgCompletionFailed: "LLM request failed: %s",
		MsgSearching:        "Searching for courses…",
		MsgValidatingKey:    "Validating API key…",
		LabelLanguage:       "Language",
		LabelLevel:          "Level",
		LabelSemester:       "Semester",
		LabelCredits:        "EAP",
	},
	Estonian: {
		MsgDeclined:         "See päring ei ole kooskõlas ainete soovitaja ülesandega. Palun kirjelda lihtsalt, mida soovid õppida.",
		MsgMissingKey:       "Palun lisa esmalt OpenRouter API võti.",
		MsgInvalidKey:       "API võti on vale või aegunud. Kontrolli võtit.",
		MsgSearchFailed:     "Otsing ebaõnnestus: %s",
		MsgNoResults:        "Praeguste filtritega ühtegi ainet ei leitud. Proovi filtrid eemaldada või sõnastust muuta.",
		MsgAuthFailed:       "API võti on vale või aegunud. Kontrolli võtit.",
		MsgRateLimited:      "API limiit ületatud. Proovi mõne hetke pärast uuesti.",
		MsgCompletionFailed: "LLM päring ebaõnnestus: %s",
		MsgSearching:        "Otsin sobivaid aineid…",
		MsgValidatingKey:    "Kontrollin API võtit…",
		LabelLanguage:       "Keel",
		LabelLevel:          "Õppeaste",
		LabelSemester:       "Semester",
		LabelCredits:        "EAP",
	},
}

// Text returns the localized string for key. Unknown locales fall back to English.
func Text(l Locale, key Key) string {
	if msgs, ok := catalogue[l]; ok {
		if s, ok := msgs[key]; ok {
			return s
		}
	}
	return catalogue[English][key]
}

// Textf formats a localized template, e.g. the diagnostic suffix of MsgSearchFailed.
func Textf(l Locale, key Key, args ...any) string {
	return fmt.Sprintf(Text(l, key), args...)
}
