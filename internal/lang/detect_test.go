package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Locale
	}{
		{"empty defaults to english", "", English},
		{"english", "I want to learn machine learning", English},
		{"diacritic", "masinõpe", Estonian},
		{"uppercase diacritic", "ÜLIKOOL", Estonian},
		{"function word without diacritics", "Tahan leida kursusi", Estonian},
		{"function word with punctuation", "kumb on parem?", Estonian},
		{"case insensitive vocabulary", "MIS KURSUS", Estonian},
		{"substring is not a word", "mission statement", English},
		{"short follow-up english", "yes", English},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Detect(tc.text))
		})
	}
}

func TestDetect_Deterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, Estonian, Detect("kas see aine sobib"))
	}
}

func TestParse(t *testing.T) {
	assert.Equal(t, Estonian, Parse("ET"))
	assert.Equal(t, English, Parse("en"))
	assert.Equal(t, English, Parse("fr"))
}

func TestText(t *testing.T) {
	assert.Equal(t, "Keel", Text(Estonian, LabelLanguage))
	assert.Equal(t, "Language", Text(English, LabelLanguage))
	assert.Equal(t, "Language", Text(Locale("fr"), LabelLanguage))
	assert.Equal(t, "Search failed: timeout", Textf(English, MsgSearchFailed, "timeout"))

	for key := range catalogue[English] {
		assert.NotEmpty(t, catalogue[Estonian][key], "missing Estonian text for %s", key)
	}
}
