// Package lang classifies utterances as Estonian or English and holds the
// localized strings shown to users.
package lang

import (
	"strings"
	"unicode"
)

type Locale string

const (
	Estonian Locale = "et"
	English  Locale = "en"
)

const estonianChars = "äöüõšžÄÖÜÕŠŽ"

var estonianWords = map[string]struct{}{
	"tahan": {}, "õppida": {}, "soovid": {}, "soovib": {}, "aine": {}, "aineid": {},
	"kursus": {}, "kursusi": {}, "mis": {}, "kuidas": {}, "millised": {}, "mida": {},
	"mulle": {}, "sobib": {}, "leida": {}, "õppimine": {}, "õpin": {}, "tahaks": {},
	"tahaksin": {}, "huvitab": {}, "huvitav": {}, "kas": {}, "on": {}, "mul": {},
	"see": {}, "need": {}, "saan": {}, "saab": {}, "peaks": {}, "oleks": {},
	"midagi": {}, "seotud": {}, "seoses": {}, "võrdle": {}, "võrdlus": {}, "erinevus": {},
	"parem": {}, "kumb": {}, "kumba": {}, "milline": {}, "milliseid": {},
}

// Detect returns Estonian if the text has an Estonian-only letter or any common
// Estonian function word, and English otherwise.
func Detect(text string) Locale {
	if strings.ContainsAny(text, estonianChars) {
		return Estonian
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if _, ok := estonianWords[w]; ok {
			return Estonian
		}
	}
	return English
}

// Parse maps a locale tag to a Locale, defaulting to English.
func Parse(tag string) Locale {
	if strings.EqualFold(strings.TrimSpace(tag), string(Estonian)) {
		return Estonian
	}
	return English
}
