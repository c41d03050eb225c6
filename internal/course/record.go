package course

import (
	"strconv"
	"strings"
)

// Metadata keys as stored by the indexing job.
const (
	FieldCode            = "code"
	FieldTitleEN         = "title_en"
	FieldTitleET         = "title_et"
	FieldCredits         = "eap"
	FieldSemester        = "semester"
	FieldCity            = "city"
	FieldLanguages       = "study_languages_en"
	FieldLevels          = "study_levels_en"
	FieldAssessmentScale = "assessment_scale"
	FieldDescriptionEN   = "description_en"
	FieldDescriptionET   = "description_et"
)

// Record is one retrieved course. Records are produced per search and never mutated.
type Record struct {
	Code            string  `json:"code"`
	TitleEN         string  `json:"title_en"`
	TitleET         string  `json:"title_et"`
	Credits         string  `json:"credits"`
	Semester        string  `json:"semester"`
	City            string  `json:"city,omitempty"`
	Languages       string  `json:"languages"` // comma-joined composite
	Levels          string  `json:"levels"`    // comma-joined composite
	AssessmentScale string  `json:"assessment_scale,omitempty"`
	DescriptionEN   string  `json:"-"`
	DescriptionET   string  `json:"-"`
	Document        string  `json:"-"` // raw indexed text
	Distance        float64 `json:"distance"`
	Similarity      float64 `json:"similarity"`
}

// FromHit maps raw backend metadata into a Record. Similarity is 1 - distance.
func FromHit(meta map[string]string, distance float64, document string) Record {
	return Record{
		Code:            meta[FieldCode],
		TitleEN:         clean(meta[FieldTitleEN]),
		TitleET:         clean(meta[FieldTitleET]),
		Credits:         clean(meta[FieldCredits]),
		Semester:        clean(meta[FieldSemester]),
		City:            clean(meta[FieldCity]),
		Languages:       clean(meta[FieldLanguages]),
		Levels:          clean(meta[FieldLevels]),
		AssessmentScale: clean(meta[FieldAssessmentScale]),
		DescriptionEN:   clean(meta[FieldDescriptionEN]),
		DescriptionET:   clean(meta[FieldDescriptionET]),
		Document:        document,
		Distance:        distance,
		Similarity:      1 - distance,
	}
}

// Metadata is the inverse of FromHit, used when writing records to a store.
func (r Record) Metadata() map[string]string {
	return map[string]string{
		FieldCode:            r.Code,
		FieldTitleEN:         r.TitleEN,
		FieldTitleET:         r.TitleET,
		FieldCredits:         r.Credits,
		FieldSemester:        r.Semester,
		FieldCity:            r.City,
		FieldLanguages:       r.Languages,
		FieldLevels:          r.Levels,
		FieldAssessmentScale: r.AssessmentScale,
		FieldDescriptionEN:   r.DescriptionEN,
		FieldDescriptionET:   r.DescriptionET,
	}
}

// CreditsValue parses the decimal credit string ("6", "6.0", "4,5").
func (r Record) CreditsValue() (float64, bool) {
	return ParseDecimal(r.Credits)
}

// DisplayTitle is the English title, falling back to Estonian, then the code.
func (r Record) DisplayTitle() string {
	switch {
	case r.TitleEN != "":
		return r.TitleEN
	case r.TitleET != "":
		return r.TitleET
	default:
		return r.Code
	}
}

// ParseDecimal accepts both '.' and ',' as the decimal separator.
func ParseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Components splits a composite value ("English, Estonian") into its trimmed parts.
func Components(composite string) []string {
	parts := strings.Split(composite, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// the ingest job writes pandas NA markers as literal strings
func clean(v string) string {
	v = strings.TrimSpace(v)
	switch v {
	case "nan", "NaN", "None":
		return ""
	}
	return v
}
