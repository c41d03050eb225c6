// Package assembler renders retrieved courses twice: as a bounded plain-text
// block for the model and as cards for the user.
package assembler

import (
	"fmt"
	"math"
	"strings"

	"ut.ee/course-advisor/internal/course"
	"ut.ee/course-advisor/internal/lang"
)

const (
	DefaultSnippetLength = 450
	DefaultLinkBase      = "https://ois2.ut.ee/ainekava/"
	placeholder          = "—"
)

// BuildModelContext formats records in rank order, one block per course,
// separated by a blank line. Descriptions are cut to snippetLen code points.
func BuildModelContext(records []course.Record, snippetLen int) string {
	if snippetLen <= 0 {
		snippetLen = DefaultSnippetLength
	}

	blocks := make([]string, len(records))
	for i, r := range records {
		title := r.TitleEN
		if title == "" {
			title = r.TitleET
		}
		blocks[i] = fmt.Sprintf("[%d] %s (%s, %s EAP, %s)\n     Languages: %s | Level: %s\n     Description: %s",
			i+1, title, r.Code, r.Credits, r.Semester, r.Languages, r.Levels, snippet(r, snippetLen))
	}
	return strings.Join(blocks, "\n\n")
}

// snippet prefers the English description, then Estonian, then the indexed text.
func snippet(r course.Record, n int) string {
	for _, s := range []string{r.DescriptionEN, r.DescriptionET, r.Document} {
		if s != "" {
			return truncate(s, n)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	runes := 0
	for i := range s {
		if runes == n {
			return s[:i]
		}
		runes++
	}
	return s
}

type Labels struct {
	Language string `json:"language"`
	Level    string `json:"level"`
	Semester string `json:"semester"`
	Credits  string `json:"credits"`
}

// Card is the user-facing view of one result.
type Card struct {
	Rank         int     `json:"rank"`
	Code         string  `json:"code"`
	Title        string  `json:"title"`
	AltTitle     string  `json:"alt_title,omitempty"`
	Credits      string  `json:"credits"`
	Semester     string  `json:"semester"`
	Languages    string  `json:"languages"`
	Levels       string  `json:"levels"`
	Similarity   float64 `json:"similarity"`
	MatchPercent string  `json:"match_percent"`
	URL          string  `json:"url"`
	Labels       Labels  `json:"labels"`
}

// BuildPresentation builds one card per record, localized for l.
func BuildPresentation(records []course.Record, l lang.Locale, linkBase string) []Card {
	if linkBase == "" {
		linkBase = DefaultLinkBase
	}
	labels := Labels{
		Language: lang.Text(l, lang.LabelLanguage),
		Level:    lang.Text(l, lang.LabelLevel),
		Semester: lang.Text(l, lang.LabelSemester),
		Credits:  lang.Text(l, lang.LabelCredits),
	}

	cards := make([]Card, len(records))
	for i, r := range records {
		card := Card{
			Rank:         i + 1,
			Code:         r.Code,
			Title:        r.DisplayTitle(),
			Credits:      r.Credits,
			Semester:     orPlaceholder(r.Semester),
			Languages:    orPlaceholder(r.Languages),
			Levels:       orPlaceholder(r.Levels),
			Similarity:   r.Similarity,
			MatchPercent: Percent(r.Similarity),
			URL:          linkBase + r.Code,
			Labels:       labels,
		}
		if r.TitleEN != "" && r.TitleET != "" && r.TitleET != r.TitleEN {
			card.AltTitle = r.TitleET
		}
		cards[i] = card
	}
	return cards
}

// Percent renders a similarity fraction as a whole percentage, e.g. "87%".
func Percent(similarity float64) string {
	return fmt.Sprintf("%d%%", int(math.RoundToEven(similarity*100)))
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}
