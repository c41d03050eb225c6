package assembler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ut.ee/course-advisor/internal/course"
	"ut.ee/course-advisor/internal/lang"
)

func sampleRecords() []course.Record {
	return []course.Record{
		{
			Code: "MTAT.03.227", TitleEN: "Machine Learning", TitleET: "Masinõpe", Credits: "6", Semester: "spring",
			Languages: "English", Levels: "master's studies", DescriptionEN: "Intro to ML.", Similarity: 0.9,
		},
		{
			Code: "AJAL.02.001", TitleET: "Keskaja ajalugu", Credits: "3", Semester: "autumn",
			Languages: "Estonian", Levels: "bachelor's studies", Document: "raw indexed text", Similarity: 0.8,
		},
	}
}

func TestBuildModelContext(t *testing.T) {
	got := BuildModelContext(sampleRecords(), 0)

	want := "[1] Machine Learning (MTAT.03.227, 6 EAP, spring)\n" +
		"     Languages: English | Level: master's studies\n" +
		"     Description: Intro to ML.\n\n" +
		"[2] Keskaja ajalugu (AJAL.02.001, 3 EAP, autumn)\n" +
		"     Languages: Estonian | Level: bachelor's studies\n" +
		"     Description: raw indexed text"
	assert.Equal(t, want, got)
	assert.Empty(t, BuildModelContext(nil, 0))
}

func TestBuildModelContext_SnippetFallbackAndTruncation(t *testing.T) {
	r := course.Record{Code: "X", DescriptionET: strings.Repeat("õ", 10), Document: "ignored"}
	got := BuildModelContext([]course.Record{r}, 4)
	assert.True(t, strings.HasSuffix(got, "Description: õõõõ"), got)

	r = course.Record{Code: "X", DescriptionEN: strings.Repeat("a", DefaultSnippetLength+50)}
	got = BuildModelContext([]course.Record{r}, DefaultSnippetLength)
	desc := got[strings.Index(got, "Description: ")+len("Description: "):]
	assert.Len(t, desc, DefaultSnippetLength)
}

func TestBuildPresentation(t *testing.T) {
	cards := BuildPresentation(sampleRecords(), lang.Estonian, "")
	require.Len(t, cards, 2)

	first := cards[0]
	assert.Equal(t, 1, first.Rank)
	assert.Equal(t, "Machine Learning", first.Title)
	assert.Equal(t, "Masinõpe", first.AltTitle)
	assert.Equal(t, "90%", first.MatchPercent)
	assert.Equal(t, "https://ois2.ut.ee/ainekava/MTAT.03.227", first.URL)
	assert.Equal(t, "Keel", first.Labels.Language)
	assert.Equal(t, "Õppeaste", first.Labels.Level)

	second := cards[1]
	assert.Equal(t, 2, second.Rank)
	assert.Equal(t, "Keskaja ajalugu", second.Title)
	assert.Empty(t, second.AltTitle)
}

func TestBuildPresentation_Placeholders(t *testing.T) {
	cards := BuildPresentation([]course.Record{{Code: "X"}}, lang.English, "https://example.test/")
	require.Len(t, cards, 1)
	assert.Equal(t, "X", cards[0].Title)
	assert.Equal(t, "—", cards[0].Semester)
	assert.Equal(t, "—", cards[0].Languages)
	assert.Equal(t, "https://example.test/X", cards[0].URL)
	assert.Equal(t, "Language", cards[0].Labels.Language)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "50%", Percent(0.5))
	assert.Equal(t, "87%", Percent(0.8749))
	assert.Equal(t, "0%", Percent(0))
}
