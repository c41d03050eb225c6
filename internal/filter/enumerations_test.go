package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ut.ee/course-advisor/internal/course"
)

func TestDefaultEnumerations(t *testing.T) {
	e := DefaultEnumerations()
	assert.NotEmpty(t, e.Version)
	assert.Len(t, e.Fields[course.FieldLanguages], 32)
	assert.Len(t, e.Fields[course.FieldLevels], 23)

	levels := e.Options(course.FieldLevels)
	assert.Equal(t, []string{
		"bachelor's studies",
		"doctoral studies",
		"integrated bachelor's and master's studies",
		"master's studies",
		"professional higher education studies",
	}, levels)

	assert.Contains(t, e.Options(course.FieldLanguages), "Võro language")
}

func TestEnumerations_ExpandCaseInsensitive(t *testing.T) {
	e := testEnums()
	assert.Equal(t, []string{"English", "English, Estonian"}, e.Expand(course.FieldLanguages, "english"))
	assert.Nil(t, e.Expand(course.FieldLanguages, ""))
	assert.Nil(t, e.Expand("unknown_field", "English"))
}

func TestLoadEnumerations_RoundTripFile(t *testing.T) {
	data, err := testEnums().Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "facets.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadEnumerations(path)
	require.NoError(t, err)
	assert.Equal(t, testEnums(), loaded)
}

func TestParseEnumerations_RequiresVersion(t *testing.T) {
	_, err := ParseEnumerations([]byte("fields: {}\n"))
	require.Error(t, err)

	_, err = LoadEnumerations(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
