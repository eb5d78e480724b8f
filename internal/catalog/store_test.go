package catalog

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodoc/cv-analyzer/internal/types"
)

func TestBuildListQuery_NoFilter(t *testing.T) {
	query, args := buildListQuery(`"autodoc"."cv_analysis"`, "")

	assert.Contains(t, query, `SELECT id, first_name, last_name, filename, summary`)
	assert.Contains(t, query, `"autodoc"."cv_analysis"`)
	assert.NotContains(t, query, "ILIKE")
	assert.Nil(t, args)
}

func TestBuildListQuery_WithFilter(t *testing.T) {
	query, args := buildListQuery(`"autodoc"."cv_analysis"`, "smith")

	// One OR-ed predicate per searchable field
	assert.Equal(t, 5, strings.Count(query, "ILIKE"))
	for _, col := range []string{"first_name", "last_name", "filename", "summary", "skills::text"} {
		assert.Contains(t, query, col+" ILIKE $1")
	}

	require.Len(t, args, 1)
	assert.Equal(t, "%smith%", args[0])
}

func TestMarshalListColumns(t *testing.T) {
	cv := types.CVData{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Skills:    []string{"Math", "Math"},
		WorkExperience: []types.WorkExperience{
			{Company: "Analytical Engines", Dates: "1842", Role: "Programmer", Description: "Notes"},
		},
	}

	skills, experience, education, err := marshalListColumns(cv)
	require.NoError(t, err)

	var gotSkills []string
	require.NoError(t, json.Unmarshal(skills, &gotSkills))
	assert.Equal(t, []string{"Math", "Math"}, gotSkills, "duplicates are preserved")

	var gotExperience []types.WorkExperience
	require.NoError(t, json.Unmarshal(experience, &gotExperience))
	require.Len(t, gotExperience, 1)
	assert.Equal(t, "Programmer", gotExperience[0].Role)

	// Absent education serializes as an empty array, not null
	assert.Equal(t, "[]", string(education))
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))

	v := nullable("ada@example.com")
	require.NotNil(t, v)
	assert.Equal(t, "ada@example.com", *v)
}

func TestConfigDefaults(t *testing.T) {
	s := &Store{namespace: DefaultNamespace, table: DefaultTable}
	assert.Equal(t, `"autodoc"."cv_analysis"`, s.qualifiedTable())
}
