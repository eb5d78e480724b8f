package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autodoc/cv-analyzer/internal/codec"
	"github.com/autodoc/cv-analyzer/internal/llm"
)

// fakeClient returns a canned response and records what it was called with.
type fakeClient struct {
	response string
	err      error
	calls    int
	gotParts []llm.Part
}

func (f *fakeClient) GenerateJSON(_ context.Context, parts []llm.Part, _ llm.ModelTier) (string, error) {
	f.calls++
	f.gotParts = parts
	return f.response, f.err
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake-model" }
func (f *fakeClient) Close() error                  { return nil }

const fullCVResponse = `{
	"is_cv": true,
	"rejection_reason": null,
	"cv_data": {
		"first_name": "Ada",
		"last_name": "Lovelace",
		"email": "ada@example.com",
		"phone": "+44 1234",
		"summary": "Mathematician and first programmer.",
		"skills": ["Mathematics", "Analysis"],
		"work_experience": [
			{"company": "Analytical Engines", "dates": "1842 - 1843", "role": "Programmer", "description": "Wrote the first algorithm."}
		],
		"education": [
			{"school": "Private tutoring", "dates": "1830s", "degree": "Mathematics"}
		]
	}
}`

func TestClassify_PositiveExtraction(t *testing.T) {
	client := &fakeClient{response: fullCVResponse}
	c := New(client, zap.NewNop())

	result, err := c.Classify(context.Background(), []byte("some resume text"), "text/plain")
	require.NoError(t, err)
	require.True(t, result.IsCV)
	require.NotNil(t, result.CV)

	assert.Equal(t, "Ada", result.CV.FirstName)
	assert.Equal(t, "Lovelace", result.CV.LastName)
	assert.Equal(t, "ada@example.com", result.CV.Email)
	assert.Equal(t, []string{"Mathematics", "Analysis"}, result.CV.Skills)
	require.Len(t, result.CV.WorkExperience, 1)
	assert.Equal(t, "Programmer", result.CV.WorkExperience[0].Role)
	require.Len(t, result.CV.Education, 1)
	assert.Equal(t, "Mathematics", result.CV.Education[0].Degree)
	assert.Equal(t, 1, client.calls)
}

func TestClassify_AbsentListsNormalized(t *testing.T) {
	client := &fakeClient{response: `{"is_cv": true, "cv_data": {"first_name": "Ada", "last_name": "Lovelace"}}`}
	c := New(client, zap.NewNop())

	result, err := c.Classify(context.Background(), []byte("text"), "text/plain")
	require.NoError(t, err)
	require.NotNil(t, result.CV)

	assert.NotNil(t, result.CV.Skills)
	assert.NotNil(t, result.CV.WorkExperience)
	assert.NotNil(t, result.CV.Education)
	assert.Empty(t, result.CV.Skills)
}

func TestClassify_NegativeWithReason(t *testing.T) {
	client := &fakeClient{response: `{"is_cv": false, "rejection_reason": "This is a cooking recipe."}`}
	c := New(client, zap.NewNop())

	result, err := c.Classify(context.Background(), []byte("flour, eggs"), "text/plain")
	require.NoError(t, err)
	assert.False(t, result.IsCV)
	assert.Equal(t, "This is a cooking recipe.", result.RejectionReason)
	assert.Nil(t, result.CV)
}

func TestClassify_NegativeDefaultReason(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "reason absent", response: `{"is_cv": false}`},
		{name: "is_cv absent counts as negative", response: `{}`},
		{name: "reason null", response: `{"is_cv": false, "rejection_reason": null}`},
		{name: "reason blank", response: `{"is_cv": false, "rejection_reason": "   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&fakeClient{response: tt.response}, zap.NewNop())
			result, err := c.Classify(context.Background(), []byte("x"), "text/plain")
			require.NoError(t, err)
			assert.False(t, result.IsCV)
			assert.Equal(t, defaultRejectionReason, result.RejectionReason)
		})
	}
}

func TestClassify_MalformedResponse(t *testing.T) {
	client := &fakeClient{response: "sorry, I cannot help with that"}
	c := New(client, zap.NewNop())

	result, err := c.Classify(context.Background(), []byte("x"), "text/plain")
	assert.Nil(t, result)

	var malformed *codec.MalformedResponseError
	assert.ErrorAs(t, err, &malformed)
}

func TestClassify_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "missing last name", response: `{"is_cv": true, "cv_data": {"first_name": "Ada"}}`},
		{name: "is_cv wrong type", response: `{"is_cv": "yes"}`},
		{name: "cv_data null despite positive", response: `{"is_cv": true, "cv_data": null}`},
		{name: "empty required name", response: `{"is_cv": true, "cv_data": {"first_name": "", "last_name": "Lovelace"}}`},
		{name: "skills wrong element type", response: `{"is_cv": true, "cv_data": {"first_name": "A", "last_name": "L", "skills": [1]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(&fakeClient{response: tt.response}, zap.NewNop())
			result, err := c.Classify(context.Background(), []byte("x"), "text/plain")
			assert.Nil(t, result)

			var extraction *ExtractionError
			assert.ErrorAs(t, err, &extraction)
		})
	}
}

func TestClassify_APIError(t *testing.T) {
	client := &fakeClient{err: errors.New("quota exceeded")}
	c := New(client, zap.NewNop())

	result, err := c.Classify(context.Background(), []byte("x"), "application/pdf")
	assert.Nil(t, result)

	var apiErr *APICallError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1, client.calls)
}

func TestBuildParts_ContentPolicy(t *testing.T) {
	prompt := "analyze this"

	t.Run("textual mime with valid UTF-8 is inlined", func(t *testing.T) {
		parts := buildParts(prompt, []byte("plain resume text"), "text/plain")
		require.Len(t, parts, 2)
		assert.Equal(t, "plain resume text", parts[1].Text)
		assert.Empty(t, parts[1].Data)
	})

	t.Run("mime parameters are ignored", func(t *testing.T) {
		parts := buildParts(prompt, []byte("{}"), "application/json; charset=utf-8")
		require.Len(t, parts, 2)
		assert.Equal(t, "{}", parts[1].Text)
	})

	t.Run("textual mime with invalid UTF-8 falls back to blob", func(t *testing.T) {
		content := []byte{0xff, 0xfe, 0x00}
		parts := buildParts(prompt, content, "text/plain")
		require.Len(t, parts, 2)
		assert.Equal(t, content, parts[1].Data)
		assert.Equal(t, "text/plain", parts[1].MIMEType)
	})

	t.Run("binary mime goes as blob from the start", func(t *testing.T) {
		content := []byte("%PDF-1.4")
		parts := buildParts(prompt, content, "application/pdf")
		require.Len(t, parts, 2)
		assert.Equal(t, content, parts[1].Data)
		assert.Equal(t, "application/pdf", parts[1].MIMEType)
	})
}
