package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/autodoc/cv-analyzer/internal/llm"
	"github.com/autodoc/cv-analyzer/internal/types"
)

type fakeClient struct {
	response string
	err      error
	calls    int
	prompt   string
}

func (f *fakeClient) GenerateJSON(_ context.Context, parts []llm.Part, _ llm.ModelTier) (string, error) {
	f.calls++
	if len(parts) > 0 {
		f.prompt = parts[0].Text
	}
	return f.response, f.err
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake-model" }
func (f *fakeClient) Close() error                  { return nil }

func candidate(name string) types.CandidateRecord {
	return types.CandidateRecord{
		ID:       uuid.New(),
		Filename: name + ".pdf",
		CVData: types.CVData{
			FirstName: name,
			LastName:  "Candidate",
			Skills:    []string{"Go"},
		},
	}
}

func TestRank_EmptyCandidatesSkipsModel(t *testing.T) {
	client := &fakeClient{response: `{"results": []}`}
	r := New(client, zap.NewNop())

	matches := r.Rank(context.Background(), "any query", nil)
	assert.Empty(t, matches)
	assert.Equal(t, 0, client.calls, "model must not be contacted for an empty candidate set")
}

func TestRank_SortsByScoreDescending(t *testing.T) {
	a, b, c := candidate("Alice"), candidate("Bob"), candidate("Carol")

	// Model returns [A, B, C]; scores demand [B, A, C].
	response := fmt.Sprintf(`{"results": [
		{"cv_id": %q, "match_reason": "solid", "match_score": 90},
		{"cv_id": %q, "match_reason": "best", "match_score": 95},
		{"cv_id": %q, "match_reason": "okay", "match_score": 70}
	]}`, a.ID, b.ID, c.ID)

	r := New(&fakeClient{response: response}, zap.NewNop())
	matches := r.Rank(context.Background(), "golang engineer", []types.CandidateRecord{a, b, c})

	require.Len(t, matches, 3)
	assert.Equal(t, b.ID, matches[0].ID)
	assert.Equal(t, a.ID, matches[1].ID)
	assert.Equal(t, c.ID, matches[2].ID)
	assert.Equal(t, 95, matches[0].MatchScore)
	assert.Equal(t, "best", matches[0].MatchReason)
	assert.Equal(t, "Bob.pdf", matches[0].Filename)
}

func TestRank_TiesKeepModelOrder(t *testing.T) {
	a, b := candidate("Alice"), candidate("Bob")

	response := fmt.Sprintf(`{"results": [
		{"cv_id": %q, "match_score": 80},
		{"cv_id": %q, "match_score": 80}
	]}`, a.ID, b.ID)

	r := New(&fakeClient{response: response}, zap.NewNop())
	matches := r.Rank(context.Background(), "q", []types.CandidateRecord{a, b})

	require.Len(t, matches, 2)
	assert.Equal(t, a.ID, matches[0].ID)
	assert.Equal(t, b.ID, matches[1].ID)
}

func TestRank_UnknownIDDropped(t *testing.T) {
	a := candidate("Alice")

	response := fmt.Sprintf(`{"results": [
		{"cv_id": "hallucinated-id", "match_score": 99},
		{"cv_id": %q, "match_score": 60}
	]}`, a.ID)

	r := New(&fakeClient{response: response}, zap.NewNop())
	matches := r.Rank(context.Background(), "q", []types.CandidateRecord{a})

	require.Len(t, matches, 1)
	assert.Equal(t, a.ID, matches[0].ID)
}

func TestRank_NilListsNormalized(t *testing.T) {
	rec := types.CandidateRecord{
		ID:       uuid.New(),
		Filename: "bare.pdf",
		CVData:   types.CVData{FirstName: "Bare", LastName: "Record"},
	}

	response := fmt.Sprintf(`{"results": [{"cv_id": %q, "match_score": 50}]}`, rec.ID)
	r := New(&fakeClient{response: response}, zap.NewNop())

	matches := r.Rank(context.Background(), "q", []types.CandidateRecord{rec})
	require.Len(t, matches, 1)
	assert.NotNil(t, matches[0].CV.Skills)
	assert.NotNil(t, matches[0].CV.WorkExperience)
	assert.NotNil(t, matches[0].CV.Education)
}

func TestRank_FailSoft(t *testing.T) {
	a := candidate("Alice")

	tests := []struct {
		name   string
		client *fakeClient
	}{
		{name: "model call fails", client: &fakeClient{err: errors.New("quota exceeded")}},
		{name: "unparseable response", client: &fakeClient{response: "I found nobody, sorry"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.client, zap.NewNop())
			matches := r.Rank(context.Background(), "q", []types.CandidateRecord{a})
			assert.NotNil(t, matches)
			assert.Empty(t, matches)
		})
	}
}

func TestRank_PromptCarriesQueryAndCandidates(t *testing.T) {
	a := candidate("Alice")
	client := &fakeClient{response: `{"results": []}`}
	r := New(client, zap.NewNop())

	r.Rank(context.Background(), "senior data scientist", []types.CandidateRecord{a})

	assert.Contains(t, client.prompt, "senior data scientist")
	assert.Contains(t, client.prompt, "Alice Candidate")
	assert.Contains(t, client.prompt, a.ID.String())
}
