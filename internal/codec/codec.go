// Package codec builds the model prompts and parses the model's responses
// for document analysis and smart search.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/autodoc/cv-analyzer/internal/llm"
	"github.com/autodoc/cv-analyzer/internal/prompts"
	"github.com/autodoc/cv-analyzer/internal/types"
)

// MalformedResponseError indicates the model output was not valid JSON even
// after code-fence stripping.
type MalformedResponseError struct {
	Cause error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("model response is not valid JSON: %v", e.Cause)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}

// BuildExtractionPrompt returns the fixed instruction text for the
// is-this-a-CV classification and field extraction call. Invariant across calls.
func BuildExtractionPrompt() string {
	return prompts.MustGet("analysis.json", "classify-document")
}

// SimplifiedCandidate is a reduced projection of a stored record, used to
// keep the search prompt within a manageable token budget.
type SimplifiedCandidate struct {
	ID         string   `json:"id"`
	Filename   string   `json:"filename"`
	Name       string   `json:"name"`
	Summary    string   `json:"summary"`
	Skills     []string `json:"skills"`
	Experience []string `json:"experience"`
	Education  []string `json:"education"`
}

// Simplify flattens stored records into the views embedded in the search
// prompt: "role at company" experience lines and "degree in school"
// education lines.
func Simplify(records []types.CandidateRecord) []SimplifiedCandidate {
	views := make([]SimplifiedCandidate, 0, len(records))
	for _, rec := range records {
		view := SimplifiedCandidate{
			ID:         rec.ID.String(),
			Filename:   rec.Filename,
			Name:       strings.TrimSpace(rec.FirstName + " " + rec.LastName),
			Summary:    rec.Summary,
			Skills:     rec.Skills,
			Experience: make([]string, 0, len(rec.WorkExperience)),
			Education:  make([]string, 0, len(rec.Education)),
		}
		if view.Skills == nil {
			view.Skills = []string{}
		}
		for _, exp := range rec.WorkExperience {
			view.Experience = append(view.Experience, fmt.Sprintf("%s at %s", exp.Role, exp.Company))
		}
		for _, edu := range rec.Education {
			view.Education = append(view.Education, fmt.Sprintf("%s in %s", edu.Degree, edu.School))
		}
		views = append(views, view)
	}
	return views
}

// BuildSearchPrompt embeds the recruiter instructions, the user query and the
// serialized candidate views into one ranking prompt.
func BuildSearchPrompt(query string, candidates []SimplifiedCandidate) (string, error) {
	serialized, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize candidate views: %w", err)
	}

	template := prompts.MustGet("search.json", "rank-candidates")
	return prompts.Format(template, map[string]string{
		"Query":      query,
		"Candidates": string(serialized),
	}), nil
}

// ParseModelJSON strips optional code fences from raw model output and
// parses it into a generic JSON tree. Invalid syntax yields a
// *MalformedResponseError; shape validation is a separate, later stage.
func ParseModelJSON(raw string) (map[string]any, error) {
	cleaned := llm.CleanJSONBlock(raw)

	var tree map[string]any
	if err := json.Unmarshal([]byte(cleaned), &tree); err != nil {
		return nil, &MalformedResponseError{Cause: err}
	}
	return tree, nil
}

// RankedResult is one entry of the search model's results array. CVID is the
// identifier the model echoed back; it may not resolve to a stored record.
type RankedResult struct {
	CVID        string `json:"cv_id"`
	MatchReason string `json:"match_reason"`
	MatchScore  int    `json:"match_score"`
}

// ParseSearchResults decodes the ranking response envelope. A missing or
// null results array decodes as empty.
func ParseSearchResults(raw string) ([]RankedResult, error) {
	cleaned := llm.CleanJSONBlock(raw)

	var envelope struct {
		Results []RankedResult `json:"results"`
	}
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
		return nil, &MalformedResponseError{Cause: err}
	}
	return envelope.Results, nil
}
