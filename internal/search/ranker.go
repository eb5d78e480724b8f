// Package search ranks stored candidates against a free-text query using a
// single model call.
package search

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/autodoc/cv-analyzer/internal/codec"
	"github.com/autodoc/cv-analyzer/internal/llm"
	"github.com/autodoc/cv-analyzer/internal/logger"
	"github.com/autodoc/cv-analyzer/internal/types"
)

// Ranker performs model-assisted candidate ranking. Smart search is a
// best-effort convenience feature: every failure degrades to an empty
// result instead of propagating an error.
type Ranker struct {
	llm  llm.Client
	log  *zap.Logger
	tier llm.ModelTier
}

// New creates a Ranker on top of the given model client.
func New(client llm.Client, log *zap.Logger) *Ranker {
	return &Ranker{llm: client, log: log, tier: llm.TierLite}
}

// Rank scores the candidates against the query. An empty candidate set
// returns immediately without contacting the model. Entries whose cv_id does
// not resolve against the input set are dropped; the model may hallucinate
// identifiers. Results are sorted by score descending, model order kept on ties.
func (r *Ranker) Rank(ctx context.Context, query string, candidates []types.CandidateRecord) []types.SearchMatch {
	if len(candidates) == 0 {
		return []types.SearchMatch{}
	}

	prompt, err := codec.BuildSearchPrompt(query, codec.Simplify(candidates))
	if err != nil {
		r.log.Error("failed to build search prompt", zap.Error(err))
		return []types.SearchMatch{}
	}

	raw, err := r.llm.GenerateJSON(ctx, []llm.Part{llm.TextPart(prompt)}, r.tier)
	if err != nil {
		r.log.Warn("smart search model call failed", zap.Error(err))
		return []types.SearchMatch{}
	}

	results, err := codec.ParseSearchResults(raw)
	if err != nil {
		r.log.Warn("smart search response unparseable",
			zap.Error(err),
			zap.String("response", logger.Truncate(raw, 300)))
		return []types.SearchMatch{}
	}

	byID := make(map[string]types.CandidateRecord, len(candidates))
	for _, rec := range candidates {
		byID[rec.ID.String()] = rec
	}

	matches := make([]types.SearchMatch, 0, len(results))
	for _, entry := range results {
		rec, ok := byID[entry.CVID]
		if !ok {
			r.log.Debug("dropping unknown cv_id from model output", zap.String("cv_id", entry.CVID))
			continue
		}

		cv := rec.CVData
		cv.Normalize()

		matches = append(matches, types.SearchMatch{
			ID:          rec.ID,
			CV:          cv,
			MatchReason: entry.MatchReason,
			MatchScore:  entry.MatchScore,
			Filename:    rec.Filename,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})

	return matches
}
