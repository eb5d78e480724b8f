// Package classify decides whether an uploaded document is a CV and, if so,
// extracts its structured fields with a single model call.
package classify

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/autodoc/cv-analyzer/internal/codec"
	"github.com/autodoc/cv-analyzer/internal/llm"
	"github.com/autodoc/cv-analyzer/internal/logger"
	"github.com/autodoc/cv-analyzer/internal/schemas"
	"github.com/autodoc/cv-analyzer/internal/types"
)

// defaultRejectionReason is used when the model rejects a document without
// supplying its own reason.
const defaultRejectionReason = "Document is not recognized as a CV."

// extractionEnvelope mirrors the JSON the extraction prompt asks for.
type extractionEnvelope struct {
	IsCV            bool          `json:"is_cv"`
	RejectionReason *string       `json:"rejection_reason"`
	CVData          *types.CVData `json:"cv_data"`
}

// Classifier orchestrates the one-call classification and extraction.
type Classifier struct {
	llm  llm.Client
	log  *zap.Logger
	tier llm.ModelTier
}

// New creates a Classifier on top of the given model client.
func New(client llm.Client, log *zap.Logger) *Classifier {
	return &Classifier{llm: client, log: log, tier: llm.TierLite}
}

// Classify analyzes document content. Text-like content is inlined into the
// prompt; everything else is attached as a typed binary blob. Exactly one
// model call is made; a failure is the operation's failure, with no retry.
func (c *Classifier) Classify(ctx context.Context, content []byte, mimeType string) (*types.Classification, error) {
	parts := buildParts(codec.BuildExtractionPrompt(), content, mimeType)

	raw, err := c.llm.GenerateJSON(ctx, parts, c.tier)
	if err != nil {
		return nil, &APICallError{Message: "document analysis call failed", Cause: err}
	}

	// Stage 1: syntax. Fails with MalformedResponseError on non-JSON output.
	if _, err := codec.ParseModelJSON(raw); err != nil {
		c.log.Warn("model returned unparseable output",
			zap.String("response", logger.Truncate(raw, 300)))
		return nil, err
	}

	// Stage 2: shape. The envelope must match the extraction schema.
	cleaned := llm.CleanJSONBlock(raw)
	if err := schemas.ValidateJSONString(schemas.ExtractionResponseSchema(), cleaned); err != nil {
		return nil, &ExtractionError{Message: "model response does not match the extraction schema", Cause: err}
	}

	var envelope extractionEnvelope
	if err := json.Unmarshal([]byte(cleaned), &envelope); err != nil {
		return nil, &ExtractionError{Message: "failed to decode extraction envelope", Cause: err}
	}

	if !envelope.IsCV {
		reason := defaultRejectionReason
		if envelope.RejectionReason != nil && strings.TrimSpace(*envelope.RejectionReason) != "" {
			reason = *envelope.RejectionReason
		}
		return &types.Classification{IsCV: false, RejectionReason: reason}, nil
	}

	if envelope.CVData == nil {
		return nil, &ExtractionError{Message: "model reported a CV but returned no cv_data"}
	}
	if err := envelope.CVData.Validate(); err != nil {
		return nil, &ExtractionError{Message: "extracted record is missing required fields", Cause: err}
	}
	envelope.CVData.Normalize()

	c.log.Debug("document classified as CV",
		zap.String("candidate", envelope.CVData.FirstName+" "+envelope.CVData.LastName))

	return &types.Classification{IsCV: true, CV: envelope.CVData}, nil
}

// buildParts selects how document content travels to the model: text-like
// mime types with valid UTF-8 content are inlined; undecodable or binary
// content becomes a typed blob.
func buildParts(prompt string, content []byte, mimeType string) []llm.Part {
	parts := []llm.Part{llm.TextPart(prompt)}
	if isTextual(mimeType) && utf8.Valid(content) {
		parts = append(parts, llm.TextPart(string(content)))
	} else {
		parts = append(parts, llm.BlobPart(mimeType, content))
	}
	return parts
}

// isTextual reports whether the mime type indicates inlineable text content.
func isTextual(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mt, ";"); idx >= 0 {
		mt = strings.TrimSpace(mt[:idx])
	}
	return strings.HasPrefix(mt, "text/") || mt == "application/json"
}
