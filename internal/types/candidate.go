// Package types provides type definitions for structured data used throughout the CV analyzer.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// WorkExperience is one prior job extracted from a CV.
type WorkExperience struct {
	Company     string `json:"company"`
	Dates       string `json:"dates"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

// Education is one educational entry extracted from a CV.
type Education struct {
	School string `json:"school"`
	Dates  string `json:"dates"`
	Degree string `json:"degree"`
}

// CVData holds the structured fields extracted from a recognized CV.
// List order comes from the model output and carries no meaning; duplicates
// are kept as returned.
type CVData struct {
	FirstName      string           `json:"first_name" validate:"required"`
	LastName       string           `json:"last_name" validate:"required"`
	Email          string           `json:"email,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	Summary        string           `json:"summary"`
	Skills         []string         `json:"skills"`
	WorkExperience []WorkExperience `json:"work_experience"`
	Education      []Education      `json:"education"`
}

// Validate checks the required CVData fields using the validator.
func (c *CVData) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// Normalize replaces nil list fields with empty slices so that absent
// fields in model output serialize as [] rather than null.
func (c *CVData) Normalize() {
	if c.Skills == nil {
		c.Skills = []string{}
	}
	if c.WorkExperience == nil {
		c.WorkExperience = []WorkExperience{}
	}
	if c.Education == nil {
		c.Education = []Education{}
	}
}

// Classification is the transient outcome of analyzing one document.
// Either the document was rejected (IsCV false, RejectionReason set) or it
// was recognized and CV carries the extracted record.
type Classification struct {
	IsCV            bool    `json:"is_cv"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	CV              *CVData `json:"cv_data,omitempty"`
}

// CandidateRecord is one persisted CV row: store-assigned identity plus the
// extracted fields. The identifier and timestamp are assigned at append time
// and immutable afterwards.
type CandidateRecord struct {
	ID         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`
	IngestedAt time.Time `json:"ingestion_timestamp"`
	CVData
}

// CandidateSummary is the reduced projection returned by catalog listings.
type CandidateSummary struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Filename  string    `json:"filename"`
	Summary   string    `json:"summary"`
}

// SearchMatch is one smart-search hit: the matched record plus the model's
// score and explanation. Transient, never persisted.
type SearchMatch struct {
	ID          uuid.UUID `json:"id"`
	CV          CVData    `json:"cv"`
	MatchReason string    `json:"match_reason"`
	MatchScore  int       `json:"match_score"`
	Filename    string    `json:"filename"`
}

// SmartSearchRequest is the free-text search request body.
type SmartSearchRequest struct {
	Query string `json:"query" validate:"required,min=1"`
}

// Validate validates the SmartSearchRequest using the validator.
func (r *SmartSearchRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
