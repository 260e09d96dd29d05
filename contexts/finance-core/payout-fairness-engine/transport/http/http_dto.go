package http

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var dtoValidate = validator.New()

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type FlagDTO struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

type RecommendationDTO struct {
	Severity string `json:"severity"`
	FlagID   string `json:"flag_id,omitempty"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

type FairnessAuditResponse struct {
	AuditID            string              `json:"audit_id"`
	ChallengeID        string              `json:"challenge_id"`
	GiniCoefficient    float64             `json:"gini_coefficient"`
	GiniCategory       string              `json:"gini_category"`
	FairnessScore      float64             `json:"fairness_score"`
	RedFlags           []FlagDTO           `json:"red_flags"`
	GreenFlags         []FlagDTO           `json:"green_flags"`
	Recommendations    []RecommendationDTO `json:"recommendations"`
	EvidenceLinks      []string            `json:"evidence_links"`
	DistributionSource string              `json:"distribution_source"`
	IncompleteSections []string            `json:"incomplete_sections"`
	Warnings           []string            `json:"warnings,omitempty"`
	InputHash          string              `json:"input_hash"`
	CreatedAt          time.Time           `json:"created_at"`
}

type AuditHistoryResponse struct {
	ChallengeID string                  `json:"challenge_id"`
	Items       []FairnessAuditResponse `json:"items"`
}

type SplitContributorRequest struct {
	ContributorID string  `json:"contributor_id" validate:"required"`
	Weight        float64 `json:"weight" validate:"gte=0"`
}

type CalculateSplitRequest struct {
	Bounty       float64                   `json:"bounty" validate:"gt=0"`
	Contributors []SplitContributorRequest `json:"contributors" validate:"max=1000,dive"`
}

func (r CalculateSplitRequest) Validate() error {
	return dtoValidate.Struct(r)
}

type SplitShareResponse struct {
	ContributorID string  `json:"contributor_id"`
	Weight        float64 `json:"weight"`
	Percentage    float64 `json:"percentage"`
	Amount        float64 `json:"amount"`
}

type CalculateSplitResponse struct {
	Bounty float64              `json:"bounty"`
	Shares []SplitShareResponse `json:"shares"`
}
