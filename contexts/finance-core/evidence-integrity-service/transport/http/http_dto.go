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

type InclusionFlagsDTO struct {
	Timeline   bool `json:"timeline"`
	FileHashes bool `json:"file_hashes"`
	Signatures bool `json:"signatures"`
	AIAnalysis bool `json:"ai_analysis"`
}

type GeneratePackageRequest struct {
	Kind  string            `json:"kind" validate:"required,oneof=PAYOUT_AUDIT COMPLIANCE_REPORT INCIDENT_EVIDENCE ETHICS_CERTIFICATION"`
	Flags InclusionFlagsDTO `json:"include"`
}

func (r GeneratePackageRequest) Validate() error {
	return dtoValidate.Struct(r)
}

type PackageResponse struct {
	ArtifactID            string            `json:"artifact_id"`
	ChallengeID           string            `json:"challenge_id"`
	Kind                  string            `json:"kind"`
	FileName              string            `json:"file_name"`
	ContentType           string            `json:"content_type"`
	SizeBytes             int64             `json:"size_bytes"`
	SHA256                string            `json:"sha256"`
	VerificationReference string            `json:"verification_reference"`
	Include               InclusionFlagsDTO `json:"include"`
	SupersedesID          string            `json:"supersedes_id,omitempty"`
	FairnessAuditID       string            `json:"fairness_audit_id,omitempty"`
	IncompleteSections    []string          `json:"incomplete_sections"`
	CreatedAt             time.Time         `json:"created_at"`
}

type PackageListResponse struct {
	ChallengeID string            `json:"challenge_id"`
	Items       []PackageResponse `json:"items"`
}

type VerificationResponse struct {
	Valid            bool       `json:"valid"`
	ArtifactID       string     `json:"artifact_id,omitempty"`
	SHA256           string     `json:"sha256,omitempty"`
	RecomputedSHA256 string     `json:"recomputed_sha256,omitempty"`
	RecordedAt       *time.Time `json:"recorded_at,omitempty"`
	Reason           string     `json:"reason,omitempty"`
}

type PackageContent struct {
	FileName    string
	ContentType string
	SHA256      string
	Data        []byte
}
