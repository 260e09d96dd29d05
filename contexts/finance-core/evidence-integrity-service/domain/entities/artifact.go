package entities

import (
	"strings"
	"time"
)

type PackageKind string

const (
	KindPayoutAudit         PackageKind = "PAYOUT_AUDIT"
	KindComplianceReport    PackageKind = "COMPLIANCE_REPORT"
	KindIncidentEvidence    PackageKind = "INCIDENT_EVIDENCE"
	KindEthicsCertification PackageKind = "ETHICS_CERTIFICATION"
)

func (k PackageKind) Valid() bool {
	switch k {
	case KindPayoutAudit, KindComplianceReport, KindIncidentEvidence, KindEthicsCertification:
		return true
	default:
		return false
	}
}

func (k PackageKind) Title() string {
	switch k {
	case KindPayoutAudit:
		return "Payout Audit"
	case KindComplianceReport:
		return "Compliance Report"
	case KindIncidentEvidence:
		return "Incident Evidence"
	case KindEthicsCertification:
		return "Ethics Certification"
	default:
		return strings.ReplaceAll(string(k), "_", " ")
	}
}

// InclusionFlags select the optional sections of a package.
type InclusionFlags struct {
	Timeline   bool `json:"timeline"`
	FileHashes bool `json:"file_hashes"`
	Signatures bool `json:"signatures"`
	AIAnalysis bool `json:"ai_analysis"`
}

const (
	SectionTimeline   = "timeline"
	SectionFileHashes = "file_hashes"
	SectionSignatures = "signatures"
	SectionAIAnalysis = "ai_analysis"
)

// EvidenceArtifact is immutable. A newer package for the same challenge and
// kind points back at the one it supersedes; nothing is edited or deleted.
type EvidenceArtifact struct {
	ArtifactID            string
	ChallengeID           string
	Kind                  PackageKind
	Flags                 InclusionFlags
	FileName              string
	StorageKey            string
	ContentType           string
	SizeBytes             int64
	SHA256                string
	VerificationReference string
	SupersedesID          string
	FairnessAuditID       string
	IncompleteSections    []string
	CreatedAt             time.Time
}

func (a EvidenceArtifact) Incomplete() bool {
	return len(a.IncompleteSections) > 0
}

type VerificationResult struct {
	Valid            bool
	ArtifactID       string
	RecordedSHA256   string
	RecomputedSHA256 string
	RecordedAt       time.Time
	Reason           string
}
