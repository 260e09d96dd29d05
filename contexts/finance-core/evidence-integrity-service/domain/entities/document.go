package entities

import "time"

// Document is the renderer-neutral content of a package. Renderers must be
// deterministic for a given Document.
type Document struct {
	ArtifactID         string              `json:"artifact_id"`
	Kind               PackageKind         `json:"kind"`
	Title              string              `json:"title"`
	GeneratedAt        time.Time           `json:"generated_at"`
	Overview           []KeyValue          `json:"overview"`
	Payouts            []PayoutRow         `json:"payouts"`
	Checklist          []ChecklistItem     `json:"compliance_checklist"`
	Fairness           *FairnessSnapshot   `json:"fairness,omitempty"`
	Timeline           []TimelineEvent     `json:"timeline,omitempty"`
	Files              []FileHash          `json:"files,omitempty"`
	Signature          *ManifestSignature  `json:"signature,omitempty"`
	IncompleteSections []string            `json:"incomplete_sections"`
	Verification       VerificationDetails `json:"verification"`
}

type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type ChecklistItem struct {
	Item   string `json:"item"`
	Passed bool   `json:"passed"`
	Note   string `json:"note,omitempty"`
}

type VerificationDetails struct {
	Reference string `json:"reference"`
	URL       string `json:"url"`
	// QRCodePNG encodes URL. It marshals to base64 in JSON.
	QRCodePNG []byte `json:"qr_code_png,omitempty"`
}
