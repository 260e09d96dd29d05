package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/ports"
)

const (
	EventPackageGenerated = "evidence.package_generated"
	sourceService         = "evidence-integrity-service"
)

func (p Packager) packageGeneratedEvent(ctx context.Context, artifact entities.EvidenceArtifact) (ports.EventEnvelope, error) {
	if p.DisablePackageEventEmission {
		return ports.EventEnvelope{}, nil
	}
	eventID, err := p.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	data, err := json.Marshal(map[string]any{
		"artifact_id":            artifact.ArtifactID,
		"challenge_id":           artifact.ChallengeID,
		"kind":                   string(artifact.Kind),
		"sha256":                 artifact.SHA256,
		"size_bytes":             artifact.SizeBytes,
		"verification_reference": artifact.VerificationReference,
		"supersedes_id":          artifact.SupersedesID,
		"incomplete_sections":    artifact.IncompleteSections,
		"created_at":             artifact.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          strings.TrimSpace(eventID),
		EventType:        EventPackageGenerated,
		OccurredAt:       artifact.CreatedAt.UTC(),
		SourceService:    sourceService,
		TraceID:          strings.TrimSpace(eventID),
		SchemaVersion:    1,
		PartitionKeyPath: "challenge_id",
		PartitionKey:     artifact.ChallengeID,
		Data:             data,
	}, nil
}
