package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/entities"
	domainerrors "oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/errors"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/ports"

	"golang.org/x/sync/errgroup"
)

const (
	defaultTimelineLimit = 50
	challengeEntityType  = "challenge"

	statusGenerated  = "generated"
	statusIncomplete = "incomplete"
	statusFailed     = "failed"
)

type Packager struct {
	Summaries                   ports.ChallengeSummaryReader
	Payouts                     ports.PayoutReader
	Events                      ports.EventReader
	Files                       ports.FileHashReader
	Audits                      ports.AuditSnapshotReader
	Blobs                       ports.BlobStore
	Artifacts                   ports.ArtifactRepository
	Renderer                    ports.Renderer
	Metrics                     ports.Metrics
	Clock                       ports.Clock
	IDGen                       ports.IDGenerator
	VerifyBaseURL               string
	TimelineLimit               int
	Upstream                    UpstreamPolicy
	DisablePackageEventEmission bool
	Logger                      *slog.Logger
}

type GeneratePackageCommand struct {
	ChallengeID string
	Kind        entities.PackageKind
	Flags       entities.InclusionFlags
}

type sections struct {
	mu         sync.Mutex
	timeline   []entities.TimelineEvent
	files      []entities.FileHash
	fairness   *entities.FairnessSnapshot
	signature  *entities.ManifestSignature
	incomplete []string
}

func (s *sections) markIncomplete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incomplete = append(s.incomplete, name)
}

// GeneratePackage renders a package for the challenge and commits it. Bytes
// are written and read back before metadata is committed; any failure after
// the write removes them again so committed metadata never points at missing
// or partial content.
func (p Packager) GeneratePackage(ctx context.Context, cmd GeneratePackageCommand) (entities.EvidenceArtifact, error) {
	cmd.ChallengeID = strings.TrimSpace(cmd.ChallengeID)
	if cmd.ChallengeID == "" || !cmd.Kind.Valid() {
		return entities.EvidenceArtifact{}, domainerrors.ErrInvalidRequest
	}
	logger := ResolveLogger(p.Logger)

	artifact, err := p.generate(ctx, cmd, logger)
	if err != nil {
		p.observe(string(cmd.Kind), statusFailed, 0)
		logger.Error("evidence package generation failed",
			"event", "evidence_package_failed",
			"module", "finance-core/evidence-integrity-service",
			"layer", "application",
			"challenge_id", cmd.ChallengeID,
			"kind", string(cmd.Kind),
			"error", err.Error(),
		)
		return entities.EvidenceArtifact{}, err
	}

	status := statusGenerated
	if artifact.Incomplete() {
		status = statusIncomplete
	}
	p.observe(string(artifact.Kind), status, artifact.SizeBytes)
	logger.Info("evidence package generated",
		"event", "evidence_package_generated",
		"module", "finance-core/evidence-integrity-service",
		"layer", "application",
		"challenge_id", artifact.ChallengeID,
		"artifact_id", artifact.ArtifactID,
		"kind", string(artifact.Kind),
		"size_bytes", artifact.SizeBytes,
		"sha256", artifact.SHA256,
		"supersedes_id", artifact.SupersedesID,
		"incomplete_sections", artifact.IncompleteSections,
	)
	return artifact, nil
}

func (p Packager) generate(ctx context.Context, cmd GeneratePackageCommand, logger *slog.Logger) (entities.EvidenceArtifact, error) {
	summary, err := call(ctx, p.Upstream, func(ctx context.Context) (entities.ChallengeSummary, error) {
		return p.Summaries.GetChallengeSummary(ctx, cmd.ChallengeID)
	})
	if err != nil {
		switch {
		case errors.Is(err, domainerrors.ErrNotFound):
			return entities.EvidenceArtifact{}, fmt.Errorf("load challenge summary: %w", err)
		case ctx.Err() != nil:
			return entities.EvidenceArtifact{}, ctx.Err()
		default:
			return entities.EvidenceArtifact{}, fmt.Errorf("load challenge summary: %w: %w", domainerrors.ErrDependencyUnavailable, err)
		}
	}
	if summary, err = p.attachPayouts(ctx, cmd.ChallengeID, summary); err != nil {
		return entities.EvidenceArtifact{}, err
	}

	gathered, err := p.gather(ctx, cmd, summary, logger)
	if err != nil {
		return entities.EvidenceArtifact{}, err
	}

	previous, err := p.previousArtifact(ctx, cmd)
	if err != nil {
		return entities.EvidenceArtifact{}, fmt.Errorf("load previous artifacts: %w: %w", domainerrors.ErrStorage, err)
	}

	artifactID, err := p.IDGen.NewID(ctx)
	if err != nil {
		return entities.EvidenceArtifact{}, err
	}
	referenceID, err := p.IDGen.NewID(ctx)
	if err != nil {
		return entities.EvidenceArtifact{}, err
	}
	artifactID = strings.TrimSpace(artifactID)
	reference := strings.ReplaceAll(strings.TrimSpace(referenceID), "-", "")
	now := p.now()

	doc := assembleDocument(documentInput{
		artifactID: artifactID,
		kind:       cmd.Kind,
		summary:    summary,
		sections:   gathered,
		generated:  now,
		reference:  reference,
		verifyURL:  verifyURL(p.VerifyBaseURL, reference),
	})
	data, err := p.Renderer.Render(ctx, doc)
	if err != nil {
		return entities.EvidenceArtifact{}, fmt.Errorf("render evidence document: %w", err)
	}
	digest := hashBytes(data)

	key := fmt.Sprintf("evidence/%s/%s.%s", cmd.ChallengeID, artifactID, p.Renderer.Extension())
	if err := p.store(ctx, key, data, digest); err != nil {
		p.discard(ctx, key, logger)
		if ctx.Err() != nil {
			return entities.EvidenceArtifact{}, ctx.Err()
		}
		return entities.EvidenceArtifact{}, fmt.Errorf("store evidence bytes: %w: %w", domainerrors.ErrStorage, err)
	}

	// Nothing is committed yet, so a cancelled caller leaves no trace.
	if err := ctx.Err(); err != nil {
		p.discard(ctx, key, logger)
		return entities.EvidenceArtifact{}, err
	}

	artifact := entities.EvidenceArtifact{
		ArtifactID:            artifactID,
		ChallengeID:           cmd.ChallengeID,
		Kind:                  cmd.Kind,
		Flags:                 cmd.Flags,
		FileName:              fileName(cmd, now, p.Renderer.Extension()),
		StorageKey:            key,
		ContentType:           p.Renderer.ContentType(),
		SizeBytes:             int64(len(data)),
		SHA256:                digest,
		VerificationReference: reference,
		SupersedesID:          previous,
		IncompleteSections:    gathered.incomplete,
		CreatedAt:             now,
	}
	if gathered.fairness != nil {
		artifact.FairnessAuditID = gathered.fairness.AuditID
	}

	event, err := p.packageGeneratedEvent(ctx, artifact)
	if err != nil {
		p.discard(ctx, key, logger)
		return entities.EvidenceArtifact{}, err
	}
	if err := p.Artifacts.CreateArtifact(ctx, artifact, event); err != nil {
		p.discard(ctx, key, logger)
		return entities.EvidenceArtifact{}, fmt.Errorf("commit evidence metadata: %w: %w", domainerrors.ErrStorage, err)
	}
	return artifact, nil
}

// attachPayouts fills the payout table from the distribution the fairness
// audit resolved. A summary reader that already carries payouts is kept as is
// when no PayoutReader is wired.
func (p Packager) attachPayouts(ctx context.Context, challengeID string, summary entities.ChallengeSummary) (entities.ChallengeSummary, error) {
	if p.Payouts == nil {
		return summary, nil
	}
	type lookup struct {
		payouts entities.ResolvedPayouts
		found   bool
	}
	result, err := call(ctx, p.Upstream, func(ctx context.Context) (lookup, error) {
		payouts, found, err := p.Payouts.ResolvePayouts(ctx, challengeID)
		return lookup{payouts: payouts, found: found}, err
	})
	if err != nil {
		if ctx.Err() != nil {
			return entities.ChallengeSummary{}, ctx.Err()
		}
		return entities.ChallengeSummary{}, fmt.Errorf("load payouts: %w: %w", domainerrors.ErrDependencyUnavailable, err)
	}
	if !result.found {
		return summary.WithPayouts(entities.ResolvedPayouts{}), nil
	}
	return summary.WithPayouts(result.payouts), nil
}

// gather fetches the optional sections concurrently. Failures are absorbed
// into the incomplete list; only cancellation aborts.
func (p Packager) gather(
	ctx context.Context,
	cmd GeneratePackageCommand,
	summary entities.ChallengeSummary,
	logger *slog.Logger,
) (*sections, error) {
	out := &sections{incomplete: []string{}}
	absorb := func(section string, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		out.markIncomplete(section)
		logger.Warn("evidence section unavailable, omitting it",
			"event", "evidence_section_unavailable",
			"module", "finance-core/evidence-integrity-service",
			"layer", "application",
			"challenge_id", cmd.ChallengeID,
			"section", section,
			"error", err.Error(),
		)
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if cmd.Flags.Timeline {
		g.Go(func() error {
			if p.Events == nil {
				return absorb(entities.SectionTimeline, domainerrors.ErrDataUnavailable)
			}
			events, err := call(gctx, p.Upstream, func(ctx context.Context) ([]entities.TimelineEvent, error) {
				return p.Events.ListEvents(ctx, challengeEntityType, cmd.ChallengeID, p.timelineLimit())
			})
			if err != nil {
				return absorb(entities.SectionTimeline, err)
			}
			out.timeline = chronological(events, p.timelineLimit())
			return nil
		})
	}
	if cmd.Flags.FileHashes {
		g.Go(func() error {
			if p.Files == nil {
				return absorb(entities.SectionFileHashes, domainerrors.ErrDataUnavailable)
			}
			files, err := call(gctx, p.Upstream, func(ctx context.Context) ([]entities.FileHash, error) {
				return p.Files.ListFileHashes(ctx, cmd.ChallengeID)
			})
			if err != nil {
				return absorb(entities.SectionFileHashes, err)
			}
			sort.SliceStable(files, func(i, j int) bool {
				return files[i].FileName < files[j].FileName
			})
			out.files = files
			return nil
		})
	}
	if includeFairness(cmd) {
		g.Go(func() error {
			if p.Audits == nil {
				return absorb(entities.SectionAIAnalysis, domainerrors.ErrDataUnavailable)
			}
			type lookup struct {
				snapshot entities.FairnessSnapshot
				found    bool
			}
			result, err := call(gctx, p.Upstream, func(ctx context.Context) (lookup, error) {
				snapshot, found, err := p.Audits.LatestAudit(ctx, cmd.ChallengeID)
				return lookup{snapshot: snapshot, found: found}, err
			})
			if err != nil {
				return absorb(entities.SectionAIAnalysis, err)
			}
			if !result.found {
				return absorb(entities.SectionAIAnalysis, fmt.Errorf("%w: no fairness audit recorded", domainerrors.ErrDataUnavailable))
			}
			out.fairness = &result.snapshot
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if cmd.Flags.Signatures {
		if summary.Manifest.Signed() {
			out.signature = summary.Manifest
		} else {
			out.incomplete = append(out.incomplete, entities.SectionSignatures)
		}
	}
	sort.Strings(out.incomplete)
	return out, nil
}

// store writes data under key and confirms the stored bytes hash to digest.
func (p Packager) store(ctx context.Context, key string, data []byte, digest string) error {
	if err := run(ctx, p.Upstream, func(ctx context.Context) error {
		return p.Blobs.WriteBytes(ctx, key, data, p.Renderer.ContentType())
	}); err != nil {
		return err
	}
	stored, err := call(ctx, p.Upstream, func(ctx context.Context) ([]byte, error) {
		return p.Blobs.ReadBytes(ctx, key)
	})
	if err != nil {
		return err
	}
	if hashBytes(stored) != digest {
		return domainerrors.ErrIntegrityViolation
	}
	return nil
}

func (p Packager) discard(ctx context.Context, key string, logger *slog.Logger) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.Upstream.timeout())
	defer cancel()
	if err := p.Blobs.DeleteBytes(cleanupCtx, key); err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
		logger.Warn("evidence bytes cleanup failed",
			"event", "evidence_bytes_cleanup_failed",
			"module", "finance-core/evidence-integrity-service",
			"layer", "application",
			"storage_key", key,
			"error", err.Error(),
		)
	}
}

func (p Packager) previousArtifact(ctx context.Context, cmd GeneratePackageCommand) (string, error) {
	items, err := call(ctx, p.Upstream, func(ctx context.Context) ([]entities.EvidenceArtifact, error) {
		return p.Artifacts.ListArtifactsByChallenge(ctx, cmd.ChallengeID)
	})
	if err != nil {
		return "", err
	}
	var latest *entities.EvidenceArtifact
	for i := range items {
		if items[i].Kind != cmd.Kind {
			continue
		}
		if latest == nil || items[i].CreatedAt.After(latest.CreatedAt) {
			latest = &items[i]
		}
	}
	if latest == nil {
		return "", nil
	}
	return latest.ArtifactID, nil
}

func (p Packager) timelineLimit() int {
	if p.TimelineLimit <= 0 {
		return defaultTimelineLimit
	}
	return p.TimelineLimit
}

func (p Packager) now() time.Time {
	if p.Clock == nil {
		return time.Now().UTC()
	}
	return p.Clock.Now().UTC()
}

func (p Packager) observe(kind string, status string, size int64) {
	if p.Metrics != nil {
		p.Metrics.ObservePackage(kind, status, size)
	}
}

// includeFairness reports whether the fairness analysis section is wanted.
// Payout audits always carry it.
func includeFairness(cmd GeneratePackageCommand) bool {
	return cmd.Flags.AIAnalysis || cmd.Kind == entities.KindPayoutAudit
}

// chronological keeps the most recent limit events, oldest first.
func chronological(events []entities.TimelineEvent, limit int) []entities.TimelineEvent {
	items := append([]entities.TimelineEvent(nil), events...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OccurredAt.Before(items[j].OccurredAt)
	})
	if len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items
}

func fileName(cmd GeneratePackageCommand, at time.Time, ext string) string {
	return fmt.Sprintf("%s-%s-%s.%s",
		strings.ToLower(strings.ReplaceAll(string(cmd.Kind), "_", "-")),
		cmd.ChallengeID,
		at.UTC().Format("20060102T150405Z"),
		ext,
	)
}

func verifyURL(base string, reference string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = "http://localhost:8080"
	}
	return base + "/api/v1/evidence/verify/" + reference
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
